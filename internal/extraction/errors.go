package extraction

import (
	"errors"
	"fmt"
)

// ErrExtractionFailed matches every *Failure.
var ErrExtractionFailed = errors.New("extraction failed")

// Failure reports model output that could not be turned into a Claim.
// Raw holds the unmodified model response for diagnosis.
type Failure struct {
	Reason string
	Raw    string
}

func (f *Failure) Error() string {
	return fmt.Sprintf("extraction failed: %s", f.Reason)
}

// Is makes errors.Is(err, ErrExtractionFailed) true for any Failure.
func (f *Failure) Is(target error) bool {
	return target == ErrExtractionFailed
}
