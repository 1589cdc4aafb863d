package extraction

import (
	"fmt"
	"slices"
	"strings"
)

// Sentiment is the polarity of a feedback claim.
type Sentiment string

const (
	SentimentPositive Sentiment = "positive"
	SentimentNegative Sentiment = "negative"
	SentimentNeutral  Sentiment = "neutral"
)

// Urgency is how pressing the feedback is.
type Urgency string

const (
	UrgencyLow    Urgency = "low"
	UrgencyMedium Urgency = "medium"
	UrgencyHigh   Urgency = "high"
)

var (
	sentiments = []Sentiment{SentimentPositive, SentimentNegative, SentimentNeutral}
	urgencies  = []Urgency{UrgencyLow, UrgencyMedium, UrgencyHigh}
)

// Claim is the structured form of one piece of raw feedback.
type Claim struct {
	Text      string    `json:"claim"`
	Sentiment Sentiment `json:"sentiment"`
	Urgency   Urgency   `json:"urgency"`
	Segment   string    `json:"segment"`
}

// normalize lowercases enum fields and trims surrounding whitespace. Segment
// tags are folded to snake_case so "Power Users" and "power_users" agree.
func (c Claim) normalize() Claim {
	c.Text = strings.TrimSpace(c.Text)
	c.Sentiment = Sentiment(strings.ToLower(strings.TrimSpace(string(c.Sentiment))))
	c.Urgency = Urgency(strings.ToLower(strings.TrimSpace(string(c.Urgency))))
	c.Segment = strings.Join(strings.Fields(strings.ToLower(strings.ReplaceAll(c.Segment, "-", " "))), "_")
	return c
}

// validate reports the first missing or invalid field.
func (c Claim) validate() string {
	switch {
	case c.Text == "":
		return "missing claim"
	case c.Sentiment == "":
		return "missing sentiment"
	case !slices.Contains(sentiments, c.Sentiment):
		return fmt.Sprintf("invalid sentiment %q", c.Sentiment)
	case c.Urgency == "":
		return "missing urgency"
	case !slices.Contains(urgencies, c.Urgency):
		return fmt.Sprintf("invalid urgency %q", c.Urgency)
	case c.Segment == "":
		return "missing segment"
	}
	return ""
}
