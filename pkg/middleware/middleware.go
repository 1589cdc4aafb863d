// Package middleware holds the HTTP middleware shared by mounted modules.
package middleware

import (
	"net/http"
	"slices"
)

// Func decorates an http.Handler.
type Func func(http.Handler) http.Handler

// Stack is an ordered middleware list. The first entry added runs first.
type Stack []Func

// Use appends mw to the stack.
func (s *Stack) Use(mw Func) {
	*s = append(*s, mw)
}

// Apply wraps handler so requests pass through the stack in order.
func (s Stack) Apply(handler http.Handler) http.Handler {
	for _, mw := range slices.Backward(s) {
		handler = mw(handler)
	}
	return handler
}
