// Package target turns the raw command-line argument into a typed target
// identity. It is the only place that looks at the argument string.
package target

import (
	"errors"
	"fmt"
	"strings"

	"github.com/oxyzenQ/zenlixem/pkg/model"
)

var (
	// ErrNotFound means the path does not exist or cannot be stat'ed.
	ErrNotFound = errors.New("target not found")
	// ErrInvalid means the argument names something that cannot be matched.
	ErrInvalid = errors.New("invalid target")
)

// Classify resolves raw exactly once. All-digit arguments are ports;
// anything else is a path.
func Classify(raw string, opts model.Options) (model.Target, error) {
	if raw == "" {
		return model.Target{}, fmt.Errorf("%w: empty target", ErrInvalid)
	}
	if isDigits(raw) {
		return classifyPort(raw, opts)
	}
	return classifyPath(raw)
}

func isDigits(s string) bool {
	return strings.Trim(s, "0123456789") == ""
}
