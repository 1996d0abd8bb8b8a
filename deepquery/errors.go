package deepquery

import (
	"errors"
	"fmt"
)

// ErrInvalidSelector is matched by every selector rejected before matching.
var ErrInvalidSelector = errors.New("deepquery: invalid selector")

// SelectorError reports which stage of a selector was rejected.
type SelectorError struct {
	Selector string // the full selector as given
	Stage    int    // zero-based boundary stage, -1 for the whole selector
	Err      error  // underlying parse error, may be nil
}

func (e *SelectorError) Error() string {
	msg := fmt.Sprintf("deepquery: invalid selector %q", e.Selector)
	if e.Stage >= 0 {
		msg += fmt.Sprintf(" (stage %d)", e.Stage)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *SelectorError) Unwrap() error { return e.Err }

func (e *SelectorError) Is(target error) bool { return target == ErrInvalidSelector }
