package fetch

import (
	"errors"
	"fmt"
)

// Kind classifies adapter failures so the pipeline can decide how loudly
// to complain and whether the next run is expected to recover.
type Kind string

const (
	// KindTransient covers timeouts, connection failures, 429 and 5xx.
	// The next scheduled run retries naturally.
	KindTransient Kind = "transient"

	// KindPermanent covers 4xx responses other than 429, usually a bad
	// identifier or a removed board. Retrying won't help until the
	// config changes.
	KindPermanent Kind = "permanent"

	// KindMalformed covers responses we could fetch but not understand.
	KindMalformed Kind = "malformed"
)

// Error is the failure type every adapter returns.
type Error struct {
	Kind   Kind
	Source string // adapter type, e.g. "greenhouse"
	URL    string
	Status int // HTTP status when applicable, 0 otherwise
	Err    error
}

func (e *Error) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("%s fetch %s: status %d: %v", e.Source, e.URL, e.Status, e.Err)
	}
	return fmt.Sprintf("%s fetch %s: %v", e.Source, e.URL, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf extracts the failure kind, defaulting unknown errors to
// transient so a stray bug never permanently silences a source.
func KindOf(err error) Kind {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return KindTransient
}

// kindForStatus maps an HTTP status to a failure kind.
func kindForStatus(status int) Kind {
	switch {
	case status == 429:
		return KindTransient
	case status >= 500:
		return KindTransient
	default:
		return KindPermanent
	}
}
