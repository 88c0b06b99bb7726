package model

import (
	"errors"

	"github.com/rotisserie/eris"
)

var (
	// ErrInvalidInput rejects a request before any work is performed.
	ErrInvalidInput = eris.New("invalid input")

	// ErrPersonNotFound is returned when a person id does not exist.
	ErrPersonNotFound = eris.New("person not found")

	// ErrProfileNotFound is returned when a profile id does not exist.
	ErrProfileNotFound = eris.New("profile not found")

	// ErrRunNotFound is returned when a run id does not exist.
	ErrRunNotFound = eris.New("run not found")

	// ErrPlaybookNotFound is returned when no playbook exists for a person and vendor.
	ErrPlaybookNotFound = eris.New("playbook not found")

	// ErrPersonaNotFound is returned when a playbook is requested before a persona exists.
	ErrPersonaNotFound = eris.New("persona not found")

	// ErrProfileNotConfirmed is returned when a scan targets a non-confirmed profile.
	ErrProfileNotConfirmed = eris.New("profile not confirmed")

	// ErrNoConfirmedProfiles is returned when a persona is requested for a person
	// without any confirmed profile.
	ErrNoConfirmedProfiles = eris.New("no confirmed profiles")
)

// ErrorKind groups errors into the categories callers act on.
type ErrorKind string

const (
	KindInvalidInput ErrorKind = "invalid_input"
	KindNotFound     ErrorKind = "not_found"
	KindPrecondition ErrorKind = "precondition"
	KindInternal     ErrorKind = "internal"
)

// KindOf classifies err. A nil error has no kind.
func KindOf(err error) ErrorKind {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInvalidInput):
		return KindInvalidInput
	case errors.Is(err, ErrPersonNotFound),
		errors.Is(err, ErrProfileNotFound),
		errors.Is(err, ErrRunNotFound),
		errors.Is(err, ErrPlaybookNotFound):
		return KindNotFound
	case errors.Is(err, ErrPersonaNotFound),
		errors.Is(err, ErrProfileNotConfirmed),
		errors.Is(err, ErrNoConfirmedProfiles):
		return KindPrecondition
	default:
		return KindInternal
	}
}
