// Package apperr classifies failures into the kinds handlers react to.
package apperr

import (
	"context"
	"errors"
	"net"

	tgbot "github.com/go-telegram/bot"
)

// Kind of a failure
type Kind int

const (
	Unknown Kind = iota
	// TransientGateway is a network failure or an upstream rate limit
	TransientGateway
	// PermanentGateway means the target is unreachable (blocked bot, missing chat)
	PermanentGateway
	// Persistence is any database error
	Persistence
	// MalformedInput is bad user text
	MalformedInput
	// Unauthorized is a non-owner on an owner-only path
	Unauthorized
)

func (k Kind) String() string {
	switch k {
	case TransientGateway:
		return "transient_gateway"
	case PermanentGateway:
		return "permanent_gateway"
	case Persistence:
		return "persistence"
	case MalformedInput:
		return "malformed_input"
	case Unauthorized:
		return "unauthorized"
	default:
		return "unknown"
	}
}

// Error tags an underlying error with a Kind
type Error struct {
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return e.Kind.String()
	}
	return e.Kind.String() + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Wrap tags err with kind. Nil stays nil.
func Wrap(kind Kind, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Err: err}
}

var (
	// ErrUnidentified is returned when a ban target cannot be resolved
	ErrUnidentified = &Error{Kind: MalformedInput, Err: errors.New("could not identify user")}
	// ErrOwnerTarget is returned when the owner tries to ban themselves
	ErrOwnerTarget = &Error{Kind: MalformedInput, Err: errors.New("owner cannot be targeted")}
	// ErrBadPath is returned for restore payloads that are not a bare file name
	ErrBadPath = &Error{Kind: MalformedInput, Err: errors.New("invalid backup file name")}
	// ErrNotOwner is returned when a non-owner reaches an owner-only path
	ErrNotOwner = &Error{Kind: Unauthorized, Err: errors.New("owner only")}
)

// Classify reports the kind of err. Tagged errors keep their kind, gateway
// errors are mapped from the client sentinels.
func Classify(err error) Kind {
	if err == nil {
		return Unknown
	}

	var tagged *Error
	if errors.As(err, &tagged) {
		return tagged.Kind
	}

	switch {
	case tgbot.IsTooManyRequestsError(err):
		return TransientGateway
	case errors.Is(err, tgbot.ErrorForbidden),
		errors.Is(err, tgbot.ErrorBadRequest),
		errors.Is(err, tgbot.ErrorNotFound),
		errors.Is(err, tgbot.ErrorUnauthorized):
		return PermanentGateway
	case errors.Is(err, context.DeadlineExceeded):
		return TransientGateway
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return TransientGateway
	}
	return Unknown
}

// IsGateway reports whether err is a gateway failure of either kind
func IsGateway(err error) bool {
	k := Classify(err)
	return k == TransientGateway || k == PermanentGateway
}
