package api

import (
	"errors"
	"fmt"
)

// Kind classifies a failed request.
type Kind int

const (
	KindNone Kind = iota
	// KindNetwork: no response at all (connectivity, timeout, cancelled).
	KindNetwork
	// KindConflict: 409, duplicate (date, channel, campaign).
	KindConflict
	// KindAuth: 401, missing or expired session.
	KindAuth
	// KindBackend: any other non-2xx or an unreadable body.
	KindBackend
)

func (k Kind) String() string {
	switch k {
	case KindNetwork:
		return "network"
	case KindConflict:
		return "conflict"
	case KindAuth:
		return "auth"
	case KindBackend:
		return "backend"
	}
	return "none"
}

// DetailNetwork is the detail attached to transport failures.
const DetailNetwork = "Erro de conexão"

type Error struct {
	Kind   Kind
	Status int
	// Detail is the backend's human readable message, empty when it sent none.
	Detail string
	Err    error
}

func (e *Error) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s error (status %d): %s", e.Kind, e.Status, e.Detail)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s error: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("%s error: %s", e.Kind, e.Detail)
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf returns the kind of an *Error anywhere in err's chain.
func KindOf(err error) Kind {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	if err != nil {
		return KindBackend
	}
	return KindNone
}

// DetailOf returns the backend detail of err, or "".
func DetailOf(err error) string {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Detail
	}
	return ""
}
