// Package apperrors defines the error kinds the election and attendance
// services return. Handlers translate kinds to HTTP responses; everything
// that is not an *Error is treated as an internal failure.
package apperrors

import "errors"

type Kind string

const (
	KindInternal              Kind = "internal"
	KindInvalidInput          Kind = "invalid_input"
	KindNotFound              Kind = "not_found"
	KindInvalidTransition     Kind = "invalid_transition"
	KindAlreadyVoted          Kind = "already_voted"
	KindNominationNotApproved Kind = "nomination_not_approved"
	KindNoApprovedNominations Kind = "no_approved_nominations"
	KindUnauthorized          Kind = "unauthorized"
	KindDuplicateNomination   Kind = "duplicate_nomination"
	KindAlreadyMarked         Kind = "already_marked"
)

type Error struct {
	Kind Kind
	Msg  string
}

func (e *Error) Error() string {
	return e.Msg
}

var (
	ErrInvalidInput          = &Error{Kind: KindInvalidInput, Msg: "invalid input"}
	ErrNotFound              = &Error{Kind: KindNotFound, Msg: "not found"}
	ErrInvalidTransition     = &Error{Kind: KindInvalidTransition, Msg: "invalid status transition"}
	ErrAlreadyVoted          = &Error{Kind: KindAlreadyVoted, Msg: "already voted for this position"}
	ErrNominationNotApproved = &Error{Kind: KindNominationNotApproved, Msg: "nomination is not approved"}
	ErrNoApprovedNominations = &Error{Kind: KindNoApprovedNominations, Msg: "no approved nominations"}
	ErrUnauthorized          = &Error{Kind: KindUnauthorized, Msg: "unauthorized"}
	ErrDuplicateNomination   = &Error{Kind: KindDuplicateNomination, Msg: "nomination already exists for this position"}
)

// KindOf returns the kind of the first *Error in err's chain, or KindInternal
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// AlreadyApplied reports whether an equivalent write already took effect,
// meaning a blind retry cannot change anything.
func AlreadyApplied(kind Kind) bool {
	switch kind {
	case KindAlreadyVoted, KindAlreadyMarked, KindDuplicateNomination:
		return true
	}
	return false
}
