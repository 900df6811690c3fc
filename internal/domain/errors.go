package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound        = errors.New("not found")
	ErrInvalidInput    = errors.New("invalid input")
	ErrGearUnavailable = errors.New("gear is already booked for these dates")

	ErrInvalidTransition = errors.New("invalid transition")

	// ErrAlreadyTerminal is a kind of ErrInvalidTransition.
	ErrAlreadyTerminal   = fmt.Errorf("%w: booking is already in a terminal state", ErrInvalidTransition)
	ErrUnauthorizedActor = errors.New("unauthorized actor")
	ErrStaleState        = errors.New("booking changed concurrently")

	ErrAccountNotReady    = errors.New("payment account not ready")
	ErrPaymentNotComplete = errors.New("payment not complete")
	ErrInvalidSignature   = errors.New("invalid webhook signature")
	ErrOrphanEvent        = errors.New("orphan webhook event")

	ErrAlreadyReviewed = errors.New("already reviewed")
	ErrNotEligible     = errors.New("not eligible to review")

	ErrTransferAlreadyRecorded = errors.New("a different transfer is already recorded")
	ErrHoldAlreadyAttached     = errors.New("a different payment hold is already attached")
)

// TransitionError explains why a requested status change was rejected.
type TransitionError struct {
	Kind   error
	From   BookingStatus
	To     BookingStatus
	Actor  ActorRole
	Reason string
}

func (e *TransitionError) Error() string {
	return e.Reason
}

func (e *TransitionError) Unwrap() error {
	return e.Kind
}

// AccountNotReadyError names the party that still has to finish payment onboarding.
type AccountNotReadyError struct {
	UserID string
	Party  ActorRole
}

func (e *AccountNotReadyError) Error() string {
	if e.Party == ActorRenter {
		return "the renter must finish setting up payments with the payment processor before paying"
	}
	return "the owner must finish setting up payouts with the payment processor before this booking can be paid"
}

func (e *AccountNotReadyError) Unwrap() error {
	return ErrAccountNotReady
}
