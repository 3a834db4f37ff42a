package metadata

import (
	custom_error "github.com/NatiEfraim/tokyo-api-sub000/pkg/errors"
)

// Status is the lifecycle state of a distribution line. Values are persisted
// as integers, so the numbering is part of the storage contract.
type Status int

const (
	StatusInvalid   Status = -1
	StatusPending   Status = 1
	StatusApproved  Status = 2
	StatusCanceled  Status = 3
	StatusCollected Status = 4
)

func NewStatus(value int) (Status, error) {
	status := Status(value)
	if !status.isValid() {
		return StatusInvalid, &custom_error.InvalidStatusError{To: status.Label()}
	}
	return status, nil
}

func (s Status) isValid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusCanceled, StatusCollected:
		return true
	default:
		return false
	}
}

// CanTransitionTo enforces the legal lifecycle:
// pending -> approved | canceled, approved -> collected | pending (returned).
// Canceled and collected are terminal.
func (s Status) CanTransitionTo(next Status) bool {
	switch s {
	case StatusPending:
		return next == StatusApproved || next == StatusCanceled
	case StatusApproved:
		return next == StatusCollected || next == StatusPending
	default:
		return false
	}
}

// Transition returns next if the move is legal, otherwise an
// InvalidStatusError naming both ends.
func (s Status) Transition(next Status) (Status, error) {
	if !next.isValid() {
		return StatusInvalid, &custom_error.InvalidStatusError{To: next.Label()}
	}
	if !s.CanTransitionTo(next) {
		return StatusInvalid, &custom_error.InvalidStatusError{From: s.Label(), To: next.Label()}
	}
	return next, nil
}

func (s Status) Label() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusApproved:
		return "approved"
	case StatusCanceled:
		return "canceled"
	case StatusCollected:
		return "collected"
	default:
		return "invalid"
	}
}
