package domain

import (
	"errors"
	"fmt"
	"strings"
)

type Status string

const (
	StatusPending        Status = "pending"
	StatusAccepted       Status = "accepted"
	StatusPreparing      Status = "preparing"
	StatusReady          Status = "ready"
	StatusOutForDelivery Status = "out_for_delivery"
	StatusCompleted      Status = "completed"
	StatusCancelled      Status = "cancelled"
)

// forward chain; cancelled is a separate action and never a successor
var nextStatus = map[Status]Status{
	StatusPending:        StatusAccepted,
	StatusAccepted:       StatusPreparing,
	StatusPreparing:      StatusReady,
	StatusReady:          StatusOutForDelivery,
	StatusOutForDelivery: StatusCompleted,
}

var ErrInvalidTransition = errors.New("invalid status transition")

// TransitionError carries the rejected pair. It matches ErrInvalidTransition.
type TransitionError struct {
	From Status
	To   Status
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("invalid status transition %s -> %s", e.From, e.To)
}

func (e *TransitionError) Is(target error) bool { return target == ErrInvalidTransition }

func ParseStatus(s string) (Status, bool) {
	st := Status(strings.ToLower(strings.TrimSpace(s)))
	if st.Known() {
		return st, true
	}
	return "", false
}

func (s Status) Known() bool {
	_, ok := nextStatus[s]
	return ok || s == StatusCompleted || s == StatusCancelled
}

func (s Status) Terminal() bool { return s == StatusCompleted || s == StatusCancelled }

// NextStatus returns the single forward successor of current. It reports
// false for terminal and unrecognized statuses.
func NextStatus(current Status) (Status, bool) {
	next, ok := nextStatus[current]
	return next, ok
}

// ApplyTransition validates moving order to status and returns the order
// with only Status replaced. The backend performs the real mutation.
func ApplyTransition(order Order, status Status) (Order, error) {
	if status == StatusCancelled {
		if !order.Status.Known() || order.Status.Terminal() {
			return order, &TransitionError{From: order.Status, To: status}
		}
		order.Status = status
		return order, nil
	}
	next, ok := NextStatus(order.Status)
	if !ok || next != status {
		return order, &TransitionError{From: order.Status, To: status}
	}
	order.Status = status
	return order, nil
}
