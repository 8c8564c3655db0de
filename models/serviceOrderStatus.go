package models

import (
	"fmt"
	"time"
)

// serviceOrderStatusFlow is the full legal-transition table. Cancelled and
// Delivered are terminal.
var serviceOrderStatusFlow = map[ServiceOrderStatus][]ServiceOrderStatus{
	ServiceOrderStatusScheduled: {
		ServiceOrderStatusInProgress,
		ServiceOrderStatusCompleted,
		ServiceOrderStatusCancelled,
	},
	ServiceOrderStatusInProgress: {
		ServiceOrderStatusCompleted,
		ServiceOrderStatusAwaitingParts,
		ServiceOrderStatusCancelled,
	},
	ServiceOrderStatusAwaitingParts: {
		ServiceOrderStatusInProgress,
		ServiceOrderStatusCompleted,
		ServiceOrderStatusCancelled,
	},
	ServiceOrderStatusCompleted: {
		ServiceOrderStatusDelivered,
	},
	ServiceOrderStatusCancelled: {},
	ServiceOrderStatusDelivered: {},
}

// InvalidStatusTransitionError names both states so the caller can report the
// rejected request to the operator. Not retryable.
type InvalidStatusTransitionError struct {
	From ServiceOrderStatus
	To   ServiceOrderStatus
}

func (e *InvalidStatusTransitionError) Error() string {
	return fmt.Sprintf("invalid status transition from %s to %s", e.From, e.To)
}

// ValidateStatusTransition checks the requested change against the
// legal-transition table.
func ValidateStatusTransition(from, to ServiceOrderStatus) error {
	for _, allowed := range serviceOrderStatusFlow[from] {
		if allowed == to {
			return nil
		}
	}
	return &InvalidStatusTransitionError{From: from, To: to}
}

// applyStatusChange sets the new status and stamps the transition timestamps.
// Stamps are written once: a later identical transition never overwrites them.
func (so *ServiceOrder) applyStatusChange(to ServiceOrderStatus, now time.Time) {
	so.CurrentStatus = to

	switch to {
	case ServiceOrderStatusInProgress:
		if so.StartedAt == nil {
			t := now
			so.StartedAt = &t
		}
	case ServiceOrderStatusCompleted, ServiceOrderStatusDelivered:
		if so.CompletedAt == nil {
			t := now
			so.CompletedAt = &t
		}
	}
}
