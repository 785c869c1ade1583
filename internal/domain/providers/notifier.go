package providers

import (
	"context"

	"github.com/zatekoja/clinicqueue/internal/domain/entities"
)

// Notifier delivers the assignment notice to the patient. Callers treat delivery as
// fire-and-forget: a returned error is logged, never propagated into the assignment.
type Notifier interface {
	Notify(ctx context.Context, event *entities.AssignmentEvent) error
}

// NotifierFunc adapts a function to Notifier
type NotifierFunc func(ctx context.Context, event *entities.AssignmentEvent) error

// Notify calls f
func (f NotifierFunc) Notify(ctx context.Context, event *entities.AssignmentEvent) error {
	return f(ctx, event)
}
