package providers

import (
	"context"

	"github.com/zatekoja/clinicqueue/internal/domain/entities"
)

// EventBus publishes assignment events to interested listeners (front-desk boards,
// messaging workers)
type EventBus interface {
	// Publish publishes an event to all subscribers of the channel
	Publish(ctx context.Context, channel string, event *entities.AssignmentEvent) error

	// Subscribe subscribes to events on a channel until ctx is done
	Subscribe(ctx context.Context, channel string) (<-chan *entities.AssignmentEvent, error)

	// Unsubscribe drops all subscribers of a channel
	Unsubscribe(ctx context.Context, channel string) error

	// Close closes the event bus and all subscriptions
	Close() error
}

// EventChannel constants for assignment events
const (
	// EventChannelAssignments carries every assignment
	EventChannelAssignments = "clinic:assignments"

	// EventChannelDoctorPrefix is the prefix for doctor-specific channels
	EventChannelDoctorPrefix = "clinic:doctor:"
)

// GetDoctorChannel returns the channel name for a specific doctor
func GetDoctorChannel(doctorID string) string {
	return EventChannelDoctorPrefix + doctorID
}
