package services

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/zatekoja/clinicqueue/internal/domain/entities"
	"github.com/zatekoja/clinicqueue/internal/domain/providers"
	"github.com/zatekoja/clinicqueue/internal/infrastructure/observability"
	apperrors "github.com/zatekoja/clinicqueue/pkg/errors"
)

// AssignmentService routes patients to doctor queues and notifies them of the expected wait
type AssignmentService struct {
	registry *DoctorRegistry
	policy   *RoutingPolicy
	notifier providers.Notifier
	clock    providers.Clock
	metrics  *observability.Metrics
}

// NewAssignmentService creates a new assignment service. metrics may be nil.
func NewAssignmentService(
	registry *DoctorRegistry,
	policy *RoutingPolicy,
	notifier providers.Notifier,
	clock providers.Clock,
	metrics *observability.Metrics,
) *AssignmentService {
	if policy == nil {
		policy = NewRoutingPolicy(false)
	}
	if clock == nil {
		clock = providers.SystemClock{}
	}
	return &AssignmentService{
		registry: registry,
		policy:   policy,
		notifier: notifier,
		clock:    clock,
		metrics:  metrics,
	}
}

// Assign puts the patient on the best doctor's queue and emits exactly one notification.
// A routing failure is returned as an UNAVAILABLE AppError wrapping entities.ErrNoAvailableDoctor.
func (s *AssignmentService) Assign(ctx context.Context, patient *entities.Patient) (*entities.Assignment, error) {
	assignment, _, err := s.assign(ctx, patient)
	return assignment, err
}

// assign also returns a copy of the patient taken under the doctor's lock, safe to read
// after the patient has been handed to the queue.
func (s *AssignmentService) assign(ctx context.Context, patient *entities.Patient) (*entities.Assignment, *entities.Patient, error) {
	ctx, span := observability.StartSpan(ctx, "assignment.assign")
	defer span.End()

	if patient == nil {
		return nil, nil, apperrors.NewValidationError("patient cannot be nil")
	}

	logger := observability.LoggerFromContext(ctx).With().
		Str("patient_id", patient.ID).
		Str("condition", patient.Condition.Name).
		Float64("priority", patient.Priority).
		Logger()

	target, err := s.policy.Select(s.registry.Doctors(), patient)
	if err != nil {
		observability.RecordError(span, err)
		if errors.Is(err, entities.ErrNoAvailableDoctor) {
			observability.RecordRoutingFailure(ctx, s.metrics, patient.Condition.Name)
		}
		logger.Warn().Err(err).Msg("Patient could not be routed")
		return nil, nil, err
	}

	placed := target.PushAndEstimate(patient)
	queued := &placed.Patient
	size, wait := placed.QueueSize, placed.EstimatedWaitMinutes
	doctor := target.Doctor()

	assignment := &entities.Assignment{
		PatientID:            patient.ID,
		DoctorID:             doctor.ID,
		Specialization:       doctor.Specialization,
		EstimatedWaitMinutes: wait,
		QueueSize:            size,
		AssignedAt:           s.clock.Now(),
	}

	observability.SetSpanAttributes(span,
		attribute.String("doctor.id", doctor.ID),
		attribute.String("doctor.specialization", string(doctor.Specialization)),
		attribute.Int("assignment.estimated_wait", wait),
	)
	observability.RecordAssignment(ctx, s.metrics, string(doctor.Specialization), wait)

	logger.Info().
		Str("doctor_id", doctor.ID).
		Int("queue_size", size).
		Int("estimated_wait", wait).
		Msg("Patient assigned")

	s.notify(ctx, queued, assignment)

	return assignment, queued, nil
}

// notify emits the assignment event. Delivery errors are logged, never returned.
func (s *AssignmentService) notify(ctx context.Context, patient *entities.Patient, assignment *entities.Assignment) {
	if s.notifier == nil {
		return
	}

	event := &entities.AssignmentEvent{
		ID:                   uuid.New().String(),
		PatientID:            patient.ID,
		PatientName:          patient.Name,
		Contact:              patient.Contact,
		Source:               patient.Source,
		DoctorID:             assignment.DoctorID,
		EstimatedWaitMinutes: assignment.EstimatedWaitMinutes,
		Message:              entities.AssignmentMessage(assignment.DoctorID, assignment.EstimatedWaitMinutes),
		Timestamp:            assignment.AssignedAt,
	}

	if err := s.notifier.Notify(ctx, event); err != nil {
		observability.RecordNotificationFailure(ctx, s.metrics, "assignment")
		observability.LoggerFromContext(ctx).Error().
			Err(err).
			Str("patient_id", patient.ID).
			Str("doctor_id", assignment.DoctorID).
			Msg("Failed to notify patient")
	}
}
