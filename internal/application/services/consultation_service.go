package services

import (
	"context"
	"fmt"
	"sync"

	"github.com/zatekoja/clinicqueue/internal/domain/entities"
	"github.com/zatekoja/clinicqueue/internal/domain/providers"
	"github.com/zatekoja/clinicqueue/internal/infrastructure/observability"
	apperrors "github.com/zatekoja/clinicqueue/pkg/errors"
)

// ConsultationService calls patients off doctor queues and tracks who is being seen
type ConsultationService struct {
	registry *DoctorRegistry
	clock    providers.Clock
	metrics  *observability.Metrics

	mu     sync.Mutex
	active map[string]*entities.Patient
}

// NewConsultationService creates a new consultation service
func NewConsultationService(registry *DoctorRegistry, clock providers.Clock, metrics *observability.Metrics) *ConsultationService {
	if clock == nil {
		clock = providers.SystemClock{}
	}
	return &ConsultationService{
		registry: registry,
		clock:    clock,
		metrics:  metrics,
		active:   make(map[string]*entities.Patient),
	}
}

// NextPatient removes the highest-priority patient from the doctor's queue and starts
// their consultation. ok is false when the queue is empty. The returned patient is a copy.
func (s *ConsultationService) NextPatient(ctx context.Context, doctorID string) (patient *entities.Patient, ok bool, err error) {
	dq, err := s.registry.Get(doctorID)
	if err != nil {
		return nil, false, err
	}

	patient, ok = dq.PopHighest()
	if !ok {
		return nil, false, nil
	}

	s.mu.Lock()
	patient.StartConsultation(s.clock.Now())
	s.active[patient.ID] = patient
	seen := *patient
	s.mu.Unlock()

	observability.RecordConsultationStarted(ctx, s.metrics, doctorID)
	observability.LoggerFromContext(ctx).Info().
		Str("doctor_id", doctorID).
		Str("patient_id", seen.ID).
		Dur("wait_time", *seen.WaitTime).
		Msg("Consultation started")

	return &seen, true, nil
}

// Complete marks an in-progress consultation as done
func (s *ConsultationService) Complete(ctx context.Context, patientID string) (*entities.Patient, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	patient, ok := s.active[patientID]
	if !ok {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("patient %s is not in consultation", patientID))
	}
	if err := patient.Complete(); err != nil {
		return nil, err
	}
	delete(s.active, patientID)
	done := *patient

	observability.LoggerFromContext(ctx).Info().
		Str("patient_id", patientID).
		Msg("Consultation completed")

	return &done, nil
}

// InConsultation returns the number of patients currently being seen
func (s *ConsultationService) InConsultation() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.active)
}
