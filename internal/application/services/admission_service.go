package services

import (
	"context"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/zatekoja/clinicqueue/internal/domain/entities"
	"github.com/zatekoja/clinicqueue/internal/domain/providers"
)

// AdmitRequest is what the front desk (or the app) knows about an arriving patient
type AdmitRequest struct {
	Name        string     `json:"name"`
	Contact     string     `json:"contact"`
	ScheduledAt *time.Time `json:"scheduled_at,omitempty"`
	Source      string     `json:"source"`
	Condition   string     `json:"condition"`
}

// Admission is the patient created at check-in together with their assignment
type Admission struct {
	Patient    *entities.Patient    `json:"patient"`
	Assignment *entities.Assignment `json:"assignment"`
}

// AdmissionService stamps arrivals, creates patients and hands them to the assignment service
type AdmissionService struct {
	assigner *AssignmentService
	clock    providers.Clock
	newID    func() string
	sequence atomic.Uint64
}

// NewAdmissionService creates a new admission service
func NewAdmissionService(assigner *AssignmentService, clock providers.Clock) *AdmissionService {
	if clock == nil {
		clock = providers.SystemClock{}
	}
	return &AdmissionService{
		assigner: assigner,
		clock:    clock,
		newID:    func() string { return uuid.New().String() },
	}
}

// Admit checks the patient in and assigns them to a doctor. Walk-ins without an
// appointment are treated as scheduled at their arrival time. A missing or unknown
// condition is triaged at the lowest severity and routed to General.
func (s *AdmissionService) Admit(ctx context.Context, req AdmitRequest) (*Admission, error) {
	arrived := s.clock.Now()
	scheduled := arrived
	if req.ScheduledAt != nil && !req.ScheduledAt.IsZero() {
		scheduled = *req.ScheduledAt
	}

	condition, _ := entities.LookupCondition(req.Condition)

	patient, err := entities.NewPatient(entities.PatientInput{
		ID:          s.newID(),
		Name:        strings.TrimSpace(req.Name),
		Contact:     strings.TrimSpace(req.Contact),
		ScheduledAt: scheduled,
		ArrivedAt:   arrived,
		Source:      entities.ParseSource(req.Source),
		Condition:   condition,
		Sequence:    s.sequence.Add(1),
	})
	if err != nil {
		return nil, err
	}

	assignment, queued, err := s.assigner.assign(ctx, patient)
	if err != nil {
		return nil, err
	}

	return &Admission{Patient: queued, Assignment: assignment}, nil
}
