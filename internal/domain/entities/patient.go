package entities

import (
	"fmt"
	"strings"
	"time"

	apperrors "github.com/zatekoja/clinicqueue/pkg/errors"
)

// Source is the channel a patient came in through
type Source string

const (
	SourceApp      Source = "App"
	SourceWalkIn   Source = "Walk-in"
	SourceWhatsApp Source = "WhatsApp"
)

// Sources lists the known channels
var Sources = []Source{SourceApp, SourceWalkIn, SourceWhatsApp}

// ParseSource maps loose spellings ("walkin", "WALK-IN") to a known Source.
// Unknown values are kept verbatim; they carry no priority adjustment.
func ParseSource(raw string) Source {
	normalized := strings.ToLower(strings.ReplaceAll(strings.TrimSpace(raw), "-", ""))
	switch normalized {
	case "app":
		return SourceApp
	case "walkin":
		return SourceWalkIn
	case "whatsapp":
		return SourceWhatsApp
	default:
		return Source(strings.TrimSpace(raw))
	}
}

// PatientStatus represents where a patient is in the visit lifecycle
type PatientStatus string

const (
	PatientStatusScheduled      PatientStatus = "scheduled"
	PatientStatusInQueue        PatientStatus = "in_queue"
	PatientStatusInConsultation PatientStatus = "in_consultation"
	PatientStatusDone           PatientStatus = "done"
)

// Patient is an admitted patient. Identity, times, source and condition are fixed at
// creation; Urgency and Priority are derived once and never recomputed.
type Patient struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	Contact     string         `json:"contact,omitempty"`
	ScheduledAt time.Time      `json:"scheduled_at"`
	ArrivedAt   time.Time      `json:"arrived_at"`
	Source      Source         `json:"source"`
	Condition   Condition      `json:"condition"`
	Urgency     int            `json:"urgency"`
	Priority    float64        `json:"priority"`
	Status      PatientStatus  `json:"status"`
	WaitTime    *time.Duration `json:"wait_time,omitempty"`
	Sequence    uint64         `json:"sequence"`
}

// PatientInput carries every field needed to create a Patient.
type PatientInput struct {
	ID          string
	Name        string
	Contact     string
	ScheduledAt time.Time
	ArrivedAt   time.Time
	Source      Source
	Condition   Condition
	Sequence    uint64
}

// NewPatient validates the input and derives urgency and priority.
func NewPatient(in PatientInput) (*Patient, error) {
	if strings.TrimSpace(in.ID) == "" {
		return nil, apperrors.NewValidationError("patient id is required")
	}
	if strings.TrimSpace(in.Name) == "" {
		return nil, apperrors.NewValidationError("patient name is required")
	}
	if in.ScheduledAt.IsZero() {
		return nil, apperrors.NewValidationError("scheduled time is required")
	}
	if in.ArrivedAt.IsZero() {
		return nil, apperrors.NewValidationError("arrival time is required")
	}
	if strings.TrimSpace(in.Condition.Name) == "" {
		return nil, apperrors.NewValidationError("medical condition is required")
	}

	urgency := Urgency(in.Condition)
	return &Patient{
		ID:          in.ID,
		Name:        in.Name,
		Contact:     in.Contact,
		ScheduledAt: in.ScheduledAt,
		ArrivedAt:   in.ArrivedAt,
		Source:      in.Source,
		Condition:   in.Condition,
		Urgency:     urgency,
		Priority:    ComputePriority(urgency, in.ScheduledAt, in.ArrivedAt, in.Source),
		Status:      PatientStatusScheduled,
		Sequence:    in.Sequence,
	}, nil
}

// StartConsultation moves the patient into consultation and records how long they waited.
func (p *Patient) StartConsultation(now time.Time) {
	wait := now.Sub(p.ArrivedAt)
	if wait < 0 {
		wait = 0
	}
	p.WaitTime = &wait
	p.Status = PatientStatusInConsultation
}

// Complete marks the visit as finished.
func (p *Patient) Complete() error {
	if p.Status != PatientStatusInConsultation {
		return apperrors.NewValidationError(fmt.Sprintf("patient %s is %s, not in consultation", p.ID, p.Status))
	}
	p.Status = PatientStatusDone
	return nil
}
