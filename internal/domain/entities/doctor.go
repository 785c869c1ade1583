package entities

import (
	"fmt"
	"strings"
	"time"

	apperrors "github.com/zatekoja/clinicqueue/pkg/errors"
)

// Specialization is a doctor's medical domain
type Specialization string

const (
	SpecializationGeneral     Specialization = "General"
	SpecializationPediatrics  Specialization = "Pediatrics"
	SpecializationCardiology  Specialization = "Cardiology"
	SpecializationNeurology   Specialization = "Neurology"
	SpecializationOrthopedics Specialization = "Orthopedics"
)

// Specializations lists all known specializations
var Specializations = []Specialization{
	SpecializationGeneral,
	SpecializationPediatrics,
	SpecializationCardiology,
	SpecializationNeurology,
	SpecializationOrthopedics,
}

// IsValid reports whether s is a known specialization
func (s Specialization) IsValid() bool {
	for _, known := range Specializations {
		if s == known {
			return true
		}
	}
	return false
}

// AvailabilityWindow is a block of time a doctor is on shift. The queue engine carries
// these through but does not schedule against them.
type AvailabilityWindow struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Doctor describes a doctor on the clinic roster
type Doctor struct {
	ID                     string               `json:"id" db:"id"`
	Name                   string               `json:"name,omitempty" db:"name"`
	Specialization         Specialization       `json:"specialization" db:"specialization"`
	Availability           []AvailabilityWindow `json:"availability" db:"availability"`
	AvgConsultationMinutes int                  `json:"avg_consultation_minutes" db:"avg_consultation_minutes"`
	DailyCapacity          int                  `json:"daily_capacity" db:"daily_capacity"`
}

// Validate checks the roster entry before it is registered
func (d *Doctor) Validate() error {
	if strings.TrimSpace(d.ID) == "" {
		return apperrors.NewValidationError("doctor id is required")
	}
	if !d.Specialization.IsValid() {
		return apperrors.NewValidationError(fmt.Sprintf("doctor %s has unknown specialization %q", d.ID, d.Specialization))
	}
	if d.AvgConsultationMinutes <= 0 {
		return apperrors.NewValidationError(fmt.Sprintf("doctor %s must have a positive average consultation time", d.ID))
	}
	if d.DailyCapacity < 0 {
		return apperrors.NewValidationError(fmt.Sprintf("doctor %s has negative daily capacity", d.ID))
	}
	for _, w := range d.Availability {
		if !w.End.After(w.Start) {
			return apperrors.NewValidationError(fmt.Sprintf("doctor %s has an availability window that ends before it starts", d.ID))
		}
	}
	return nil
}
