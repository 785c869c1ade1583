package services

import (
	"fmt"

	"github.com/zatekoja/clinicqueue/internal/domain/entities"
	"github.com/zatekoja/clinicqueue/internal/domain/queue"
	apperrors "github.com/zatekoja/clinicqueue/pkg/errors"
)

// conditionSpecializations maps the conditions that need a specialist. Anything else goes
// to General.
var conditionSpecializations = map[string]entities.Specialization{
	entities.ConditionChronicFollowUp: entities.SpecializationCardiology,
	entities.ConditionAcutePain:       entities.SpecializationOrthopedics,
	entities.ConditionSevereSymptoms:  entities.SpecializationNeurology,
}

// RequiredSpecialization returns the specialization a condition should be seen by
func RequiredSpecialization(condition entities.Condition) entities.Specialization {
	canonical, _ := entities.LookupCondition(condition.Name)
	if spec, ok := conditionSpecializations[canonical.Name]; ok {
		return spec
	}
	return entities.SpecializationGeneral
}

// IsSuitable reports whether the doctor can see the patient: General doctors accept
// everyone, specialists accept their own conditions.
func IsSuitable(doctor *entities.Doctor, patient *entities.Patient) bool {
	return doctor.Specialization == entities.SpecializationGeneral ||
		doctor.Specialization == RequiredSpecialization(patient.Condition)
}

// RoutingPolicy selects the doctor queue a patient should join
type RoutingPolicy struct {
	respectDailyCapacity bool
}

// NewRoutingPolicy creates a routing policy. With respectDailyCapacity set, doctors who
// have already been assigned their daily capacity on the patient's arrival day are not
// considered, even if some of those patients have since been seen.
func NewRoutingPolicy(respectDailyCapacity bool) *RoutingPolicy {
	return &RoutingPolicy{respectDailyCapacity: respectDailyCapacity}
}

// Select picks the suitable doctor with the shortest estimated wait, falling back to any
// General doctor when no suitable doctor exists. Ties go to the lowest doctor id.
func (p *RoutingPolicy) Select(doctors []*queue.DoctorQueue, patient *entities.Patient) (*queue.DoctorQueue, error) {
	if patient == nil {
		return nil, apperrors.NewValidationError("patient cannot be nil")
	}

	candidates := p.filter(doctors, patient, func(d *entities.Doctor) bool {
		return IsSuitable(d, patient)
	})
	if len(candidates) == 0 {
		candidates = p.filter(doctors, patient, func(d *entities.Doctor) bool {
			return d.Specialization == entities.SpecializationGeneral
		})
	}
	if len(candidates) == 0 {
		return nil, apperrors.NewUnavailableError(
			fmt.Sprintf("no %s or General doctor can see patient %s", RequiredSpecialization(patient.Condition), patient.ID),
			entities.ErrNoAvailableDoctor,
		)
	}

	return leastLoaded(candidates), nil
}

func (p *RoutingPolicy) filter(doctors []*queue.DoctorQueue, patient *entities.Patient, keep func(*entities.Doctor) bool) []*queue.DoctorQueue {
	var out []*queue.DoctorQueue
	for _, dq := range doctors {
		if !keep(dq.Doctor()) {
			continue
		}
		if p.respectDailyCapacity && dq.AtCapacity(patient.ArrivedAt) {
			continue
		}
		out = append(out, dq)
	}
	return out
}

func leastLoaded(candidates []*queue.DoctorQueue) *queue.DoctorQueue {
	var (
		best     *queue.DoctorQueue
		bestWait int
	)
	for _, dq := range candidates {
		wait := dq.EstimateWait()
		if best == nil || wait < bestWait || (wait == bestWait && dq.ID() < best.ID()) {
			best = dq
			bestWait = wait
		}
	}
	return best
}
