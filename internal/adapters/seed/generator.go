// Package seed generates a reproducible synthetic clinic: a doctor roster and a stream of
// arriving patients. It backs the default roster source and the simulate command.
package seed

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/zatekoja/clinicqueue/internal/domain/entities"
	apperrors "github.com/zatekoja/clinicqueue/pkg/errors"
)

// Generator draws doctors and patients from a seeded source. It is safe for concurrent use.
type Generator struct {
	mu  sync.Mutex
	rng *rand.Rand
	day time.Time
}

// NewGenerator creates a generator for the clinic day containing day. The same seed and
// day always produce the same sequence.
func NewGenerator(seed int64, day time.Time) *Generator {
	y, m, d := day.Date()
	return &Generator{
		rng: rand.New(rand.NewSource(seed)),
		day: time.Date(y, m, d, 0, 0, 0, 0, day.Location()),
	}
}

func (g *Generator) intn(n int) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.rng.Intn(n)
}

// between returns a uniform integer in [lo, hi]
func (g *Generator) between(lo, hi int) int {
	return lo + g.intn(hi-lo+1)
}

// Doctors generates n doctors DOC-1..DOC-n with random specializations, consultation
// times of 10-25 minutes, daily capacity of 30-50 and morning and afternoon shifts.
func (g *Generator) Doctors(n int) []*entities.Doctor {
	doctors := make([]*entities.Doctor, 0, n)
	for i := 1; i <= n; i++ {
		doctors = append(doctors, &entities.Doctor{
			ID:                     fmt.Sprintf("DOC-%d", i),
			Specialization:         entities.Specializations[g.intn(len(entities.Specializations))],
			Availability:           g.shifts(),
			AvgConsultationMinutes: g.between(10, 25),
			DailyCapacity:          g.between(30, 50),
		})
	}
	return doctors
}

func (g *Generator) shifts() []entities.AvailabilityWindow {
	return []entities.AvailabilityWindow{
		{Start: g.day.Add(9 * time.Hour), End: g.day.Add(12 * time.Hour)},
		{Start: g.day.Add(15 * time.Hour), End: g.day.Add(18 * time.Hour)},
	}
}

// Arrival is a synthetic check-in
type Arrival struct {
	Name        string
	ScheduledAt time.Time
	Source      entities.Source
	Condition   entities.Condition
}

// Arrival draws the i-th patient, scheduled 0-60 minutes after now.
func (g *Generator) Arrival(i int, now time.Time) Arrival {
	return Arrival{
		Name:        fmt.Sprintf("Patient_%d", i),
		ScheduledAt: now.Add(time.Duration(g.between(0, 60)) * time.Minute),
		Source:      entities.Sources[g.intn(len(entities.Sources))],
		Condition:   entities.ConditionCatalog[g.intn(len(entities.ConditionCatalog))],
	}
}

// Roster serves a fixed set of doctors as a DoctorRosterRepository
type Roster struct {
	doctors []*entities.Doctor
	byID    map[string]*entities.Doctor
}

// NewRoster wraps doctors as a roster
func NewRoster(doctors []*entities.Doctor) *Roster {
	byID := make(map[string]*entities.Doctor, len(doctors))
	for _, d := range doctors {
		byID[d.ID] = d
	}
	return &Roster{doctors: doctors, byID: byID}
}

// ListDoctors returns the roster in generation order
func (r *Roster) ListDoctors(ctx context.Context) ([]*entities.Doctor, error) {
	out := make([]*entities.Doctor, len(r.doctors))
	copy(out, r.doctors)
	return out, nil
}

// GetDoctor returns the doctor with the given id
func (r *Roster) GetDoctor(ctx context.Context, id string) (*entities.Doctor, error) {
	d, ok := r.byID[id]
	if !ok {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("doctor with id %s not found", id))
	}
	return d, nil
}
