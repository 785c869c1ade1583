package services

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/zatekoja/clinicqueue/internal/domain/entities"
	"github.com/zatekoja/clinicqueue/internal/domain/queue"
	"github.com/zatekoja/clinicqueue/internal/domain/repositories"
	"github.com/zatekoja/clinicqueue/internal/infrastructure/observability"
	apperrors "github.com/zatekoja/clinicqueue/pkg/errors"
)

// DoctorRegistry maps doctor ids to their live queues. It is read-mostly after setup;
// registration takes the write lock, lookups the read lock.
type DoctorRegistry struct {
	mu     sync.RWMutex
	queues map[string]*queue.DoctorQueue
}

// NewDoctorRegistry creates an empty registry
func NewDoctorRegistry() *DoctorRegistry {
	return &DoctorRegistry{
		queues: make(map[string]*queue.DoctorQueue),
	}
}

// Register validates the doctor and gives them an empty queue
func (r *DoctorRegistry) Register(doctor *entities.Doctor) (*queue.DoctorQueue, error) {
	if doctor == nil {
		return nil, apperrors.NewValidationError("doctor cannot be nil")
	}
	if err := doctor.Validate(); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.queues[doctor.ID]; exists {
		return nil, apperrors.NewConflictError(fmt.Sprintf("doctor %s is already registered", doctor.ID))
	}

	dq := queue.NewDoctorQueue(doctor)
	r.queues[doctor.ID] = dq
	return dq, nil
}

// LoadRoster registers every doctor the roster returns and reports how many were added
func (r *DoctorRegistry) LoadRoster(ctx context.Context, roster repositories.DoctorRosterRepository) (int, error) {
	doctors, err := roster.ListDoctors(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list doctors: %w", err)
	}

	for i, doctor := range doctors {
		if _, err := r.Register(doctor); err != nil {
			return i, err
		}
	}

	observability.LoggerFromContext(ctx).Info().
		Int("doctors", len(doctors)).
		Msg("Doctor roster loaded")

	return len(doctors), nil
}

// Get returns the queue for a doctor
func (r *DoctorRegistry) Get(id string) (*queue.DoctorQueue, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	dq, ok := r.queues[id]
	if !ok {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("doctor %s not found", id))
	}
	return dq, nil
}

// Doctors returns every queue ordered by doctor id
func (r *DoctorRegistry) Doctors() []*queue.DoctorQueue {
	r.mu.RLock()
	out := make([]*queue.DoctorQueue, 0, len(r.queues))
	for _, dq := range r.queues {
		out = append(out, dq)
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].ID() < out[j].ID() })
	return out
}

// Len returns the number of registered doctors
func (r *DoctorRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.queues)
}
