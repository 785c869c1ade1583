package repositories

import (
	"context"

	"github.com/zatekoja/clinicqueue/internal/domain/entities"
)

// DoctorRosterRepository supplies the doctors on duty. The queue engine only consumes a
// populated roster; it never creates doctors itself.
type DoctorRosterRepository interface {
	// ListDoctors returns every doctor on the roster
	ListDoctors(ctx context.Context) ([]*entities.Doctor, error)

	// GetDoctor returns a single roster entry
	GetDoctor(ctx context.Context, id string) (*entities.Doctor, error)
}
