package services_test

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/zatekoja/clinicqueue/internal/domain/entities"
)

var clinicOpen = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) Notify(ctx context.Context, event *entities.AssignmentEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

type MockDoctorRoster struct {
	mock.Mock
}

func (m *MockDoctorRoster) ListDoctors(ctx context.Context) ([]*entities.Doctor, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.Doctor), args.Error(1)
}

func (m *MockDoctorRoster) GetDoctor(ctx context.Context, id string) (*entities.Doctor, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Doctor), args.Error(1)
}

func doctor(id string, spec entities.Specialization, avgMinutes int) *entities.Doctor {
	return &entities.Doctor{
		ID:                     id,
		Specialization:         spec,
		AvgConsultationMinutes: avgMinutes,
		DailyCapacity:          40,
	}
}

func newPatient(id, condition string, source entities.Source, seq uint64) *entities.Patient {
	c, _ := entities.LookupCondition(condition)
	p, err := entities.NewPatient(entities.PatientInput{
		ID:          id,
		Name:        "Patient " + id,
		Contact:     "+2348000000" + id,
		ScheduledAt: clinicOpen,
		ArrivedAt:   clinicOpen,
		Source:      source,
		Condition:   c,
		Sequence:    seq,
	})
	if err != nil {
		panic(err)
	}
	return p
}
