package services_test

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zatekoja/clinicqueue/internal/application/services"
	"github.com/zatekoja/clinicqueue/internal/domain/entities"
	"github.com/zatekoja/clinicqueue/internal/domain/providers"
	apperrors "github.com/zatekoja/clinicqueue/pkg/errors"
)

func TestConsultationService_NextPatient(t *testing.T) {
	registry := newRegistry(t, doctor("DOC-GEN", entities.SpecializationGeneral, 10))
	dq, err := registry.Get("DOC-GEN")
	require.NoError(t, err)

	routine := newPatient("routine", entities.ConditionRoutinePrescription, entities.SourceApp, 1)
	severe := newPatient("severe", entities.ConditionSevereSymptoms, entities.SourceWalkIn, 2)
	dq.Push(routine)
	dq.Push(severe)

	service := services.NewConsultationService(registry, providers.FixedClock{T: clinicOpen.Add(30 * time.Minute)}, nil)

	p, ok, err := service.NextPatient(context.Background(), "DOC-GEN")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "severe", p.ID)
	assert.Equal(t, entities.PatientStatusInConsultation, p.Status)
	require.NotNil(t, p.WaitTime)
	assert.Equal(t, 30*time.Minute, *p.WaitTime)
	assert.Equal(t, 1, dq.Size())
	assert.Equal(t, 10, dq.EstimateWait())

	p, ok, err = service.NextPatient(context.Background(), "DOC-GEN")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "routine", p.ID)
	assert.Equal(t, 2, service.InConsultation())

	p, ok, err = service.NextPatient(context.Background(), "DOC-GEN")
	assert.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, p)
}

func TestConsultationService_UnknownDoctor(t *testing.T) {
	service := services.NewConsultationService(newRegistry(t), nil, nil)

	_, ok, err := service.NextPatient(context.Background(), "DOC-404")

	assert.False(t, ok)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeNotFound))
}

func TestConsultationService_Complete(t *testing.T) {
	registry := newRegistry(t, doctor("DOC-GEN", entities.SpecializationGeneral, 10))
	dq, _ := registry.Get("DOC-GEN")
	dq.Push(newPatient("p1", entities.ConditionMinorCheckup, entities.SourceApp, 1))

	service := services.NewConsultationService(registry, providers.FixedClock{T: clinicOpen}, nil)

	_, err := service.Complete(context.Background(), "p1")
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeNotFound), "not yet called in")

	_, ok, err := service.NextPatient(context.Background(), "DOC-GEN")
	require.NoError(t, err)
	require.True(t, ok)

	done, err := service.Complete(context.Background(), "p1")
	require.NoError(t, err)
	assert.Equal(t, entities.PatientStatusDone, done.Status)
	assert.Zero(t, service.InConsultation())

	_, err = service.Complete(context.Background(), "p1")
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeNotFound))
}

// Readers serialise snapshots and returned patients while the desk calls
// and completes the same patients. Run with -race.
func TestConsultationService_ConcurrentReadsAreCopies(t *testing.T) {
	const patients = 50
	registry := newRegistry(t, doctor("DOC-GEN", entities.SpecializationGeneral, 10))
	dq, err := registry.Get("DOC-GEN")
	require.NoError(t, err)
	for i := 0; i < patients; i++ {
		dq.Push(newPatient(fmt.Sprintf("p%02d", i), entities.ConditionMinorCheckup, entities.SourceApp, uint64(i+1)))
	}

	service := services.NewConsultationService(registry, providers.FixedClock{T: clinicOpen.Add(time.Hour)}, nil)
	ctx := context.Background()

	seen := make(chan *entities.Patient, patients)
	stop := make(chan struct{})
	var readers sync.WaitGroup

	readers.Add(1)
	go func() {
		defer readers.Done()
		for {
			select {
			case <-stop:
				return
			default:
			}
			_, err := json.Marshal(dq.Snapshot())
			assert.NoError(t, err)
		}
	}()

	readers.Add(1)
	go func() {
		defer readers.Done()
		for p := range seen {
			_, err := json.Marshal(p)
			assert.NoError(t, err)
		}
	}()

	var desk sync.WaitGroup
	for i := 0; i < patients; i++ {
		desk.Add(1)
		go func() {
			defer desk.Done()
			p, ok, err := service.NextPatient(ctx, "DOC-GEN")
			if !assert.NoError(t, err) || !assert.True(t, ok) {
				return
			}
			seen <- p
			done, err := service.Complete(ctx, p.ID)
			if assert.NoError(t, err) {
				assert.Equal(t, entities.PatientStatusDone, done.Status)
			}
			assert.Equal(t, entities.PatientStatusInConsultation, p.Status, "returned patient is a copy")
		}()
	}

	desk.Wait()
	close(seen)
	close(stop)
	readers.Wait()

	assert.Zero(t, dq.Size())
	assert.Zero(t, service.InConsultation())
}
