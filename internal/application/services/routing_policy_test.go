package services_test

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zatekoja/clinicqueue/internal/application/services"
	"github.com/zatekoja/clinicqueue/internal/domain/entities"
	"github.com/zatekoja/clinicqueue/internal/domain/queue"
	apperrors "github.com/zatekoja/clinicqueue/pkg/errors"
)

func queues(doctors ...*entities.Doctor) []*queue.DoctorQueue {
	out := make([]*queue.DoctorQueue, len(doctors))
	for i, d := range doctors {
		out[i] = queue.NewDoctorQueue(d)
	}
	return out
}

func fill(dq *queue.DoctorQueue, n int) {
	for i := 0; i < n; i++ {
		dq.Push(newPatient(fmt.Sprintf("%s-filler-%d", dq.ID(), i), entities.ConditionMinorCheckup, entities.SourceApp, uint64(1000+i)))
	}
}

func TestRequiredSpecialization(t *testing.T) {
	tests := []struct {
		condition string
		want      entities.Specialization
	}{
		{entities.ConditionChronicFollowUp, entities.SpecializationCardiology},
		{entities.ConditionAcutePain, entities.SpecializationOrthopedics},
		{entities.ConditionSevereSymptoms, entities.SpecializationNeurology},
		{entities.ConditionMinorCheckup, entities.SpecializationGeneral},
		{entities.ConditionRoutinePrescription, entities.SpecializationGeneral},
		{"acute pain", entities.SpecializationOrthopedics},
		{"Mystery Rash", entities.SpecializationGeneral},
	}

	for _, tt := range tests {
		t.Run(tt.condition, func(t *testing.T) {
			got := services.RequiredSpecialization(entities.Condition{Name: tt.condition, Severity: 3})
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestIsSuitable(t *testing.T) {
	pain := newPatient("1", entities.ConditionAcutePain, entities.SourceApp, 1)

	assert.True(t, services.IsSuitable(doctor("G", entities.SpecializationGeneral, 10), pain))
	assert.True(t, services.IsSuitable(doctor("O", entities.SpecializationOrthopedics, 10), pain))
	assert.False(t, services.IsSuitable(doctor("N", entities.SpecializationNeurology, 10), pain))
	assert.False(t, services.IsSuitable(doctor("P", entities.SpecializationPediatrics, 10), pain))
}

func TestRoutingPolicy_Select(t *testing.T) {
	policy := services.NewRoutingPolicy(false)

	t.Run("prefers idle specialist over busy general doctor", func(t *testing.T) {
		docs := queues(
			doctor("DOC-GEN", entities.SpecializationGeneral, 10),
			doctor("DOC-ORTHO", entities.SpecializationOrthopedics, 15),
		)
		fill(docs[0], 5)

		got, err := policy.Select(docs, newPatient("1", entities.ConditionAcutePain, entities.SourceApp, 1))
		require.NoError(t, err)
		assert.Equal(t, "DOC-ORTHO", got.ID())
	})

	t.Run("general doctor accepts specialist conditions when less loaded", func(t *testing.T) {
		docs := queues(
			doctor("DOC-GEN", entities.SpecializationGeneral, 10),
			doctor("DOC-CARD", entities.SpecializationCardiology, 20),
		)
		fill(docs[1], 1)

		got, err := policy.Select(docs, newPatient("1", entities.ConditionChronicFollowUp, entities.SourceApp, 1))
		require.NoError(t, err)
		assert.Equal(t, "DOC-GEN", got.ID())
	})

	t.Run("falls back to general when no neurologist exists", func(t *testing.T) {
		docs := queues(
			doctor("DOC-PED", entities.SpecializationPediatrics, 10),
			doctor("DOC-GEN", entities.SpecializationGeneral, 10),
		)

		got, err := policy.Select(docs, newPatient("1", entities.ConditionSevereSymptoms, entities.SourceWalkIn, 1))
		require.NoError(t, err)
		assert.Equal(t, "DOC-GEN", got.ID())
	})

	t.Run("no general and no matching specialist", func(t *testing.T) {
		docs := queues(
			doctor("DOC-PED", entities.SpecializationPediatrics, 10),
			doctor("DOC-CARD", entities.SpecializationCardiology, 10),
		)

		got, err := policy.Select(docs, newPatient("1", entities.ConditionAcutePain, entities.SourceApp, 1))
		assert.Nil(t, got)
		require.Error(t, err)
		assert.True(t, errors.Is(err, entities.ErrNoAvailableDoctor))
		assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeUnavailable))
	})

	t.Run("empty registry", func(t *testing.T) {
		_, err := policy.Select(nil, newPatient("1", entities.ConditionMinorCheckup, entities.SourceApp, 1))
		assert.ErrorIs(t, err, entities.ErrNoAvailableDoctor)
	})

	t.Run("unknown condition routes to general", func(t *testing.T) {
		docs := queues(
			doctor("DOC-NEURO", entities.SpecializationNeurology, 5),
			doctor("DOC-GEN", entities.SpecializationGeneral, 30),
		)

		got, err := policy.Select(docs, newPatient("1", "Mystery Rash", entities.SourceApp, 1))
		require.NoError(t, err)
		assert.Equal(t, "DOC-GEN", got.ID())
	})

	t.Run("equal waits tie-break on doctor id", func(t *testing.T) {
		docs := queues(
			doctor("DOC-3", entities.SpecializationGeneral, 10),
			doctor("DOC-1", entities.SpecializationGeneral, 20),
			doctor("DOC-2", entities.SpecializationGeneral, 5),
		)
		fill(docs[0], 2) // 20 minutes
		fill(docs[1], 1) // 20 minutes
		fill(docs[2], 4) // 20 minutes

		got, err := policy.Select(docs, newPatient("1", entities.ConditionMinorCheckup, entities.SourceApp, 1))
		require.NoError(t, err)
		assert.Equal(t, "DOC-1", got.ID())
	})
}

func TestRoutingPolicy_RespectDailyCapacity(t *testing.T) {
	full := doctor("DOC-ORTHO", entities.SpecializationOrthopedics, 5)
	full.DailyCapacity = 1
	docs := queues(full, doctor("DOC-GEN", entities.SpecializationGeneral, 30))
	fill(docs[0], 1)
	fill(docs[1], 3)

	pain := newPatient("1", entities.ConditionAcutePain, entities.SourceApp, 1)

	got, err := services.NewRoutingPolicy(false).Select(docs, pain)
	require.NoError(t, err)
	assert.Equal(t, "DOC-ORTHO", got.ID(), "capacity ignored by default")

	got, err = services.NewRoutingPolicy(true).Select(docs, pain)
	require.NoError(t, err)
	assert.Equal(t, "DOC-GEN", got.ID())

	onlyFull := queues(full)
	fill(onlyFull[0], 1)
	_, err = services.NewRoutingPolicy(true).Select(onlyFull, pain)
	assert.ErrorIs(t, err, entities.ErrNoAvailableDoctor)

	t.Run("seen patients still count against the day", func(t *testing.T) {
		_, ok := onlyFull[0].PopHighest()
		require.True(t, ok)
		require.Zero(t, onlyFull[0].Size())

		_, err := services.NewRoutingPolicy(true).Select(onlyFull, pain)
		assert.ErrorIs(t, err, entities.ErrNoAvailableDoctor)
	})

	t.Run("capacity resets the next day", func(t *testing.T) {
		tomorrow := newPatient("2", entities.ConditionAcutePain, entities.SourceApp, 2)
		tomorrow.ArrivedAt = clinicOpen.Add(24 * time.Hour)

		got, err := services.NewRoutingPolicy(true).Select(onlyFull, tomorrow)
		require.NoError(t, err)
		assert.Equal(t, "DOC-ORTHO", got.ID())
	})
}
