// Command simulate runs a clinic day in-process: it seeds a roster, admits a batch of
// synthetic arrivals and prints where each patient was routed.
package main

import (
	"context"
	"flag"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/zatekoja/clinicqueue/internal/adapters/seed"
	"github.com/zatekoja/clinicqueue/internal/application/services"
	"github.com/zatekoja/clinicqueue/internal/domain/providers"
	"github.com/zatekoja/clinicqueue/internal/infrastructure/notifications"
	"github.com/zatekoja/clinicqueue/internal/infrastructure/observability"
)

func main() {
	doctors := flag.Int("doctors", 50, "number of doctors on the roster")
	patients := flag.Int("patients", 100, "number of arrivals to admit")
	seedValue := flag.Int64("seed", time.Now().UnixNano(), "random seed")
	env := flag.String("env", "development", "logger environment")
	flag.Parse()

	observability.InitLogger("clinic-simulate", *env)
	ctx := context.Background()

	now := time.Now()
	day := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	gen := seed.NewGenerator(*seedValue, day)

	registry := services.NewDoctorRegistry()
	if _, err := registry.LoadRoster(ctx, seed.NewRoster(gen.Doctors(*doctors))); err != nil {
		log.Fatal().Err(err).Msg("Failed to load roster")
	}

	clock := providers.SystemClock{}
	assigner := services.NewAssignmentService(
		registry,
		services.NewRoutingPolicy(false),
		notifications.NewLogNotifier(log.Logger),
		clock,
		nil,
	)
	admissions := services.NewAdmissionService(assigner, clock)

	var assigned, unrouted int
	for i := 0; i < *patients; i++ {
		arrival := gen.Arrival(i, now)
		scheduled := arrival.ScheduledAt

		admission, err := admissions.Admit(ctx, services.AdmitRequest{
			Name:        arrival.Name,
			ScheduledAt: &scheduled,
			Source:      string(arrival.Source),
			Condition:   arrival.Condition.Name,
		})
		if err != nil {
			unrouted++
			log.Warn().Err(err).Str("patient", arrival.Name).Msg("Patient not assigned")
			continue
		}

		assigned++
		log.Info().Msgf("Patient %s (Priority: %g) assigned to Dr. %s",
			admission.Patient.Name, admission.Patient.Priority, admission.Assignment.DoctorID)
	}

	for _, dq := range registry.Doctors() {
		if dq.Size() == 0 {
			continue
		}
		log.Info().
			Str("doctor_id", dq.ID()).
			Str("specialization", string(dq.Doctor().Specialization)).
			Int("queue_size", dq.Size()).
			Int("estimated_wait", dq.EstimateWait()).
			Msg("Queue")
	}

	log.Info().Int("assigned", assigned).Int("unrouted", unrouted).Msg("Simulation finished")
}
