package main

import (
	"context"
	"os"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/zatekoja/clinicqueue/internal/adapters/database"
	"github.com/zatekoja/clinicqueue/internal/adapters/seed"
	"github.com/zatekoja/clinicqueue/internal/infrastructure/clients/postgres"
	"github.com/zatekoja/clinicqueue/internal/infrastructure/observability"
	"github.com/zatekoja/clinicqueue/pkg/config"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load config")
	}
	observability.InitLogger("clinic-seed", cfg.Environment)

	ctx := context.Background()

	pgClient, err := postgres.NewClient(ctx, &cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to DB")
	}
	defer pgClient.Close()

	if os.Getenv("RESET_DB") == "true" {
		log.Info().Msg("RESET_DB=true detected, truncating doctors before seeding")
		if _, err := pgClient.DB().ExecContext(ctx, `TRUNCATE TABLE doctors`); err != nil {
			log.Fatal().Err(err).Msg("Failed to reset tables")
		}
	}

	count := cfg.Clinic.SeedDoctors
	if len(os.Args) > 1 {
		if n, err := strconv.Atoi(os.Args[1]); err == nil && n >= 0 {
			count = n
		}
	}

	now := time.Now()
	day := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	doctors := seed.NewGenerator(cfg.Clinic.SeedValue, day).Doctors(count)

	roster := database.NewDoctorRosterAdapter(pgClient)
	if err := roster.SaveDoctors(ctx, doctors); err != nil {
		log.Fatal().Err(err).Msg("Failed to seed doctors")
	}

	log.Info().Int("doctors", len(doctors)).Msg("Seeding completed successfully")
}
