package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/budgetease/api/internal/access"
	"github.com/budgetease/api/internal/auth"
	"github.com/budgetease/api/internal/config"
	"github.com/budgetease/api/internal/db"
	"github.com/budgetease/api/internal/repo"
)

// Provisionne les pages, la matrice d'accès par défaut et, si
// SEED_ADMIN_EMAIL / SEED_ADMIN_PASSWORD sont définis, un compte
// administrateur initial. Rejouable sans effet de bord.
func main() {
	if err := run(); err != nil {
		log.Fatal().Err(err).Msg("seed en échec")
	}
}

func run() error {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339})

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	ctx := context.Background()

	pool, err := db.NewPool(ctx, cfg.DBDSN)
	if err != nil {
		return fmt.Errorf("db: %w", err)
	}
	defer pool.Close()

	queries := repo.New(pool)
	accessService := access.NewService(access.NewRepository(pool), queries)

	if err := accessService.SeedPages(ctx, access.DefaultPages()); err != nil {
		return fmt.Errorf("pages: %w", err)
	}
	log.Info().Msg("pages et accès provisionnés")

	adminEmail := os.Getenv("SEED_ADMIN_EMAIL")
	adminPassword := os.Getenv("SEED_ADMIN_PASSWORD")
	if adminEmail == "" || adminPassword == "" {
		log.Info().Msg("pas de compte administrateur demandé")
		return nil
	}

	hash, err := auth.Hash(adminPassword)
	if err != nil {
		return fmt.Errorf("hash: %w", err)
	}

	_, err = queries.CreateUser(ctx, repo.CreateUserParams{
		ID:           uuid.New(),
		Name:         "Administrateur",
		Email:        adminEmail,
		PasswordHash: hash,
		Role:         repo.RoleAdmin,
		Department:   repo.DepartmentNone,
	})
	if err != nil {
		if errors.Is(err, repo.ErrDuplicateEmail) {
			log.Info().Str("email", adminEmail).Msg("compte administrateur déjà présent")
			return nil
		}
		return fmt.Errorf("admin: %w", err)
	}

	log.Info().Str("email", adminEmail).Msg("compte administrateur créé")
	return nil
}
