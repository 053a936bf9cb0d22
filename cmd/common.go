package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/kozaktomas/facescan/internal/config"
	"github.com/kozaktomas/facescan/internal/database"
	"github.com/kozaktomas/facescan/internal/database/mariadb"
	"github.com/kozaktomas/facescan/internal/database/postgres"
	"github.com/kozaktomas/facescan/internal/face"
	"github.com/kozaktomas/facescan/internal/matcher"
	"github.com/kozaktomas/facescan/internal/profile"
)

// openProfileStore connects to PostgreSQL and registers the profile repository.
func openProfileStore(ctx context.Context, cfg *config.Config) (*postgres.Pool, *postgres.ProfileRepository, error) {
	if cfg.Database.URL == "" {
		return nil, nil, errors.New("DATABASE_URL environment variable is required")
	}

	pool, err := postgres.Open(ctx, &cfg.Database)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize PostgreSQL: %w", err)
	}

	repo := postgres.NewProfileRepository(pool)
	database.RegisterPostgresBackend(
		func() database.ProfileReader { return repo },
		func() database.ProfileWriter { return repo },
	)
	return pool, repo, nil
}

// loadProfile reads the reference profile from PROFILE_PATH, then from
// PhotoPrism's MariaDB, then from PostgreSQL.
func loadProfile(ctx context.Context, cfg *config.Config, quiet bool) (face.Profile, error) {
	if cfg.Profile.Path != "" {
		if !quiet {
			fmt.Printf("Loading profile from %s...\n", cfg.Profile.Path)
		}
		return profile.LoadFile(cfg.Profile.Path)
	}

	if cfg.Profile.PhotoPrismDatabaseURL != "" {
		if !quiet {
			fmt.Printf("Loading profile from PhotoPrism face markers...\n")
		}
		reader, err := mariadb.Open(ctx, cfg.Profile.PhotoPrismDatabaseURL)
		if err != nil {
			return nil, err
		}
		defer reader.Close()
		return profile.Load(ctx, "", reader)
	}

	if !quiet {
		fmt.Printf("Loading profile from PostgreSQL...\n")
	}
	pool, _, err := openProfileStore(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("%w: set PROFILE_PATH, PHOTOPRISM_DATABASE_URL or DATABASE_URL", err)
	}
	defer pool.Close()

	reader, err := database.GetProfileReader(ctx)
	if err != nil {
		return nil, err
	}
	return profile.Load(ctx, "", reader)
}

// buildMatcher loads the profile and builds the matcher from config.
func buildMatcher(ctx context.Context, cfg *config.Config, quiet bool) (*matcher.Matcher, error) {
	p, err := loadProfile(ctx, cfg, quiet)
	if err != nil {
		return nil, fmt.Errorf("failed to load profile: %w", err)
	}

	m, err := matcher.New(p, matcher.OptionsFromConfig(cfg.Match))
	if err != nil {
		return nil, fmt.Errorf("failed to create matcher: %w", err)
	}

	if !quiet {
		fmt.Printf("Profile loaded: %d labels, %d references", len(m.Labels()), m.References())
		if m.Indexed() {
			fmt.Printf(" (HNSW index)")
		}
		fmt.Println()
	}
	return m, nil
}

func outputJSON(data any) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(data); err != nil {
		return fmt.Errorf("encoding JSON output: %w", err)
	}
	return nil
}
