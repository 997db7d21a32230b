package service

import (
	"context"
	"errors"
	"fmt"
	"os"

	"tourbook/internal/domain"
	"tourbook/internal/models"
	"tourbook/internal/validation"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

// SeedData is the document loaded from configs/seed.yaml. Tours name their
// category by name rather than id.
type SeedData struct {
	Categories []models.Category  `yaml:"categories"`
	Users      []models.User      `yaml:"users"`
	Tours      []models.TourInput `yaml:"tours"`
}

type SeedResult struct {
	Categories int
	Users      int
	Tours      int
}

func LoadSeedData(path string) (*SeedData, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read seed file: %w", err)
	}
	var data SeedData
	if err := yaml.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("failed to parse seed file: %w", err)
	}
	return &data, nil
}

// Seeder upserts demo data. Categories match by name, users by email and
// tours by title, so running it twice changes nothing.
type Seeder struct {
	store  domain.Store
	logger *zerolog.Logger
}

func NewSeeder(store domain.Store, logger *zerolog.Logger) *Seeder {
	return &Seeder{store: store, logger: logger}
}

func (s *Seeder) Apply(ctx context.Context, data *SeedData) (*SeedResult, error) {
	result := &SeedResult{}
	categoryIDs := make(map[string]string, len(data.Categories))

	for i := range data.Categories {
		c := data.Categories[i]
		if err := validation.Struct(&c); err != nil {
			return nil, fmt.Errorf("category %q: %w", c.Name, err)
		}
		existing, err := s.store.GetCategoryByName(ctx, c.Name)
		switch {
		case errors.Is(err, domain.ErrNotFound):
			if err := s.store.CreateCategory(ctx, &c); err != nil {
				return nil, err
			}
		case err != nil:
			return nil, err
		default:
			c.ID = existing.ID
			if err := s.store.UpdateCategory(ctx, &c); err != nil {
				return nil, err
			}
		}
		categoryIDs[c.Name] = c.ID
		result.Categories++
	}

	for i := range data.Users {
		u := data.Users[i]
		if u.Role == "" {
			u.Role = models.RoleUser
		}
		if err := validation.Struct(&u); err != nil {
			return nil, fmt.Errorf("user %q: %w", u.Email, err)
		}
		if err := s.store.UpsertUser(ctx, &u); err != nil {
			return nil, err
		}
		result.Users++
	}

	existing, err := s.store.ListTours(ctx, models.TourFilter{})
	if err != nil {
		return nil, err
	}
	byTitle := make(map[string]string, len(existing))
	for _, t := range existing {
		byTitle[t.Title] = t.ID
	}

	for i := range data.Tours {
		in := data.Tours[i]
		categoryID, ok := categoryIDs[in.Category]
		if !ok {
			c, err := s.store.GetCategoryByName(ctx, in.Category)
			if err != nil {
				return nil, fmt.Errorf("tour %q: category %q: %w", in.Title, in.Category, err)
			}
			categoryID = c.ID
		}
		in.Category = categoryID

		tour := in.NewTour()
		if err := validation.Struct(tour); err != nil {
			return nil, fmt.Errorf("tour %q: %w", in.Title, err)
		}
		if id, ok := byTitle[tour.Title]; ok {
			tour.ID = id
			err = s.store.UpdateTour(ctx, tour)
		} else {
			err = s.store.CreateTour(ctx, tour)
		}
		if err != nil {
			return nil, err
		}
		result.Tours++
	}

	s.logger.Info().
		Int("categories", result.Categories).
		Int("users", result.Users).
		Int("tours", result.Tours).
		Msg("Seed data applied")
	return result, nil
}
