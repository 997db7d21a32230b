package service

import (
	"context"
	"errors"
	"fmt"

	"tourbook/internal/domain"
	"tourbook/internal/events"
	"tourbook/internal/models"
	"tourbook/internal/validation"

	"github.com/rs/zerolog"
)

type TourService struct {
	tours      domain.TourRepository
	categories domain.CategoryRepository
	eventBus   domain.EventPublisher
	logger     *zerolog.Logger
}

func NewTourService(tours domain.TourRepository, categories domain.CategoryRepository, eventBus domain.EventPublisher, logger *zerolog.Logger) *TourService {
	return &TourService{
		tours:      tours,
		categories: categories,
		eventBus:   eventBus,
		logger:     logger,
	}
}

func (s *TourService) ListTours(ctx context.Context, filter models.TourFilter) ([]*models.Tour, error) {
	return s.tours.ListTours(ctx, filter)
}

func (s *TourService) GetTour(ctx context.Context, id string) (*models.Tour, error) {
	return s.tours.GetTour(ctx, id)
}

func (s *TourService) CreateTour(ctx context.Context, in *models.TourInput, changedBy string) (*models.Tour, error) {
	tour := in.NewTour()
	if err := validation.Struct(tour); err != nil {
		return nil, err
	}

	category, err := s.resolveCategory(ctx, tour.CategoryID)
	if err != nil {
		return nil, err
	}

	if err := s.tours.CreateTour(ctx, tour); err != nil {
		return nil, err
	}
	tour.CategoryName = category.Name

	s.logger.Info().
		Str("tour_id", tour.ID).
		Str("title", tour.Title).
		Str("changed_by", changedBy).
		Msg("Tour created")
	s.publishCatalogEvent(events.EventTourCreated, events.CatalogEventPayload{
		TourID:     tour.ID,
		CategoryID: tour.CategoryID,
		Title:      tour.Title,
		ChangedBy:  changedBy,
	})

	return tour, nil
}

// UpdateTour merges the patch into the stored tour and revalidates the result.
func (s *TourService) UpdateTour(ctx context.Context, id string, patch *models.TourPatch, changedBy string) (*models.Tour, error) {
	tour, err := s.tours.GetTour(ctx, id)
	if err != nil {
		return nil, err
	}

	categoryChanged := patch.Apply(tour)
	if err := validation.Struct(tour); err != nil {
		return nil, err
	}
	if categoryChanged {
		category, err := s.resolveCategory(ctx, tour.CategoryID)
		if err != nil {
			return nil, err
		}
		tour.CategoryName = category.Name
	}

	if err := s.tours.UpdateTour(ctx, tour); err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("tour_id", tour.ID).
		Str("changed_by", changedBy).
		Bool("category_changed", categoryChanged).
		Msg("Tour updated")
	s.publishCatalogEvent(events.EventTourUpdated, events.CatalogEventPayload{
		TourID:     tour.ID,
		CategoryID: tour.CategoryID,
		Title:      tour.Title,
		ChangedBy:  changedBy,
	})

	return tour, nil
}

// DeleteTour removes the tour. Its bookings are kept and lose their tour summary.
func (s *TourService) DeleteTour(ctx context.Context, id, changedBy string) error {
	if err := s.tours.DeleteTour(ctx, id); err != nil {
		return err
	}

	s.logger.Info().Str("tour_id", id).Str("changed_by", changedBy).Msg("Tour deleted")
	s.publishCatalogEvent(events.EventTourDeleted, events.CatalogEventPayload{
		TourID:    id,
		ChangedBy: changedBy,
	})
	return nil
}

func (s *TourService) resolveCategory(ctx context.Context, id string) (*models.Category, error) {
	category, err := s.categories.GetCategory(ctx, id)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, domain.Reference(fmt.Sprintf("category %s does not exist", id))
	}
	if err != nil {
		return nil, err
	}
	return category, nil
}

func (s *TourService) publishCatalogEvent(eventType string, payload events.CatalogEventPayload) {
	if s.eventBus == nil {
		return
	}
	if err := s.eventBus.PublishJSON(eventType, payload); err != nil {
		s.logger.Error().Err(err).Str("event_type", eventType).Msg("Failed to publish catalog event")
	}
}
