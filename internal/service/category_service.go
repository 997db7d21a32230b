package service

import (
	"context"
	"fmt"

	"tourbook/internal/domain"
	"tourbook/internal/events"
	"tourbook/internal/models"
	"tourbook/internal/validation"

	"github.com/rs/zerolog"
)

// cacheInvalidator is implemented by tour repositories that cache reads.
type cacheInvalidator interface {
	InvalidateAll(ctx context.Context)
}

type CategoryService struct {
	categories   domain.CategoryRepository
	tours        domain.TourRepository
	eventBus     domain.EventPublisher
	deletePolicy string
	logger       *zerolog.Logger
}

func NewCategoryService(categories domain.CategoryRepository, tours domain.TourRepository, eventBus domain.EventPublisher, deletePolicy string, logger *zerolog.Logger) *CategoryService {
	if deletePolicy == "" {
		deletePolicy = models.CategoryDeleteOrphan
	}
	return &CategoryService{
		categories:   categories,
		tours:        tours,
		eventBus:     eventBus,
		deletePolicy: deletePolicy,
		logger:       logger,
	}
}

func (s *CategoryService) ListCategories(ctx context.Context) ([]*models.Category, error) {
	return s.categories.ListCategories(ctx)
}

func (s *CategoryService) GetCategory(ctx context.Context, id string) (*models.Category, error) {
	return s.categories.GetCategory(ctx, id)
}

func (s *CategoryService) CreateCategory(ctx context.Context, category *models.Category) (*models.Category, error) {
	patch := models.CategoryPatch{Name: &category.Name}
	patch.Apply(category)
	if err := validation.Struct(category); err != nil {
		return nil, err
	}
	if err := s.categories.CreateCategory(ctx, category); err != nil {
		return nil, err
	}
	s.logger.Info().Str("category_id", category.ID).Str("name", category.Name).Msg("Category created")
	return category, nil
}

func (s *CategoryService) UpdateCategory(ctx context.Context, id string, patch *models.CategoryPatch) (*models.Category, error) {
	category, err := s.categories.GetCategory(ctx, id)
	if err != nil {
		return nil, err
	}
	oldName := category.Name

	patch.Apply(category)
	if err := validation.Struct(category); err != nil {
		return nil, err
	}
	if err := s.categories.UpdateCategory(ctx, category); err != nil {
		return nil, err
	}

	if category.Name != oldName {
		s.invalidateTours(ctx)
	}
	s.logger.Info().Str("category_id", id).Str("name", category.Name).Msg("Category updated")
	return category, nil
}

// DeleteCategory removes a category. What happens to its tours depends on the
// configured policy: orphan keeps them, block refuses while any exist and
// cascade deletes them in the same store transaction.
func (s *CategoryService) DeleteCategory(ctx context.Context, id, changedBy string) error {
	if _, err := s.categories.GetCategory(ctx, id); err != nil {
		return err
	}

	removed := 0
	switch s.deletePolicy {
	case models.CategoryDeleteBlock:
		n, err := s.tours.CountToursByCategory(ctx, id)
		if err != nil {
			return err
		}
		if n > 0 {
			return domain.Conflict(fmt.Sprintf("category still has %d tours", n))
		}
		if err := s.categories.DeleteCategory(ctx, id); err != nil {
			return err
		}
	case models.CategoryDeleteCascade:
		n, err := s.categories.DeleteCategoryWithTours(ctx, id)
		if err != nil {
			return err
		}
		removed = n
	default:
		if err := s.categories.DeleteCategory(ctx, id); err != nil {
			return err
		}
	}
	s.invalidateTours(ctx)

	s.logger.Info().
		Str("category_id", id).
		Str("policy", s.deletePolicy).
		Int("tours_removed", removed).
		Str("changed_by", changedBy).
		Msg("Category deleted")
	if s.eventBus != nil {
		payload := events.CatalogEventPayload{CategoryID: id, ToursRemoved: removed, ChangedBy: changedBy}
		if err := s.eventBus.PublishJSON(events.EventCategoryDeleted, payload); err != nil {
			s.logger.Error().Err(err).Str("category_id", id).Msg("Failed to publish category event")
		}
	}
	return nil
}

// invalidateTours drops cached tours that may still carry an old category name.
func (s *CategoryService) invalidateTours(ctx context.Context) {
	if c, ok := s.tours.(cacheInvalidator); ok {
		c.InvalidateAll(ctx)
	}
}
