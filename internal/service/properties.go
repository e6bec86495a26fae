package service

import (
	"context"
	"fmt"

	apperrors "safeletstays/internal/errors"
	"safeletstays/internal/logger"
	"safeletstays/internal/models"
)

const similarPropertiesLimit = 3

type PropertyService struct {
	properties propertyStore
	search     searchIndex // nil when Elasticsearch is disabled
}

func NewPropertyService(properties propertyStore, search searchIndex) *PropertyService {
	return &PropertyService{
		properties: properties,
		search:     search,
	}
}

// Create создает объект размещения и индексирует его для поиска
func (s *PropertyService) Create(ctx context.Context, req *models.PropertyRequest) (*models.Property, error) {
	property := propertyFromRequest(req)

	slug, err := s.uniqueSlug(ctx, models.Slugify(req.Title), 0)
	if err != nil {
		return nil, err
	}
	property.Slug = slug

	if err := s.properties.Create(ctx, property); err != nil {
		return nil, fmt.Errorf("failed to create property: %w", err)
	}

	s.syncIndex(ctx, property)

	return property, nil
}

func (s *PropertyService) Update(ctx context.Context, id int64, req *models.PropertyRequest) (*models.Property, error) {
	existing, err := s.properties.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get property: %w", err)
	}
	if existing == nil {
		return nil, apperrors.ErrNotFound
	}

	property := propertyFromRequest(req)
	property.ID = existing.ID
	property.Slug = existing.Slug

	// Slug следует за названием, но остается уникальным
	if existing.Title != req.Title {
		slug, err := s.uniqueSlug(ctx, models.Slugify(req.Title), existing.ID)
		if err != nil {
			return nil, err
		}
		property.Slug = slug
	}

	if err := s.properties.Update(ctx, property); err != nil {
		return nil, fmt.Errorf("failed to update property: %w", err)
	}

	s.syncIndex(ctx, property)

	return property, nil
}

func (s *PropertyService) Delete(ctx context.Context, id int64) error {
	property, err := s.properties.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to get property: %w", err)
	}
	if property == nil {
		return apperrors.ErrNotFound
	}

	if err := s.properties.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete property: %w", err)
	}

	if s.search != nil {
		if err := s.search.DeleteProperty(ctx, id); err != nil {
			logger.WithContext(ctx).Error("Failed to remove property from search index",
				"error", err,
				"property_id", id)
		}
	}

	return nil
}

func (s *PropertyService) GetByID(ctx context.Context, id int64) (*models.Property, error) {
	property, err := s.properties.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get property: %w", err)
	}
	if property == nil {
		return nil, apperrors.ErrNotFound
	}
	return property, nil
}

// GetBySlug возвращает объект вместе с похожими предложениями
func (s *PropertyService) GetBySlug(ctx context.Context, slug string) (*models.PropertyDetailResponse, error) {
	property, err := s.properties.GetBySlug(ctx, slug)
	if err != nil {
		return nil, fmt.Errorf("failed to get property: %w", err)
	}
	if property == nil {
		return nil, apperrors.ErrNotFound
	}

	similar, err := s.properties.GetSimilar(ctx, property, similarPropertiesLimit)
	if err != nil {
		logger.WithContext(ctx).Error("Failed to load similar properties",
			"error", err,
			"property_id", property.ID)
		similar = nil
	}

	return &models.PropertyDetailResponse{
		Property: property,
		Similar:  similar,
	}, nil
}

// Search ищет объекты через Elasticsearch, при недоступности поиска работает
// по базе напрямую.
func (s *PropertyService) Search(ctx context.Context, filter models.PropertyFilter) ([]models.Property, error) {
	if s.search != nil {
		properties, err := s.search.Search(ctx, filter)
		if err == nil {
			return properties, nil
		}
		logger.WithContext(ctx).Error("Search index query failed, falling back to database",
			"error", err)
	}

	properties, err := s.properties.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list properties: %w", err)
	}
	return properties, nil
}

// Reindex полностью пересобирает поисковый индекс
func (s *PropertyService) Reindex(ctx context.Context) (int, error) {
	if s.search == nil {
		return 0, fmt.Errorf("search is not enabled")
	}

	properties, err := s.properties.ListAll(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list properties: %w", err)
	}

	indexed := 0
	for i := range properties {
		if err := s.search.IndexProperty(ctx, &properties[i]); err != nil {
			logger.WithContext(ctx).Error("Failed to index property",
				"error", err,
				"property_id", properties[i].ID)
			continue
		}
		indexed++
	}

	return indexed, nil
}

func (s *PropertyService) syncIndex(ctx context.Context, property *models.Property) {
	if s.search == nil {
		return
	}
	if err := s.search.IndexProperty(ctx, property); err != nil {
		// Поиск догонит при переиндексации, запись в БД уже состоялась
		logger.WithContext(ctx).Error("Failed to sync property to search index",
			"error", err,
			"property_id", property.ID)
	}
}

// uniqueSlug добавляет числовой суффикс пока slug занят
func (s *PropertyService) uniqueSlug(ctx context.Context, base string, excludeID int64) (string, error) {
	if base == "" {
		base = "property"
	}

	slug := base
	for i := 2; ; i++ {
		exists, err := s.properties.SlugExists(ctx, slug, excludeID)
		if err != nil {
			return "", fmt.Errorf("failed to check slug: %w", err)
		}
		if !exists {
			return slug, nil
		}
		slug = fmt.Sprintf("%s-%d", base, i)
	}
}

func propertyFromRequest(req *models.PropertyRequest) *models.Property {
	property := &models.Property{
		Title:                 req.Title,
		ShortDescription:      req.ShortDescription,
		Description:           req.Description,
		ImageURL:              req.ImageURL,
		PriceFrom:             req.PriceFrom,
		CleaningFee:           req.CleaningFee,
		Beds:                  req.Beds,
		Baths:                 req.Baths,
		Capacity:              req.Capacity,
		Parking:               req.Parking,
		DistanceToStadiumMins: req.DistanceToStadiumMins,
		Tags:                  req.Tags,
		Keywords:              req.Keywords,
		IsFeatured:            req.IsFeatured,
	}
	if req.ChannelListingID != "" {
		property.ChannelListingID = &req.ChannelListingID
	}
	return property
}
