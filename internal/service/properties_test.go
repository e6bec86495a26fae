package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "safeletstays/internal/errors"
	"safeletstays/internal/models"
)

type fakeSearchIndex struct {
	indexed map[int64]*models.Property
	fail    bool
	results []models.Property
}

func (f *fakeSearchIndex) IndexProperty(_ context.Context, p *models.Property) error {
	if f.fail {
		return errors.New("index unavailable")
	}
	if f.indexed == nil {
		f.indexed = make(map[int64]*models.Property)
	}
	f.indexed[p.ID] = p
	return nil
}

func (f *fakeSearchIndex) DeleteProperty(_ context.Context, id int64) error {
	delete(f.indexed, id)
	return nil
}

func (f *fakeSearchIndex) Search(_ context.Context, _ models.PropertyFilter) ([]models.Property, error) {
	if f.fail {
		return nil, errors.New("index unavailable")
	}
	return f.results, nil
}

func propertyRequest(title string) *models.PropertyRequest {
	return &models.PropertyRequest{
		Title:     title,
		PriceFrom: 10000,
		Beds:      2,
		Baths:     1,
		Capacity:  4,
	}
}

func TestCreatePropertySlugifiesTitle(t *testing.T) {
	store := &fakePropertyStore{properties: map[int64]*models.Property{}}
	index := &fakeSearchIndex{}
	svc := NewPropertyService(store, index)

	property, err := svc.Create(context.Background(), propertyRequest("Stadium View Loft, 2BR!"))
	require.NoError(t, err)
	assert.Equal(t, "stadium-view-loft-2br", property.Slug)
	assert.Contains(t, index.indexed, property.ID)
}

func TestCreatePropertyResolvesSlugCollision(t *testing.T) {
	store := &fakePropertyStore{properties: map[int64]*models.Property{
		1: {ID: 1, Title: "Garden Flat", Slug: "garden-flat"},
	}}
	svc := NewPropertyService(store, nil)

	property, err := svc.Create(context.Background(), propertyRequest("Garden Flat"))
	require.NoError(t, err)
	assert.Equal(t, "garden-flat-2", property.Slug)
}

func TestCreatePropertySurvivesIndexFailure(t *testing.T) {
	store := &fakePropertyStore{properties: map[int64]*models.Property{}}
	index := &fakeSearchIndex{fail: true}
	svc := NewPropertyService(store, index)

	// объект создается даже если индексация упала
	property, err := svc.Create(context.Background(), propertyRequest("Garden Flat"))
	require.NoError(t, err)
	assert.NotNil(t, property)
}

func TestSearchFallsBackToDatabase(t *testing.T) {
	store := &fakePropertyStore{properties: map[int64]*models.Property{
		1: {ID: 1, Title: "Garden Flat", Slug: "garden-flat"},
	}}
	index := &fakeSearchIndex{fail: true}
	svc := NewPropertyService(store, index)

	properties, err := svc.Search(context.Background(), models.PropertyFilter{Query: "garden"})
	require.NoError(t, err)
	assert.Len(t, properties, 1)
}

func TestSearchUsesIndexWhenHealthy(t *testing.T) {
	store := &fakePropertyStore{properties: map[int64]*models.Property{}}
	index := &fakeSearchIndex{results: []models.Property{{ID: 7, Title: "Indexed Flat"}}}
	svc := NewPropertyService(store, index)

	properties, err := svc.Search(context.Background(), models.PropertyFilter{Query: "flat"})
	require.NoError(t, err)
	require.Len(t, properties, 1)
	assert.Equal(t, int64(7), properties[0].ID)
}

func TestGetBySlugNotFound(t *testing.T) {
	store := &fakePropertyStore{properties: map[int64]*models.Property{}}
	svc := NewPropertyService(store, nil)

	_, err := svc.GetBySlug(context.Background(), "missing")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestDeletePropertyRemovesFromIndex(t *testing.T) {
	store := &fakePropertyStore{properties: map[int64]*models.Property{
		1: {ID: 1, Title: "Garden Flat", Slug: "garden-flat"},
	}}
	index := &fakeSearchIndex{indexed: map[int64]*models.Property{1: store.properties[1]}}
	svc := NewPropertyService(store, index)

	require.NoError(t, svc.Delete(context.Background(), 1))
	assert.NotContains(t, index.indexed, int64(1))
	assert.Empty(t, store.properties)
}
