package repository

import (
	"context"
	"database/sql"
	"fmt"

	"safeletstays/internal/database"
	"safeletstays/internal/models"
)

type PropertyRepository struct {
	db *database.DB
}

func NewPropertyRepository(db *database.DB) *PropertyRepository {
	return &PropertyRepository{db: db}
}

const propertyColumns = `id, title, slug, short_description, description, image_url,
       price_from, cleaning_fee, beds, baths, capacity, parking,
       distance_to_stadium_mins, tags, keywords, channel_listing_id, is_featured,
       created_at, updated_at`

func scanProperty(row interface{ Scan(...interface{}) error }, p *models.Property) error {
	return row.Scan(
		&p.ID,
		&p.Title,
		&p.Slug,
		&p.ShortDescription,
		&p.Description,
		&p.ImageURL,
		&p.PriceFrom,
		&p.CleaningFee,
		&p.Beds,
		&p.Baths,
		&p.Capacity,
		&p.Parking,
		&p.DistanceToStadiumMins,
		&p.Tags,
		&p.Keywords,
		&p.ChannelListingID,
		&p.IsFeatured,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
}

func (r *PropertyRepository) Create(ctx context.Context, property *models.Property) error {
	query := `
		INSERT INTO properties (title, slug, short_description, description, image_url,
		                        price_from, cleaning_fee, beds, baths, capacity, parking,
		                        distance_to_stadium_mins, tags, keywords, channel_listing_id, is_featured)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		RETURNING id, created_at, updated_at`

	err := r.db.QueryRowContext(ctx, query,
		property.Title,
		property.Slug,
		property.ShortDescription,
		property.Description,
		property.ImageURL,
		property.PriceFrom,
		property.CleaningFee,
		property.Beds,
		property.Baths,
		property.Capacity,
		property.Parking,
		property.DistanceToStadiumMins,
		property.Tags,
		property.Keywords,
		property.ChannelListingID,
		property.IsFeatured,
	).Scan(&property.ID, &property.CreatedAt, &property.UpdatedAt)

	return err
}

func (r *PropertyRepository) GetByID(ctx context.Context, id int64) (*models.Property, error) {
	property := &models.Property{}
	query := `SELECT ` + propertyColumns + ` FROM properties WHERE id = $1`

	err := scanProperty(r.db.QueryRowContext(ctx, query, id), property)
	if err == sql.ErrNoRows {
		return nil, nil
	}

	return property, err
}

func (r *PropertyRepository) GetBySlug(ctx context.Context, slug string) (*models.Property, error) {
	property := &models.Property{}
	query := `SELECT ` + propertyColumns + ` FROM properties WHERE slug = $1`

	err := scanProperty(r.db.QueryRowContext(ctx, query, slug), property)
	if err == sql.ErrNoRows {
		return nil, nil
	}

	return property, err
}

// SlugExists проверяет занят ли slug другим объектом
func (r *PropertyRepository) SlugExists(ctx context.Context, slug string, excludeID int64) (bool, error) {
	var exists bool
	query := `SELECT EXISTS (SELECT 1 FROM properties WHERE slug = $1 AND id != $2)`

	err := r.db.QueryRowContext(ctx, query, slug, excludeID).Scan(&exists)
	return exists, err
}

func (r *PropertyRepository) Update(ctx context.Context, property *models.Property) error {
	query := `
		UPDATE properties
		SET title = $1, slug = $2, short_description = $3, description = $4, image_url = $5,
		    price_from = $6, cleaning_fee = $7, beds = $8, baths = $9, capacity = $10,
		    parking = $11, distance_to_stadium_mins = $12, tags = $13, keywords = $14,
		    channel_listing_id = $15, is_featured = $16, updated_at = NOW()
		WHERE id = $17`

	result, err := r.db.ExecContext(ctx, query,
		property.Title,
		property.Slug,
		property.ShortDescription,
		property.Description,
		property.ImageURL,
		property.PriceFrom,
		property.CleaningFee,
		property.Beds,
		property.Baths,
		property.Capacity,
		property.Parking,
		property.DistanceToStadiumMins,
		property.Tags,
		property.Keywords,
		property.ChannelListingID,
		property.IsFeatured,
		property.ID,
	)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return sql.ErrNoRows
	}

	return nil
}

func (r *PropertyRepository) Delete(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM properties WHERE id = $1`, id)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return sql.ErrNoRows
	}

	return nil
}

// List ищет объекты по фильтрам. Используется как фоллбек когда
// Elasticsearch недоступен.
func (r *PropertyRepository) List(ctx context.Context, filter models.PropertyFilter) ([]models.Property, error) {
	query := `SELECT ` + propertyColumns + ` FROM properties WHERE 1=1`
	args := []interface{}{}
	argNum := 1

	if filter.Query != "" {
		query += fmt.Sprintf(` AND (title ILIKE $%d OR short_description ILIKE $%d OR description ILIKE $%d OR tags ILIKE $%d OR keywords ILIKE $%d)`,
			argNum, argNum, argNum, argNum, argNum)
		args = append(args, "%"+filter.Query+"%")
		argNum++
	}

	if filter.Guests > 0 {
		query += fmt.Sprintf(` AND capacity >= $%d`, argNum)
		args = append(args, filter.Guests)
		argNum++
	}

	if filter.Beds > 0 {
		if filter.Beds >= 4 {
			query += fmt.Sprintf(` AND beds >= $%d`, argNum)
		} else {
			query += fmt.Sprintf(` AND beds = $%d`, argNum)
		}
		args = append(args, filter.Beds)
		argNum++
	}

	if filter.Featured {
		query += ` AND is_featured = TRUE`
	}

	query += ` ORDER BY id ASC`

	page, pageSize := filter.Page, filter.PageSize
	if pageSize <= 0 {
		pageSize = 10
	}
	query += fmt.Sprintf(` LIMIT $%d`, argNum)
	args = append(args, pageSize)
	argNum++

	if page > 1 {
		query += fmt.Sprintf(` OFFSET $%d`, argNum)
		args = append(args, (page-1)*pageSize)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var properties []models.Property
	for rows.Next() {
		var property models.Property
		if err := scanProperty(rows, &property); err != nil {
			return nil, err
		}
		properties = append(properties, property)
	}

	return properties, rows.Err()
}

// GetSimilar подбирает похожие объекты по количеству спален
func (r *PropertyRepository) GetSimilar(ctx context.Context, property *models.Property, limit int) ([]models.Property, error) {
	query := `
		SELECT ` + propertyColumns + `
		FROM properties
		WHERE id != $1
		ORDER BY ABS(beds - $2) ASC, is_featured DESC, id ASC
		LIMIT $3`

	rows, err := r.db.QueryContext(ctx, query, property.ID, property.Beds, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var properties []models.Property
	for rows.Next() {
		var p models.Property
		if err := scanProperty(rows, &p); err != nil {
			return nil, err
		}
		properties = append(properties, p)
	}

	return properties, rows.Err()
}

// ListAll возвращает все объекты, нужно для переиндексации поиска
func (r *PropertyRepository) ListAll(ctx context.Context) ([]models.Property, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+propertyColumns+` FROM properties ORDER BY id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var properties []models.Property
	for rows.Next() {
		var p models.Property
		if err := scanProperty(rows, &p); err != nil {
			return nil, err
		}
		properties = append(properties, p)
	}

	return properties, rows.Err()
}
