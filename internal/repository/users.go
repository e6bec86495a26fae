package repository

import (
	"context"
	"database/sql"

	"safeletstays/internal/database"
	"safeletstays/internal/models"
)

type UserRepository struct {
	db *database.DB
}

func NewUserRepository(db *database.DB) *UserRepository {
	return &UserRepository{db: db}
}

const userColumns = `user_id, email, password_hash, first_name, surname,
       is_staff, is_active, registered_at, last_logged_in`

func scanUser(row interface{ Scan(...interface{}) error }, u *models.User) error {
	return row.Scan(
		&u.ID,
		&u.Email,
		&u.PasswordHash,
		&u.FirstName,
		&u.Surname,
		&u.IsStaff,
		&u.IsActive,
		&u.RegisteredAt,
		&u.LastLoggedIn,
	)
}

func (r *UserRepository) GetByID(ctx context.Context, id int64) (*models.User, error) {
	user := &models.User{}
	query := `SELECT ` + userColumns + ` FROM users WHERE user_id = $1`

	err := scanUser(r.db.QueryRowContext(ctx, query, id), user)
	if err == sql.ErrNoRows {
		return nil, nil
	}

	return user, err
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	user := &models.User{}
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`

	err := scanUser(r.db.QueryRowContext(ctx, query, email), user)
	if err == sql.ErrNoRows {
		return nil, nil
	}

	return user, err
}

// CreateWithProfile создает пользователя вместе с профилем в одной
// транзакции, аккаунт без профиля существовать не должен.
func (r *UserRepository) CreateWithProfile(ctx context.Context, user *models.User, profile *models.Profile) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	err = tx.QueryRowContext(ctx, `
		INSERT INTO users (email, password_hash, first_name, surname, is_staff, is_active)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING user_id, registered_at, last_logged_in`,
		user.Email,
		user.PasswordHash,
		user.FirstName,
		user.Surname,
		user.IsStaff,
		user.IsActive,
	).Scan(&user.ID, &user.RegisteredAt, &user.LastLoggedIn)
	if err != nil {
		return err
	}

	profile.UserID = user.ID
	err = tx.QueryRowContext(ctx, `
		INSERT INTO profiles (user_id, phone_number, booking_purpose, company_name, company_address)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`,
		profile.UserID,
		profile.PhoneNumber,
		profile.BookingPurpose,
		profile.CompanyName,
		profile.CompanyAddress,
	).Scan(&profile.ID)
	if err != nil {
		return err
	}

	return tx.Commit()
}

func (r *UserRepository) GetProfile(ctx context.Context, userID int64) (*models.Profile, error) {
	profile := &models.Profile{}
	query := `
		SELECT id, user_id, phone_number, booking_purpose, company_name, company_address
		FROM profiles
		WHERE user_id = $1`

	err := r.db.QueryRowContext(ctx, query, userID).Scan(
		&profile.ID,
		&profile.UserID,
		&profile.PhoneNumber,
		&profile.BookingPurpose,
		&profile.CompanyName,
		&profile.CompanyAddress,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}

	return profile, err
}

func (r *UserRepository) UpdateProfile(ctx context.Context, profile *models.Profile) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE profiles
		SET phone_number = $1, booking_purpose = $2, company_name = $3, company_address = $4
		WHERE user_id = $5`,
		profile.PhoneNumber,
		profile.BookingPurpose,
		profile.CompanyName,
		profile.CompanyAddress,
		profile.UserID,
	)
	return err
}

func (r *UserRepository) UpdateLastLoggedIn(ctx context.Context, userID int64) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE users SET last_logged_in = NOW() WHERE user_id = $1`, userID)
	return err
}
