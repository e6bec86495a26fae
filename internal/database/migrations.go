package database

import (
	"fmt"
	"log/slog"
)

func (db *DB) RunMigrations() error {
	slog.Info("Running database migrations...")

	migrations := []string{
		createUsersTable,
		createProfilesTable,
		createPropertiesTable,
		createBookingsTable,
		createBookingIndexes,
	}

	for i, migration := range migrations {
		slog.Info("Running migration", "step", i+1)
		if _, err := db.Exec(migration); err != nil {
			return fmt.Errorf("migration %d failed: %w", i+1, err)
		}
	}

	slog.Info("All migrations completed successfully")
	return nil
}

const createUsersTable = `
CREATE TABLE IF NOT EXISTS users (
    user_id SERIAL PRIMARY KEY,
    email VARCHAR(255) UNIQUE NOT NULL,
    password_hash VARCHAR(64) NOT NULL,
    first_name VARCHAR(100) NOT NULL,
    surname VARCHAR(100) NOT NULL,
    is_staff BOOLEAN NOT NULL DEFAULT FALSE,
    is_active BOOLEAN NOT NULL DEFAULT TRUE,
    registered_at TIMESTAMP NOT NULL DEFAULT NOW(),
    last_logged_in TIMESTAMP NOT NULL DEFAULT NOW()
);`

const createProfilesTable = `
CREATE TABLE IF NOT EXISTS profiles (
    id SERIAL PRIMARY KEY,
    user_id INTEGER UNIQUE NOT NULL REFERENCES users(user_id) ON DELETE CASCADE,
    phone_number VARCHAR(50) NOT NULL DEFAULT '',
    booking_purpose VARCHAR(200) NOT NULL DEFAULT '',
    company_name VARCHAR(200) NOT NULL DEFAULT '',
    company_address TEXT NOT NULL DEFAULT ''
);`

const createPropertiesTable = `
CREATE TABLE IF NOT EXISTS properties (
    id SERIAL PRIMARY KEY,
    title VARCHAR(200) NOT NULL,
    slug VARCHAR(220) UNIQUE NOT NULL,
    short_description TEXT NOT NULL DEFAULT '',
    description TEXT NOT NULL DEFAULT '',
    image_url VARCHAR(500) NOT NULL DEFAULT '',
    price_from BIGINT NOT NULL,
    cleaning_fee BIGINT NOT NULL DEFAULT 0,
    beds INTEGER NOT NULL,
    baths INTEGER NOT NULL,
    capacity INTEGER NOT NULL,
    parking BOOLEAN NOT NULL DEFAULT FALSE,
    distance_to_stadium_mins INTEGER NOT NULL DEFAULT 0,
    tags VARCHAR(500) NOT NULL DEFAULT '',
    keywords TEXT NOT NULL DEFAULT '',
    channel_listing_id VARCHAR(100),
    is_featured BOOLEAN NOT NULL DEFAULT FALSE,
    created_at TIMESTAMP NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMP NOT NULL DEFAULT NOW()
);`

const createBookingsTable = `
CREATE TABLE IF NOT EXISTS bookings (
    id SERIAL PRIMARY KEY,
    property_id INTEGER NOT NULL REFERENCES properties(id) ON DELETE CASCADE,
    user_id INTEGER REFERENCES users(user_id),
    guest_name VARCHAR(200) NOT NULL,
    guest_email VARCHAR(254) NOT NULL,
    guest_phone VARCHAR(50) NOT NULL DEFAULT '',
    company_name VARCHAR(200) NOT NULL DEFAULT '',
    company_address TEXT NOT NULL DEFAULT '',
    check_in DATE NOT NULL,
    check_out DATE NOT NULL,
    guests INTEGER NOT NULL DEFAULT 1,
    status VARCHAR(20) NOT NULL DEFAULT 'inquiry',
    source VARCHAR(20) NOT NULL DEFAULT 'direct',
    nightly_rate BIGINT,
    cleaning_fee BIGINT NOT NULL DEFAULT 0,
    total_price BIGINT,
    guest_notes TEXT NOT NULL DEFAULT '',
    internal_notes TEXT NOT NULL DEFAULT '',
    receipt_pdf BYTEA,
    receipt_filename VARCHAR(255),
    checkout_session_id VARCHAR(200),
    channel_reservation_id VARCHAR(100),
    created_at TIMESTAMP NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMP NOT NULL DEFAULT NOW(),

    CHECK (check_out > check_in),
    CHECK (status IN ('inquiry', 'awaiting_payment', 'confirmed', 'canceled', 'completed')),
    CHECK (source IN ('direct', 'channel', 'other'))
);`

const createBookingIndexes = `
CREATE INDEX IF NOT EXISTS bookings_property_check_in_idx ON bookings (property_id, check_in);
CREATE INDEX IF NOT EXISTS bookings_status_check_in_idx ON bookings (status, check_in);
CREATE INDEX IF NOT EXISTS bookings_checkout_session_idx ON bookings (checkout_session_id);
CREATE INDEX IF NOT EXISTS bookings_guest_email_idx ON bookings (guest_email);`
