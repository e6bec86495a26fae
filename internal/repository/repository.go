package repository

import (
	"safeletstays/internal/database"
)

type Repositories struct {
	Properties *PropertyRepository
	Bookings   *BookingRepository
	Users      *UserRepository
}

func NewRepositories(db *database.DB) *Repositories {
	return &Repositories{
		Properties: NewPropertyRepository(db),
		Bookings:   NewBookingRepository(db),
		Users:      NewUserRepository(db),
	}
}
