package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "safeletstays/internal/errors"
	"safeletstays/internal/models"
)

type fakeUserStore struct {
	nextID   int64
	users    map[string]*models.User
	profiles map[int64]*models.Profile
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{
		users:    make(map[string]*models.User),
		profiles: make(map[int64]*models.Profile),
	}
}

func (f *fakeUserStore) GetByID(_ context.Context, id int64) (*models.User, error) {
	for _, user := range f.users {
		if user.ID == id {
			copied := *user
			return &copied, nil
		}
	}
	return nil, nil
}

func (f *fakeUserStore) GetByEmail(_ context.Context, email string) (*models.User, error) {
	user, ok := f.users[email]
	if !ok {
		return nil, nil
	}
	copied := *user
	return &copied, nil
}

func (f *fakeUserStore) CreateWithProfile(_ context.Context, user *models.User, profile *models.Profile) error {
	f.nextID++
	user.ID = f.nextID
	profile.UserID = user.ID
	f.users[user.Email] = user
	f.profiles[user.ID] = profile
	return nil
}

func (f *fakeUserStore) GetProfile(_ context.Context, userID int64) (*models.Profile, error) {
	profile, ok := f.profiles[userID]
	if !ok {
		return nil, nil
	}
	copied := *profile
	return &copied, nil
}

func (f *fakeUserStore) UpdateProfile(_ context.Context, profile *models.Profile) error {
	f.profiles[profile.UserID] = profile
	return nil
}

type fakeAuthCache struct {
	entries map[string]int64
}

func (f *fakeAuthCache) SetUserAuth(_ context.Context, email, passwordHash string, userID int64) error {
	if f.entries == nil {
		f.entries = make(map[string]int64)
	}
	f.entries[email+":"+passwordHash] = userID
	return nil
}

func signupRequest() *models.SignupRequest {
	return &models.SignupRequest{
		Email:       "jordan@example.com",
		Password:    "correct-horse",
		FirstName:   "Jordan",
		Surname:     "Smith",
		PhoneNumber: "+44 7700 900000",
		CompanyName: "Smith Consulting",
	}
}

func TestSignupCreatesUserWithProfile(t *testing.T) {
	store := newFakeUserStore()
	auth := &fakeAuthCache{}
	svc := NewUserService(store, auth)

	resp, err := svc.Signup(context.Background(), signupRequest())
	require.NoError(t, err)
	assert.NotZero(t, resp.ID)
	assert.Equal(t, "jordan@example.com", resp.Email)

	// профиль создан вместе с аккаунтом
	profile, ok := store.profiles[resp.ID]
	require.True(t, ok)
	assert.Equal(t, "Smith Consulting", profile.CompanyName)

	// пароль нигде не лежит открытым текстом
	user := store.users["jordan@example.com"]
	assert.NotEqual(t, "correct-horse", user.PasswordHash)
	assert.Len(t, user.PasswordHash, 64)

	assert.Len(t, auth.entries, 1)
}

func TestSignupNormalizesEmail(t *testing.T) {
	store := newFakeUserStore()
	svc := NewUserService(store, nil)

	req := signupRequest()
	req.Email = "  Jordan@Example.COM "

	resp, err := svc.Signup(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "jordan@example.com", resp.Email)
}

func TestSignupRejectsDuplicateEmail(t *testing.T) {
	store := newFakeUserStore()
	svc := NewUserService(store, nil)

	_, err := svc.Signup(context.Background(), signupRequest())
	require.NoError(t, err)

	_, err = svc.Signup(context.Background(), signupRequest())
	ve, ok := apperrors.AsValidation(err)
	require.True(t, ok)
	assert.Equal(t, "email", ve.Field)
}

func TestSignupRejectsShortPassword(t *testing.T) {
	store := newFakeUserStore()
	svc := NewUserService(store, nil)

	req := signupRequest()
	req.Password = "short"

	_, err := svc.Signup(context.Background(), req)
	ve, ok := apperrors.AsValidation(err)
	require.True(t, ok)
	assert.Equal(t, "password", ve.Field)
}

func TestUpdateProfile(t *testing.T) {
	store := newFakeUserStore()
	svc := NewUserService(store, nil)

	resp, err := svc.Signup(context.Background(), signupRequest())
	require.NoError(t, err)

	updated, err := svc.UpdateProfile(context.Background(), resp.ID, &models.Profile{
		PhoneNumber:    "+44 7700 900001",
		BookingPurpose: "contractor stays",
	})
	require.NoError(t, err)
	assert.Equal(t, resp.ID, updated.UserID)

	profile, _ := svc.GetProfile(context.Background(), resp.ID)
	assert.Equal(t, "contractor stays", profile.BookingPurpose)
}

func TestGetProfileNotFound(t *testing.T) {
	store := newFakeUserStore()
	svc := NewUserService(store, nil)

	_, err := svc.GetProfile(context.Background(), 404)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}
