package service

import (
	"context"
	"testing"

	"gymvida/gym-manager/internal/domain"
	"gymvida/gym-manager/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type fakeUserRepo struct {
	users map[primitive.ObjectID]domain.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[primitive.ObjectID]domain.User)}
}

func (f *fakeUserRepo) Create(ctx context.Context, user *domain.User) (primitive.ObjectID, error) {
	for _, u := range f.users {
		if u.Email == user.Email {
			return primitive.NilObjectID, repository.ErrDuplicate
		}
	}
	if user.ID.IsZero() {
		user.ID = primitive.NewObjectID()
	}
	f.users[user.ID] = *user
	return user.ID, nil
}

func (f *fakeUserRepo) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	for _, u := range f.users {
		if u.Email == email {
			copy := u
			return &copy, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f *fakeUserRepo) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.User, error) {
	u, ok := f.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copy := u
	return &copy, nil
}

func TestAuthRegisterAndLogin(t *testing.T) {
	svc := NewAuthService(newFakeUserRepo(), "test-secret", 0)
	ctx := context.Background()

	user, err := svc.Register(ctx, "Admin", "admin@gym.test", "sup3rsecret", domain.RoleAdmin)
	require.NoError(t, err)
	assert.Empty(t, user.PasswordHash, "responses never carry the hash")

	_, err = svc.Register(ctx, "Other", "admin@gym.test", "whatever123", domain.RoleStaff)
	assert.ErrorIs(t, err, ErrUserAlreadyExists)

	token, loggedIn, err := svc.Login(ctx, "admin@gym.test", "sup3rsecret")
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.Equal(t, user.ID, loggedIn.ID)
	assert.Empty(t, loggedIn.PasswordHash)

	_, _, err = svc.Login(ctx, "admin@gym.test", "wrongpass")
	assert.ErrorIs(t, err, ErrAuthenticationFailed)
}

func TestAuthRegisterRejectsUnknownRole(t *testing.T) {
	svc := NewAuthService(newFakeUserRepo(), "test-secret", 0)

	_, err := svc.Register(context.Background(), "X", "x@gym.test", "password1", domain.Role("trainer"))
	assert.Error(t, err)
}
