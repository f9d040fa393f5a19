package repository

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/Sirdeeq/GBV-Backend/internal/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

// Requires a running MongoDB; set TEST_MONGO_URI to enable.
func newIntegrationRepo(t *testing.T) *UserRepository {
	t.Helper()
	uri := os.Getenv("TEST_MONGO_URI")
	if uri == "" {
		t.Skip("TEST_MONGO_URI not set, skipping integration test")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	require.NoError(t, err)

	db := client.Database("gbv_backend_test")
	t.Cleanup(func() {
		_ = db.Collection(usersCollection).Drop(context.Background())
		_ = client.Disconnect(context.Background())
	})

	return NewUserRepository(db, zap.NewNop())
}

func TestCreateAndFetchUser_Integration(t *testing.T) {
	repo := newIntegrationRepo(t)
	ctx := context.Background()

	user := &entity.User{
		FullName:     "Jane Doe",
		Email:        "a@x.com",
		Organization: "Acme",
		Phone:        "+15551234567",
		Address:      "1 Main St",
		Age:          30,
		Role:         entity.RoleUser,
		ProfileImage: entity.DefaultProfileImage,
		Password:     "$2a$10$fakefakefakefakefakefakefakefakefakefakefakefakefakef",
	}

	id, err := repo.Create(ctx, user)
	require.NoError(t, err)

	fetched, err := repo.GetByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "a@x.com", fetched.Email)
	assert.Equal(t, user.Password, fetched.Password)
	assert.Empty(t, fetched.VerificationCode)
	assert.False(t, fetched.CreatedAt.IsZero())
}

func TestDuplicateEmailRejected_Integration(t *testing.T) {
	repo := newIntegrationRepo(t)
	ctx := context.Background()

	first := &entity.User{Email: "dup@x.com", FullName: "First", Password: "digest"}
	_, err := repo.Create(ctx, first)
	require.NoError(t, err)

	second := &entity.User{Email: "dup@x.com", FullName: "Second", Password: "digest"}
	_, err = repo.Create(ctx, second)
	assert.ErrorIs(t, err, ErrDuplicateEmail)
}

func TestVerificationCodeLifecycle_Integration(t *testing.T) {
	repo := newIntegrationRepo(t)
	ctx := context.Background()

	id, err := repo.Create(ctx, &entity.User{Email: "code@x.com", Password: "digest"})
	require.NoError(t, err)

	require.NoError(t, repo.SetVerificationCode(ctx, id, "123456"))
	fetched, err := repo.GetByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "123456", fetched.VerificationCode)

	require.NoError(t, repo.ResetPassword(ctx, id, "new-digest"))
	fetched, err = repo.GetByID(ctx, id)
	require.NoError(t, err)
	assert.Empty(t, fetched.VerificationCode)
	assert.Equal(t, "new-digest", fetched.Password)
}

func TestDeleteUser_Integration(t *testing.T) {
	repo := newIntegrationRepo(t)
	ctx := context.Background()

	id, err := repo.Create(ctx, &entity.User{Email: "del@x.com", Password: "digest"})
	require.NoError(t, err)

	require.NoError(t, repo.Delete(ctx, id))
	_, err = repo.GetByID(ctx, id)
	assert.ErrorIs(t, err, ErrUserNotFound)
	assert.ErrorIs(t, repo.Delete(ctx, id), ErrUserNotFound)
}
