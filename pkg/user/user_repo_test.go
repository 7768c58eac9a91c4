package user

import (
	"context"
	"os"
	"testing"

	"github.com/agendly/agendly/internal/test_utils"
	"github.com/jackc/pgx/v5/pgxpool"
	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
)

var pgContainer *postgres.PostgresContainer
var openDb func() *pgxpool.Pool

func TestMain(m *testing.M) {
	pgContainer, openDb = test_utils.TestWithDB()
	code := m.Run()
	if err := testcontainers.TerminateContainer(pgContainer); err != nil {
		log.Errorf("failed to terminate container: %s", err)
	}
	os.Exit(code)
}

func setupTestRepository(t *testing.T) (context.Context, *UserRepoImpl) {
	ctx := context.Background()
	db := openDb()
	t.Cleanup(func() {
		db.Close()
		err := pgContainer.Restore(ctx)
		require.NoError(t, err)
	})
	return ctx, NewUserRepo(db)
}

func TestUserRepoImpl_CreateAndGet(t *testing.T) {
	// given
	ctx, repo := setupTestRepository(t)
	newUser := User{
		Uid:         "uid-1",
		Username:    "jane",
		DisplayName: "Jane",
		Email:       "jane@example.com",
		Phone:       "+48600100200",
		Settings:    Settings{Timezone: "Europe/Warsaw"},
	}

	// when
	id, err := repo.CreateUser(ctx, newUser)

	// then
	require.NoError(t, err)
	stored, err := repo.GetUser(ctx, id)
	require.NoError(t, err)
	newUser.Id = id
	assert.Equal(t, newUser, stored)

	byUid, err := repo.GetUserByUid(ctx, "uid-1")
	require.NoError(t, err)
	assert.Equal(t, newUser, byUid)
}

func TestUserRepoImpl_DefaultsAndMissing(t *testing.T) {
	ctx, repo := setupTestRepository(t)

	id, err := repo.CreateUser(ctx, User{Uid: "uid-2", Username: "no-contact"})
	require.NoError(t, err)

	stored, err := repo.GetUser(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "UTC", stored.Settings.Timezone)
	assert.Empty(t, stored.Email)
	assert.Empty(t, stored.Phone)

	_, err = repo.GetUser(ctx, id+100)
	assert.ErrorIs(t, err, ErrUserNotFound)
	_, err = repo.GetUserByUid(ctx, "missing")
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestUserRepoImpl_UpdateUser(t *testing.T) {
	ctx, repo := setupTestRepository(t)
	id, err := repo.CreateUser(ctx, User{Uid: "uid-3", Username: "jo"})
	require.NoError(t, err)

	updated, err := repo.UpdateUser(ctx, id, User{
		DisplayName: "Jo",
		Email:       "jo@example.com",
		Settings:    Settings{Timezone: "America/New_York"},
	})

	require.NoError(t, err)
	assert.Equal(t, "jo", updated.Username)
	assert.Equal(t, "Jo", updated.DisplayName)
	assert.Equal(t, "jo@example.com", updated.Email)
	assert.Equal(t, "America/New_York", updated.Settings.Timezone)

	available, err := repo.IsUsernameAvailable(ctx, "jo")
	require.NoError(t, err)
	assert.False(t, available)
	available, err = repo.IsUsernameAvailable(ctx, "someone-else")
	require.NoError(t, err)
	assert.True(t, available)
}
