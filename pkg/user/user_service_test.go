package user

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateUser(t *testing.T) {
	service := NewUserService(NewStubUserRepository())
	ctx := context.Background()

	created, err := service.CreateUser(ctx, User{
		Username: "  jane ",
		Email:    "jane@example.com",
		Phone:    "+48 600-100-200",
		Settings: Settings{Timezone: "Europe/Warsaw"},
	})

	require.NoError(t, err)
	assert.NotZero(t, created.Id)
	assert.NotEmpty(t, created.Uid)
	assert.Equal(t, "jane", created.Username)

	byUid, err := service.GetUserByUid(ctx, created.Uid)
	require.NoError(t, err)
	assert.Equal(t, created.Id, byUid.Id)
}

func TestCreateUser_Validation(t *testing.T) {
	service := NewUserService(NewStubUserRepository())
	ctx := context.Background()

	testCases := []struct {
		name string
		user User
	}{
		{"missing username", User{Username: " "}},
		{"bad email", User{Username: "a", Email: "not-an-email"}},
		{"bad phone", User{Username: "b", Phone: "call me"}},
		{"too short phone", User{Username: "c", Phone: "+12"}},
		{"unknown timezone", User{Username: "d", Settings: Settings{Timezone: "Mars/Olympus"}}},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := service.CreateUser(ctx, tc.user)
			assert.ErrorIs(t, err, ErrInvalidUser)
		})
	}
}

func TestCreateUser_UsernameTaken(t *testing.T) {
	service := NewUserService(NewStubUserRepository())
	ctx := context.Background()
	_, err := service.CreateUser(ctx, User{Username: "jane"})
	require.NoError(t, err)

	_, err = service.CreateUser(ctx, User{Username: "jane"})

	assert.ErrorIs(t, err, ErrUsernameTaken)
}

func TestUpdateCurrentUser(t *testing.T) {
	service := NewUserService(NewStubUserRepository())
	created, err := service.CreateUser(context.Background(), User{Username: "jane"})
	require.NoError(t, err)
	ctx := WithUser(context.Background(), created)

	updated, err := service.UpdateCurrentUser(ctx, User{DisplayName: "Jane", Email: "jane@example.com"})

	require.NoError(t, err)
	assert.Equal(t, "Jane", updated.DisplayName)
	assert.Equal(t, "jane@example.com", updated.Email)
	assert.Equal(t, "jane", updated.Username)
}

func TestUpdateCurrentUser_NoUserInContext(t *testing.T) {
	service := NewUserService(NewStubUserRepository())

	_, err := service.UpdateCurrentUser(context.Background(), User{DisplayName: "x"})

	assert.ErrorIs(t, err, ErrNoUser)
}

func TestLocation(t *testing.T) {
	assert.Equal(t, "Europe/Warsaw", User{Settings: Settings{Timezone: "Europe/Warsaw"}}.Location().String())
	assert.Equal(t, "UTC", User{}.Location().String())
	assert.Equal(t, "UTC", User{Settings: Settings{Timezone: "nope"}}.Location().String())
}
