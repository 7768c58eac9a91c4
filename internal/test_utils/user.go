package test_utils

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
)

// InsertUser creates a user row that repository tests can attach their data to.
func InsertUser(t *testing.T, ctx context.Context, db *pgxpool.Pool, username string) int {
	t.Helper()
	var id int
	err := db.QueryRow(ctx,
		`INSERT INTO users (uid, username, display_name, email, phone, timezone)
		 VALUES ($1, $2, $2, $3, '+48600100200', 'Europe/Warsaw') RETURNING id`,
		uuid.NewString(), username, username+"@example.com",
	).Scan(&id)
	require.NoError(t, err)
	return id
}
