package archive

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSubmission(t *testing.T) {
	payload := []byte(`{"score":10}`)
	s := NewSubmission("sess-1", "Ann", "beginner", 10, 2, payload)

	assert.NotEmpty(t, s.ID.String())
	assert.Equal(t, StatusPending, s.Status)
	assert.Equal(t, 0, s.Attempts)
	assert.Equal(t, s.CreatedAt, s.UpdatedAt)
	assert.Equal(t, payload, s.Payload)

	payload[0] = '['
	assert.Equal(t, byte('{'), s.Payload[0], "payload must be copied")

	other := NewSubmission("sess-1", "Ann", "beginner", 10, 2, nil)
	assert.NotEqual(t, s.ID, other.ID)
}

func TestRepository_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		t.Skip("DATABASE_URL not set")
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dsn)
	require.NoError(t, err, "database connection failed")
	defer pool.Close()

	repo := NewRepository(pool)
	require.NoError(t, repo.EnsureSchema(ctx))
	require.NoError(t, repo.EnsureSchema(ctx), "schema creation must be repeatable")

	s := NewSubmission("sess-it", "Ann", "medium", 4200, 3, []byte(`{"score":4200,"final_stage":3}`))
	require.NoError(t, repo.Save(ctx, s))
	defer pool.Exec(ctx, `DELETE FROM arcade.submissions WHERE id = $1`, s.ID)

	pending, err := repo.ListPending(ctx, 1000)
	require.NoError(t, err)
	found := false
	for _, p := range pending {
		if p.ID == s.ID {
			found = true
			assert.Equal(t, "Ann", p.Nickname)
			assert.JSONEq(t, `{"score":4200,"final_stage":3}`, string(p.Payload))
		}
	}
	assert.True(t, found, "saved submission should be pending")

	require.NoError(t, repo.MarkAttempt(ctx, s.ID, "could not reach server"))
	got, err := repo.Get(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusPending, got.Status)
	assert.Equal(t, 1, got.Attempts)

	require.NoError(t, repo.MarkSubmitted(ctx, s.ID, "remote-1"))
	got, err = repo.Get(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusSubmitted, got.Status)
	assert.Equal(t, "remote-1", got.RemoteID)
	assert.Equal(t, 2, got.Attempts)

	u := NewSubmission("sess-it", "Ann", "medium", 1500.5, 2, []byte(`{"score":1500.5}`))
	require.NoError(t, repo.Save(ctx, u))
	defer pool.Exec(ctx, `DELETE FROM arcade.submissions WHERE id = $1`, u.ID)
	require.NoError(t, repo.MarkUnconfirmed(ctx, u.ID, "no response from server"))
	got, err = repo.Get(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusUnconfirmed, got.Status)
	assert.Equal(t, 1500.5, got.Score)
	pending, err = repo.ListPending(ctx, 1000)
	require.NoError(t, err)
	for _, p := range pending {
		assert.NotEqual(t, u.ID, p.ID, "unconfirmed submission must not be resubmitted")
	}

	err = repo.MarkRejected(ctx, NewSubmission("x", "x", "", 0, 0, nil).ID, "nope")
	assert.True(t, errors.Is(err, pgx.ErrNoRows))
}
