package database

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/benvon/moodhome/internal/models"
)

// newTestDB opens a fresh SQLite database in a temp dir.
func newTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := New("sqlite://" + filepath.Join(t.TempDir(), "moodhome.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func newTestUser(t *testing.T, db *DB) *models.User {
	t.Helper()
	user := &models.User{Email: uuid.NewString() + "@example.com"}
	require.NoError(t, NewUserRepository(db).Create(context.Background(), user))
	return user
}

func TestNew_MigrateIsIdempotent(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	require.Equal(t, DriverSQLite, db.Driver)
	require.NoError(t, db.migrate(context.Background()))
	require.NoError(t, db.HealthCheck(context.Background()))
}

func TestNow_StrictlyIncreasing(t *testing.T) {
	t.Parallel()

	db := &DB{}
	prev := db.Now()
	for i := 0; i < 1000; i++ {
		next := db.Now()
		require.True(t, next.After(prev), "instant %d did not advance", i)
		prev = next
	}
}

func TestSuggestionOrder_ByteOrderIDs(t *testing.T) {
	t.Parallel()

	pg := NewSuggestionRepository(&DB{Driver: DriverPostgres})
	require.True(t, strings.HasSuffix(pg.order, `id COLLATE "C" ASC`), pg.order)

	lite := NewSuggestionRepository(&DB{Driver: DriverSQLite})
	require.True(t, strings.HasSuffix(lite.order, "created_at DESC, id ASC"), lite.order)
}
