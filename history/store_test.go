package history

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kenjpais/diagram-generator/db"
	"github.com/kenjpais/diagram-generator/errors"
)

func setupStore(t *testing.T) (*Store, *sql.DB) {
	t.Helper()
	conn, err := db.OpenWithMigrations(db.MemoryPath, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return NewStore(conn), conn
}

func TestStore_SaveAndGet(t *testing.T) {
	store, _ := setupStore(t)
	ctx := context.Background()

	g := &Generation{
		ID:           "run-1",
		Request:      "a web shop with a database",
		Title:        "Shop",
		Strategy:     "compiler",
		Status:       StatusSucceeded,
		Attempts:     1,
		Validations:  2,
		ArtifactPath: "out/shop.svg",
		SourcePath:   "out/shop.dot",
		Format:       "svg",
		Duration:     1500 * time.Millisecond,
	}
	require.NoError(t, store.Save(ctx, g))
	assert.False(t, g.CreatedAt.IsZero(), "CreatedAt is filled in")

	got, err := store.Get(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, "Shop", got.Title)
	assert.Equal(t, 2, got.Validations)
	assert.Equal(t, "out/shop.svg", got.ArtifactPath)
	assert.Equal(t, 1500*time.Millisecond, got.Duration)
	assert.Empty(t, got.DocumentPath)
	assert.Empty(t, got.Error)

	_, err = store.Get(ctx, "missing")
	assert.True(t, errors.Is(err, sql.ErrNoRows))
}

func TestStore_SaveRejectsMissingID(t *testing.T) {
	store, _ := setupStore(t)
	err := store.Save(context.Background(), &Generation{Request: "x"})
	assert.True(t, errors.Is(err, errors.ErrInvalidRequest))
}

func TestStore_List(t *testing.T) {
	store, _ := setupStore(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	for i, id := range []string{"a", "b", "c"} {
		require.NoError(t, store.Save(ctx, &Generation{
			ID:        id,
			Request:   "req " + id,
			Strategy:  "llm",
			Status:    StatusFailed,
			Error:     "max retries exceeded",
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}))
	}

	all, err := store.List(ctx, 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "c", all[0].ID, "newest first")
	assert.Equal(t, "max retries exceeded", all[0].Error)

	two, err := store.List(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, two, 2)
}

func TestStore_DatabaseErrors(t *testing.T) {
	conn, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer conn.Close()
	store := NewStore(conn)
	ctx := context.Background()

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO generations")).
		WillReturnError(errors.New("sql: database is closed"))
	err = store.Save(ctx, &Generation{ID: "x", Request: "r", Strategy: "llm", Status: StatusFailed})
	require.Error(t, err)
	assert.True(t, errors.Is(err, db.ErrDatabaseClosed))

	mock.ExpectQuery(regexp.QuoteMeta("FROM generations")).
		WillReturnError(errors.New("disk I/O error"))
	_, err = store.List(ctx, 5)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to query generations")

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_Stats(t *testing.T) {
	store, _ := setupStore(t)
	ctx := context.Background()

	empty, err := store.Stats(ctx)
	require.NoError(t, err)
	assert.Zero(t, empty.Total)
	assert.Nil(t, empty.Last)

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	runs := []struct {
		id          string
		status      string
		validations int
		duration    time.Duration
	}{
		{"a", StatusSucceeded, 1, time.Second},
		{"b", StatusSucceeded, 3, 3 * time.Second},
		{"c", StatusFailed, 4, 2 * time.Second},
		{"d", StatusCancelled, 0, 0},
	}
	for i, r := range runs {
		require.NoError(t, store.Save(ctx, &Generation{
			ID:          r.id,
			Request:     "req",
			Strategy:    "compiler",
			Status:      r.status,
			Validations: r.validations,
			Duration:    r.duration,
			CreatedAt:   base.Add(time.Duration(i) * time.Minute),
		}))
	}

	st, err := store.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, st.Total)
	assert.Equal(t, map[string]int{StatusSucceeded: 2, StatusFailed: 1, StatusCancelled: 1}, st.ByStatus)
	assert.InDelta(t, 2.0, st.AvgValidations, 0.001)
	assert.InDelta(t, 1500.0, st.AvgDurationMS, 0.001)
	require.NotNil(t, st.Last)
	assert.True(t, base.Add(3*time.Minute).Equal(*st.Last))
}
