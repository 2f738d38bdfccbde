package store_test

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lostintravel/travelsync/internal/destination"
	"github.com/lostintravel/travelsync/internal/store"
)

// ---- mock Querier ----

type mockQuerier struct {
	queryRowFn func(ctx context.Context, sql string, args ...any) pgx.Row
	queryFn    func(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	execFn     func(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	beginFn    func(ctx context.Context) (pgx.Tx, error)
}

func (m *mockQuerier) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	return m.queryRowFn(ctx, sql, args...)
}
func (m *mockQuerier) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return m.queryFn(ctx, sql, args...)
}
func (m *mockQuerier) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	return m.execFn(ctx, sql, args...)
}
func (m *mockQuerier) Begin(ctx context.Context) (pgx.Tx, error) {
	return m.beginFn(ctx)
}

// ---- mock pgx.Row ----

type fakeRow struct {
	scanFn func(dest ...any) error
}

func (f *fakeRow) Scan(dest ...any) error { return f.scanFn(dest...) }

// ---- mock pgx.Rows ----

type fakeRows struct {
	rows    [][]any
	idx     int
	rowErr  error
	scanErr error
}

func (f *fakeRows) Next() bool                                   { f.idx++; return f.idx <= len(f.rows) }
func (f *fakeRows) Err() error                                   { return f.rowErr }
func (f *fakeRows) Close()                                       {}
func (f *fakeRows) CommandTag() pgconn.CommandTag                { return pgconn.CommandTag{} }
func (f *fakeRows) FieldDescriptions() []pgconn.FieldDescription { return nil }
func (f *fakeRows) Values() ([]any, error)                       { return nil, nil }
func (f *fakeRows) RawValues() [][]byte                          { return nil }
func (f *fakeRows) Conn() *pgx.Conn                              { return nil }

func (f *fakeRows) Scan(dest ...any) error {
	if f.scanErr != nil {
		return f.scanErr
	}
	row := f.rows[f.idx-1]
	for i, d := range dest {
		if i >= len(row) {
			break
		}
		switch v := d.(type) {
		case *string:
			*v = row[i].(string)
		case *float64:
			*v = row[i].(float64)
		case *bool:
			*v = row[i].(bool)
		case *[]string:
			*v = row[i].([]string)
		case *time.Time:
			*v = row[i].(time.Time)
		}
	}
	return nil
}

// ---- mock pgx.Tx ----

type mockTx struct {
	execFn     func(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	commitFn   func(ctx context.Context) error
	rollbackFn func(ctx context.Context) error
	rolledBack bool
}

func (t *mockTx) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	return t.execFn(ctx, sql, args...)
}
func (t *mockTx) Commit(ctx context.Context) error { return t.commitFn(ctx) }
func (t *mockTx) Rollback(ctx context.Context) error {
	t.rolledBack = true
	if t.rollbackFn != nil {
		return t.rollbackFn(ctx)
	}
	return nil
}

// pgx.Tx has many more methods — stub them all out.
func (t *mockTx) Begin(ctx context.Context) (pgx.Tx, error) { return nil, nil }
func (t *mockTx) CopyFrom(_ context.Context, _ pgx.Identifier, _ []string, _ pgx.CopyFromSource) (int64, error) {
	return 0, nil
}
func (t *mockTx) SendBatch(_ context.Context, _ *pgx.Batch) pgx.BatchResults { return nil }
func (t *mockTx) LargeObjects() pgx.LargeObjects                             { return pgx.LargeObjects{} }
func (t *mockTx) Prepare(_ context.Context, _, _ string) (*pgconn.StatementDescription, error) {
	return nil, nil
}
func (t *mockTx) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row { return nil }
func (t *mockTx) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return nil, nil
}
func (t *mockTx) Conn() *pgx.Conn { return nil }

// ---- helpers ----

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestStore(q store.Querier) *store.Store {
	return store.NewStoreWithQuerier(q, testLogger())
}

// sampleRow returns one destination row in column order.
func sampleRow(id, name string) []any {
	now := time.Now().UTC().Truncate(time.Second)
	return []any{
		id, name, "Athens", "Greece", "white houses", "https://img/" + id, 4.7, "$$",
		[]string{"beach", "island"},
		false, true, false, false, now,
	}
}

func noopExec(_ context.Context, _ string, _ ...any) (pgconn.CommandTag, error) {
	return pgconn.CommandTag{}, nil
}

// ---- reads ----

func TestGetByID_Found(t *testing.T) {
	now := time.Now().UTC().Truncate(time.Second)
	q := &mockQuerier{
		queryRowFn: func(_ context.Context, _ string, args ...any) pgx.Row {
			assert.Equal(t, []any{"dest-1"}, args)
			return &fakeRow{scanFn: func(dest ...any) error {
				row := sampleRow("dest-1", "Mykonos")
				row[len(row)-1] = now
				return (&fakeRows{rows: [][]any{row}, idx: 1}).Scan(dest...)
			}}
		},
	}

	s := newTestStore(q)
	d, err := s.GetByID(context.Background(), "dest-1")
	require.NoError(t, err)
	require.NotNil(t, d)
	assert.Equal(t, "Mykonos", d.Name)
	assert.Equal(t, "Greece", d.Country)
	assert.Equal(t, []string{"beach", "island"}, d.Tags)
	assert.True(t, d.IsPopular)
	assert.False(t, d.IsFavorite)
	assert.True(t, d.LastUpdated.Equal(now))
}

func TestGetByID_NotFound(t *testing.T) {
	q := &mockQuerier{
		queryRowFn: func(_ context.Context, _ string, _ ...any) pgx.Row {
			return &fakeRow{scanFn: func(dest ...any) error { return pgx.ErrNoRows }}
		},
	}

	s := newTestStore(q)
	d, err := s.GetByID(context.Background(), "ghost")
	require.NoError(t, err)
	assert.Nil(t, d)
}

func TestGetByID_DBError(t *testing.T) {
	q := &mockQuerier{
		queryRowFn: func(_ context.Context, _ string, _ ...any) pgx.Row {
			return &fakeRow{scanFn: func(dest ...any) error { return fmt.Errorf("connection reset") }}
		},
	}

	s := newTestStore(q)
	_, err := s.GetByID(context.Background(), "dest-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "querying destination")
}

func TestGetCategory_FiltersByFlag(t *testing.T) {
	var capturedSQL string
	q := &mockQuerier{
		queryFn: func(_ context.Context, sql string, _ ...any) (pgx.Rows, error) {
			capturedSQL = sql
			return &fakeRows{rows: [][]any{sampleRow("dest-1", "Mykonos")}}, nil
		},
	}

	s := newTestStore(q)
	ds, err := s.GetCategory(context.Background(), destination.Popular)
	require.NoError(t, err)
	require.Len(t, ds, 1)
	assert.Contains(t, capturedSQL, "WHERE is_popular")
}

func TestGetCategory_AllHasNoFlagFilter(t *testing.T) {
	var capturedSQL string
	q := &mockQuerier{
		queryFn: func(_ context.Context, sql string, _ ...any) (pgx.Rows, error) {
			capturedSQL = sql
			return &fakeRows{}, nil
		},
	}

	s := newTestStore(q)
	_, err := s.GetCategory(context.Background(), destination.All)
	require.NoError(t, err)
	assert.NotContains(t, capturedSQL, "WHERE")
}

func TestSearch_MatchesSubstringCaseInsensitive(t *testing.T) {
	var capturedSQL string
	var capturedArgs []any
	q := &mockQuerier{
		queryFn: func(_ context.Context, sql string, args ...any) (pgx.Rows, error) {
			capturedSQL = sql
			capturedArgs = args
			return &fakeRows{}, nil
		},
	}

	s := newTestStore(q)
	_, err := s.Search(context.Background(), "myko")
	require.NoError(t, err)
	assert.Contains(t, capturedSQL, "ILIKE")
	assert.Contains(t, capturedSQL, "city")
	assert.Contains(t, capturedSQL, "country")
	require.Len(t, capturedArgs, 1)
	assert.Equal(t, "%myko%", capturedArgs[0])
}

func TestList_ScanError(t *testing.T) {
	q := &mockQuerier{
		queryFn: func(_ context.Context, _ string, _ ...any) (pgx.Rows, error) {
			return &fakeRows{rows: [][]any{sampleRow("dest-1", "Mykonos")}, scanErr: fmt.Errorf("scan failed")}, nil
		},
	}

	s := newTestStore(q)
	_, err := s.GetAll(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "scanning")
}

func TestList_RowsErr(t *testing.T) {
	q := &mockQuerier{
		queryFn: func(_ context.Context, _ string, _ ...any) (pgx.Rows, error) {
			return &fakeRows{rowErr: fmt.Errorf("rows iteration error")}, nil
		},
	}

	s := newTestStore(q)
	_, err := s.GetAll(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "iterating")
}

// ---- writes ----

func TestUpsertMany_DoesNotTouchFlags(t *testing.T) {
	var statements []string
	q := &mockQuerier{
		execFn: func(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
			statements = append(statements, sql)
			return pgconn.CommandTag{}, nil
		},
	}

	s := newTestStore(q)
	ds := []destination.Destination{{ID: "dest-1", Name: "Mykonos"}, {ID: "dest-2", Name: "Santorini"}}
	require.NoError(t, s.UpsertMany(context.Background(), ds))

	require.Len(t, statements, 2)
	for _, sql := range statements {
		update := sql[strings.Index(sql, "DO UPDATE"):]
		assert.NotContains(t, update, "is_popular", "plain upsert must not touch category flags")
		assert.NotContains(t, sql, "is_favorite", "upsert must never touch the favorite flag")
	}
}

func TestUpsertMany_ExecError(t *testing.T) {
	q := &mockQuerier{
		execFn: func(_ context.Context, _ string, _ ...any) (pgconn.CommandTag, error) {
			return pgconn.CommandTag{}, fmt.Errorf("db error")
		},
	}

	s := newTestStore(q)
	err := s.UpsertMany(context.Background(), []destination.Destination{{ID: "dest-1"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "upserting destination")
}

func TestSetFavorite(t *testing.T) {
	var capturedArgs []any
	q := &mockQuerier{
		execFn: func(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
			assert.Contains(t, sql, "SET is_favorite")
			capturedArgs = args
			return pgconn.CommandTag{}, nil
		},
	}

	s := newTestStore(q)
	require.NoError(t, s.SetFavorite(context.Background(), "dest-1", true))
	assert.Equal(t, []any{"dest-1", true}, capturedArgs)
}

func TestClear(t *testing.T) {
	var capturedSQL string
	q := &mockQuerier{
		execFn: func(_ context.Context, sql string, _ ...any) (pgconn.CommandTag, error) {
			capturedSQL = sql
			return pgconn.CommandTag{}, nil
		},
	}

	s := newTestStore(q)
	require.NoError(t, s.Clear(context.Background()))
	assert.Contains(t, capturedSQL, "DELETE FROM destinations")
}

// ---- ReplaceCategory ----

func TestReplaceCategory_ResetThenInsertInOneTx(t *testing.T) {
	var inTx []string
	tx := &mockTx{
		execFn: func(_ context.Context, sql string, _ ...any) (pgconn.CommandTag, error) {
			inTx = append(inTx, sql)
			return pgconn.CommandTag{}, nil
		},
	}
	committed := false
	tx.commitFn = func(_ context.Context) error { committed = true; return nil }

	q := &mockQuerier{
		beginFn: func(_ context.Context) (pgx.Tx, error) { return tx, nil },
	}

	s := newTestStore(q)
	ds := []destination.Destination{{ID: "dest-1", Name: "Mykonos"}, {ID: "dest-2", Name: "Santorini"}}
	require.NoError(t, s.ReplaceCategory(context.Background(), destination.Popular, ds))

	require.Len(t, inTx, 3)
	assert.Contains(t, inTx[0], "SET is_popular = FALSE", "reset must come first")
	assert.Contains(t, inTx[1], "INSERT INTO destinations")
	assert.Contains(t, inTx[1], "is_popular = TRUE")
	assert.Contains(t, inTx[2], "is_popular = TRUE")
	assert.True(t, committed)
}

func TestReplaceCategory_RollsBackOnInsertFailure(t *testing.T) {
	calls := 0
	tx := &mockTx{
		execFn: func(_ context.Context, _ string, _ ...any) (pgconn.CommandTag, error) {
			calls++
			if calls == 2 {
				return pgconn.CommandTag{}, fmt.Errorf("insert failed")
			}
			return pgconn.CommandTag{}, nil
		},
		commitFn: func(_ context.Context) error {
			t.Fatal("commit must not be reached after an insert failure")
			return nil
		},
	}

	q := &mockQuerier{
		beginFn: func(_ context.Context) (pgx.Tx, error) { return tx, nil },
	}

	s := newTestStore(q)
	err := s.ReplaceCategory(context.Background(), destination.Featured, []destination.Destination{{ID: "dest-1"}})
	require.Error(t, err)
	assert.True(t, tx.rolledBack, "flag reset without replacement rows must be rolled back")
}

func TestReplaceCategory_CommitError(t *testing.T) {
	tx := &mockTx{
		execFn:   noopExec,
		commitFn: func(_ context.Context) error { return fmt.Errorf("commit failed") },
	}
	q := &mockQuerier{
		beginFn: func(_ context.Context) (pgx.Tx, error) { return tx, nil },
	}

	s := newTestStore(q)
	err := s.ReplaceCategory(context.Background(), destination.Recommended, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "committing")
}

func TestReplaceCategory_RejectsUnflaggedCategory(t *testing.T) {
	s := newTestStore(&mockQuerier{})
	err := s.ReplaceCategory(context.Background(), destination.All, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no flag")
}

func TestReplaceCategory_BeginError(t *testing.T) {
	q := &mockQuerier{
		beginFn: func(_ context.Context) (pgx.Tx, error) { return nil, fmt.Errorf("cannot begin") },
	}

	s := newTestStore(q)
	err := s.ReplaceCategory(context.Background(), destination.Popular, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "beginning category replace")
}
