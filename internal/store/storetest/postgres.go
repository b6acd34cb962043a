// ABOUTME: Disposable Postgres fixture for integration tests
// ABOUTME: Starts a container, applies the test schema, and returns an initialized Accessor

package storetest

import (
	"context"
	_ "embed"
	"log/slog"
	"testing"
	"time"

	"github.com/2389/unwind-gateway/internal/store"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
)

//go:embed schema.sql
var schemaSQL string

// Image is the Postgres image used by integration tests.
const Image = "postgres:16-alpine"

// Fixture is a running database with the test schema applied.
type Fixture struct {
	// ConnString reaches the container with sslmode disabled.
	ConnString string
	// Accessor is initialized against ConnString and closed on cleanup.
	Accessor *store.Accessor
}

// PoolConfig returns a config pointing at the fixture.
func (f *Fixture) PoolConfig() store.PoolConfig {
	return store.PoolConfig{URL: f.ConnString}
}

// NewPostgres starts a Postgres container for the test. It skips under -short
// or when no container runtime is available.
func NewPostgres(t *testing.T) *Fixture {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping Postgres integration test in short mode")
	}
	testcontainers.SkipIfProviderIsNotHealthy(t)

	ctx := context.Background()
	ctr, err := postgres.Run(ctx, Image,
		postgres.WithDatabase("unwind"),
		postgres.WithUsername("unwind"),
		postgres.WithPassword("unwind"),
		postgres.BasicWaitStrategies(),
	)
	testcontainers.CleanupContainer(t, ctr)
	require.NoError(t, err)

	connString, err := ctr.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	acc := store.New(store.PoolConfig{URL: connString, MaxConns: 4}, slog.Default())
	require.NoError(t, acc.Init(ctx))
	t.Cleanup(acc.Close)

	_, err = acc.Execute(ctx, schemaSQL)
	require.NoError(t, err, "applying test schema")

	return &Fixture{ConnString: connString, Accessor: acc}
}

// Seeder inserts test rows through the fixture's accessor.
type Seeder struct {
	t   *testing.T
	acc *store.Accessor
}

// Seed returns a Seeder for the fixture.
func (f *Fixture) Seed(t *testing.T) *Seeder {
	return &Seeder{t: t, acc: f.Accessor}
}

// User inserts a user and returns its id.
func (s *Seeder) User(anxietyType string) string {
	s.t.Helper()
	id := uuid.NewString()
	_, err := s.acc.Execute(context.Background(),
		`INSERT INTO users (id, anxiety_type) VALUES ($1, $2)`, id, anxietyType)
	require.NoError(s.t, err)
	return id
}

// Item describes a row to insert into items. Zero values take the table defaults.
type Item struct {
	Title        string
	Description  string
	Category     string
	Priority     string
	Status       string
	Score        float64
	DueInDays    *int
	WorrySpiral  bool
	CompletedAgo time.Duration
	Notes        string
	Tags         []string
}

// DaysFromNow is a helper for Item.DueInDays.
func DaysFromNow(n int) *int {
	return &n
}

// Item inserts an item for userID and returns its id.
func (s *Seeder) Item(userID string, it Item) string {
	s.t.Helper()
	ctx := context.Background()

	if it.Category == "" {
		it.Category = "Tasks"
	}
	if it.Priority == "" {
		it.Priority = "medium"
	}
	if it.Status == "" {
		it.Status = "pending"
	}

	var due any
	if it.DueInDays != nil {
		due = *it.DueInDays
	}
	var completedAt any
	if it.Status == "completed" {
		completedAt = time.Now().Add(-it.CompletedAgo)
	}
	var notes any
	if it.Notes != "" {
		notes = it.Notes
	}

	id := uuid.NewString()
	_, err := s.acc.Execute(ctx, `
		INSERT INTO items (
			id, user_id, category_id, title, description, priority, status,
			final_priority_score, due_date, is_worry_spiral, completed_at, user_notes
		)
		SELECT $1::uuid, $2::uuid, c.id, $4::text, NULLIF($5::text, ''), $6::text, $7::text,
			$8::numeric, CURRENT_DATE + $9::int, $10::boolean, $11::timestamptz, $12::text
		FROM categories c WHERE c.name = $3
	`, id, userID, it.Category, it.Title, it.Description, it.Priority, it.Status,
		it.Score, due, it.WorrySpiral, completedAt, notes)
	require.NoError(s.t, err)

	for _, tag := range it.Tags {
		_, err := s.acc.Execute(ctx, `INSERT INTO item_tags (item_id, tag) VALUES ($1, $2)`, id, tag)
		require.NoError(s.t, err)
	}
	return id
}

// Completion inserts a completions_log row ago before now.
func (s *Seeder) Completion(userID, itemID string, ago time.Duration, moodAfter string) {
	s.t.Helper()
	var item any
	if itemID != "" {
		item = itemID
	}
	_, err := s.acc.Execute(context.Background(), `
		INSERT INTO completions_log (user_id, item_id, completed_at, completion_time_minutes, user_mood_after)
		VALUES ($1, $2, $3, 15, NULLIF($4, ''))
	`, userID, item, time.Now().Add(-ago), moodAfter)
	require.NoError(s.t, err)
}
