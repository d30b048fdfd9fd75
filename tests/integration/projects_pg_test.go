package integration

import (
	"context"
	"database/sql"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atelier-digital/atelier-backend/internal/projects"
)

// Skips unless TEST_DB_DSN points at a disposable PostgreSQL database.
func setupTestPostgres(t *testing.T) *pgxpool.Pool {
	t.Helper()

	dsn := os.Getenv("TEST_DB_DSN")
	if dsn == "" {
		t.Skip("TEST_DB_DSN not set, skipping PostgreSQL integration test")
	}

	setup, err := sql.Open("postgres", dsn)
	require.NoError(t, err)
	defer setup.Close()

	_, err = setup.Exec(`
create table if not exists projects (
    id uuid primary key,
    title text not null,
    description text,
    category text not null,
    images text[] not null default '{}',
    date date not null,
    location text,
    slug text not null unique,
    featured boolean not null default false,
    created_at timestamptz not null default now(),
    updated_at timestamptz not null default now()
);`)
	require.NoError(t, err)

	pool, err := pgxpool.New(context.Background(), dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)
	return pool
}

func insertTestProject(t *testing.T, repo *projects.Repo, title, slug string) *projects.Project {
	t.Helper()
	p := &projects.Project{
		ID:       uuid.NewString(),
		Title:    title,
		Category: "residential",
		Images:   []string{},
		Date:     time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		Slug:     slug,
	}
	require.NoError(t, repo.Insert(context.Background(), p))
	t.Cleanup(func() {
		_, _ = repo.Delete(context.Background(), p.ID)
	})
	return p
}

func TestRepoSlugUniqueViolation(t *testing.T) {
	pool := setupTestPostgres(t)
	repo := projects.NewRepo(pool)
	ctx := context.Background()

	slug := "it-" + uuid.NewString()[:8]
	insertTestProject(t, repo, "First", slug)

	dup := &projects.Project{
		ID:       uuid.NewString(),
		Title:    "Second",
		Category: "residential",
		Images:   []string{},
		Date:     time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC),
		Slug:     slug,
	}
	err := repo.Insert(ctx, dup)
	assert.ErrorIs(t, err, projects.ErrSlugTaken)
}

func TestRepoRoundTripWithImages(t *testing.T) {
	pool := setupTestPostgres(t)
	repo := projects.NewRepo(pool)
	ctx := context.Background()

	slug := "it-" + uuid.NewString()[:8]
	p := insertTestProject(t, repo, "Gallery House", slug)

	urls := []string{
		"https://cdn.example.com/" + p.ID + "/1.jpg",
		"https://cdn.example.com/" + p.ID + "/2.jpg",
	}
	require.NoError(t, repo.UpdateImages(ctx, p.ID, urls))

	got, err := repo.GetBySlug(ctx, slug)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Gallery House", got.Title)
	assert.Equal(t, urls, got.Images, "text[] column must round-trip in order")
}

func TestRepoSlugExistsExcludesSelf(t *testing.T) {
	pool := setupTestPostgres(t)
	repo := projects.NewRepo(pool)
	ctx := context.Background()

	slug := "it-" + uuid.NewString()[:8]
	p := insertTestProject(t, repo, "Self", slug)

	exists, err := repo.SlugExists(ctx, slug, "")
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = repo.SlugExists(ctx, slug, p.ID)
	require.NoError(t, err)
	assert.False(t, exists, "a row must not collide with its own slug")
}
