package projects

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrSlugTaken surfaces a unique violation on the slug column so the
// service can retry with a fresh suffix.
var ErrSlugTaken = errors.New("slug already taken")

type Project struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Category    string    `json:"category"`
	Images      []string  `json:"images"`
	Date        time.Time `json:"date"`
	Location    string    `json:"location,omitempty"`
	Slug        string    `json:"slug"`
	Featured    bool      `json:"featured"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type Filter struct {
	Category     string
	FeaturedOnly bool
}

type Repo struct {
	db *pgxpool.Pool
}

func NewRepo(db *pgxpool.Pool) *Repo {
	return &Repo{db: db}
}

const projectColumns = `id::text, title, coalesce(description,''), category, images, date, coalesce(location,''), slug, featured, created_at, updated_at`

func scanProject(row pgx.Row) (*Project, error) {
	var p Project
	err := row.Scan(&p.ID, &p.Title, &p.Description, &p.Category, &p.Images, &p.Date,
		&p.Location, &p.Slug, &p.Featured, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if p.Images == nil {
		p.Images = []string{}
	}
	return &p, nil
}

func (r *Repo) Insert(ctx context.Context, p *Project) error {
	const q = `
insert into projects (id, title, description, category, images, date, location, slug, featured)
values ($1::uuid, $2, nullif($3,''), $4, $5, $6, nullif($7,''), $8, $9)
returning created_at, updated_at;
`
	err := r.db.QueryRow(ctx, q, p.ID, p.Title, p.Description, p.Category, p.Images,
		p.Date, p.Location, p.Slug, p.Featured).Scan(&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrSlugTaken
		}
		return err
	}
	return nil
}

func (r *Repo) Update(ctx context.Context, p *Project) error {
	const q = `
update projects
set title = $2, description = nullif($3,''), category = $4, images = $5,
    date = $6, location = nullif($7,''), slug = $8, featured = $9, updated_at = now()
where id = $1::uuid
returning updated_at;
`
	err := r.db.QueryRow(ctx, q, p.ID, p.Title, p.Description, p.Category, p.Images,
		p.Date, p.Location, p.Slug, p.Featured).Scan(&p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return pgx.ErrNoRows
		}
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrSlugTaken
		}
		return err
	}
	return nil
}

func (r *Repo) Delete(ctx context.Context, id string) (bool, error) {
	ct, err := r.db.Exec(ctx, `delete from projects where id = $1::uuid;`, id)
	if err != nil {
		return false, err
	}
	return ct.RowsAffected() > 0, nil
}

func (r *Repo) GetByID(ctx context.Context, id string) (*Project, error) {
	row := r.db.QueryRow(ctx, `select `+projectColumns+` from projects where id = $1::uuid;`, id)
	p, err := scanProject(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return p, err
}

func (r *Repo) GetBySlug(ctx context.Context, slug string) (*Project, error) {
	row := r.db.QueryRow(ctx, `select `+projectColumns+` from projects where slug = $1;`, slug)
	p, err := scanProject(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return p, err
}

func (r *Repo) List(ctx context.Context, f Filter) ([]Project, error) {
	const q = `
select ` + projectColumns + `
from projects
where ($1 = '' or category = $1)
  and (not $2 or featured)
order by date desc, created_at desc;
`
	rows, err := r.db.Query(ctx, q, f.Category, f.FeaturedOnly)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Project, 0, 16)
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

func (r *Repo) SlugExists(ctx context.Context, slug, excludeID string) (bool, error) {
	const q = `
select exists (
  select 1 from projects
  where slug = $1 and ($2 = '' or id::text <> $2)
);
`
	var exists bool
	if err := r.db.QueryRow(ctx, q, slug, excludeID).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

func (r *Repo) SetFeatured(ctx context.Context, id string, featured bool) (*Project, error) {
	const q = `
update projects set featured = $2, updated_at = now()
where id = $1::uuid
returning ` + projectColumns + `;
`
	p, err := scanProject(r.db.QueryRow(ctx, q, id, featured))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return p, err
}

func (r *Repo) UpdateImages(ctx context.Context, id string, images []string) error {
	_, err := r.db.Exec(ctx,
		`update projects set images = $2, updated_at = now() where id = $1::uuid;`, id, images)
	return err
}
