package services

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type ServiceItem struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	ImageURL    string    `json:"image_url,omitempty"`
	OrderIndex  int       `json:"order_index"`
	Active      bool      `json:"active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type Repo struct {
	db *pgxpool.Pool
}

func NewRepo(db *pgxpool.Pool) *Repo {
	return &Repo{db: db}
}

const serviceColumns = `id::text, name, coalesce(description,''), coalesce(image_url,''), order_index, active, created_at, updated_at`

func scanService(row pgx.Row) (*ServiceItem, error) {
	var s ServiceItem
	err := row.Scan(&s.ID, &s.Name, &s.Description, &s.ImageURL,
		&s.OrderIndex, &s.Active, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *Repo) Insert(ctx context.Context, s *ServiceItem) error {
	const q = `
insert into services (id, name, description, image_url, order_index, active)
values ($1::uuid, $2, nullif($3,''), nullif($4,''), coalesce((select max(order_index) + 1 from services), 0), $5)
returning order_index, created_at, updated_at;
`
	return r.db.QueryRow(ctx, q, s.ID, s.Name, s.Description, s.ImageURL, s.Active).
		Scan(&s.OrderIndex, &s.CreatedAt, &s.UpdatedAt)
}

func (r *Repo) Update(ctx context.Context, s *ServiceItem) error {
	const q = `
update services
set name = $2, description = nullif($3,''), image_url = nullif($4,''),
    active = $5, updated_at = now()
where id::text = $1
returning updated_at;
`
	return r.db.QueryRow(ctx, q, s.ID, s.Name, s.Description, s.ImageURL, s.Active).
		Scan(&s.UpdatedAt)
}

func (r *Repo) Delete(ctx context.Context, id string) (bool, error) {
	tag, err := r.db.Exec(ctx, `delete from services where id::text = $1;`, id)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (r *Repo) GetByID(ctx context.Context, id string) (*ServiceItem, error) {
	row := r.db.QueryRow(ctx, `select `+serviceColumns+` from services where id::text = $1;`, id)
	s, err := scanService(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return s, err
}

func (r *Repo) List(ctx context.Context, activeOnly bool) ([]ServiceItem, error) {
	q := `select ` + serviceColumns + ` from services`
	if activeOnly {
		q += ` where active`
	}
	q += ` order by order_index asc, created_at asc;`

	rows, err := r.db.Query(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := []ServiceItem{}
	for rows.Next() {
		s, err := scanService(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *s)
	}
	return items, rows.Err()
}

func (r *Repo) SetActive(ctx context.Context, id string, active bool) (*ServiceItem, error) {
	const q = `
update services set active = $2, updated_at = now()
where id::text = $1
returning ` + serviceColumns + `;`
	s, err := scanService(r.db.QueryRow(ctx, q, id, active))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return s, err
}

// Reorder rewrites order_index to match the position of each id in ids.
// Unknown ids are ignored by the update; missing ids keep their index.
func (r *Repo) Reorder(ctx context.Context, ids []string) error {
	batch := &pgx.Batch{}
	for i, id := range ids {
		batch.Queue(`update services set order_index = $2, updated_at = now() where id::text = $1;`, id, i)
	}

	results := r.db.SendBatch(ctx, batch)
	defer results.Close()

	for range ids {
		if _, err := results.Exec(); err != nil {
			return err
		}
	}
	return results.Close()
}
