// Package services manages the offerings shown on the public services
// page: ordered, individually toggleable entries with a single image.
package services

import (
	"context"

	"github.com/google/uuid"

	"github.com/atelier-digital/atelier-backend/internal/apperr"
	"github.com/atelier-digital/atelier-backend/internal/logging"
	"github.com/atelier-digital/atelier-backend/internal/sanitize"
	"github.com/atelier-digital/atelier-backend/internal/storage"
)

const (
	maxNameLen        = 150
	maxDescriptionLen = 1000
)

type Store interface {
	Insert(ctx context.Context, s *ServiceItem) error
	Update(ctx context.Context, s *ServiceItem) error
	Delete(ctx context.Context, id string) (bool, error)
	GetByID(ctx context.Context, id string) (*ServiceItem, error)
	List(ctx context.Context, activeOnly bool) ([]ServiceItem, error)
	SetActive(ctx context.Context, id string, active bool) (*ServiceItem, error)
	Reorder(ctx context.Context, ids []string) error
}

type Revalidator interface {
	Revalidate(ctx context.Context, paths ...string)
}

type Manager struct {
	store Store
	blobs storage.BlobStore
	reval Revalidator
}

func NewManager(store Store, blobs storage.BlobStore, reval Revalidator) *Manager {
	return &Manager{store: store, blobs: blobs, reval: reval}
}

type Input struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	ImageURL    string `json:"image_url"`
	Active      *bool  `json:"active"`
}

func (m *Manager) Create(ctx context.Context, in Input) (*ServiceItem, error) {
	s, err := cleanInput(in)
	if err != nil {
		return nil, err
	}
	s.ID = uuid.NewString()

	if err := m.store.Insert(ctx, s); err != nil {
		return nil, apperr.Internal("service_insert", err)
	}

	m.revalidate(ctx)
	return s, nil
}

func (m *Manager) Update(ctx context.Context, id string, in Input) (*ServiceItem, error) {
	existing, err := m.store.GetByID(ctx, id)
	if err != nil {
		return nil, apperr.Internal("service_get", err)
	}
	if existing == nil {
		return nil, apperr.NotFound("service not found")
	}

	s, err := cleanInput(in)
	if err != nil {
		return nil, err
	}
	s.ID = existing.ID
	s.OrderIndex = existing.OrderIndex
	s.CreatedAt = existing.CreatedAt
	if in.Active == nil {
		s.Active = existing.Active
	}

	if err := m.store.Update(ctx, s); err != nil {
		return nil, apperr.Internal("service_update", err)
	}

	m.revalidate(ctx)
	return s, nil
}

func (m *Manager) Delete(ctx context.Context, id string) error {
	logger := logging.NewLogger(ctx)

	existing, err := m.store.GetByID(ctx, id)
	if err != nil {
		return apperr.Internal("service_get", err)
	}
	if existing == nil {
		return apperr.NotFound("service not found")
	}

	if key, ok := m.blobs.KeyFromURL(existing.ImageURL); ok {
		if err := m.blobs.Remove(ctx, []string{key}); err != nil {
			logger.LogWarnf("service_delete", "blob cleanup failed for %s: %v", existing.ID, err)
		}
	}

	ok, err := m.store.Delete(ctx, id)
	if err != nil {
		return apperr.Internal("service_delete", err)
	}
	if !ok {
		return apperr.NotFound("service not found")
	}

	m.revalidate(ctx)
	return nil
}

func (m *Manager) ToggleActive(ctx context.Context, id string) (*ServiceItem, error) {
	existing, err := m.store.GetByID(ctx, id)
	if err != nil {
		return nil, apperr.Internal("service_get", err)
	}
	if existing == nil {
		return nil, apperr.NotFound("service not found")
	}

	s, err := m.store.SetActive(ctx, id, !existing.Active)
	if err != nil {
		return nil, apperr.Internal("service_set_active", err)
	}
	if s == nil {
		return nil, apperr.NotFound("service not found")
	}

	m.revalidate(ctx)
	return s, nil
}

// Reorder applies the given id order; every current service must be
// named exactly once so a stale admin view cannot silently drop rows.
func (m *Manager) Reorder(ctx context.Context, ids []string) ([]ServiceItem, error) {
	if len(ids) == 0 {
		return nil, apperr.Validation("ids are required")
	}

	current, err := m.store.List(ctx, false)
	if err != nil {
		return nil, apperr.Internal("service_list", err)
	}

	known := make(map[string]bool, len(current))
	for _, s := range current {
		known[s.ID] = true
	}
	if len(ids) != len(current) {
		return nil, apperr.Validation("ids must name every service exactly once")
	}
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		if !known[id] || seen[id] {
			return nil, apperr.Validation("ids must name every service exactly once")
		}
		seen[id] = true
	}

	if err := m.store.Reorder(ctx, ids); err != nil {
		return nil, apperr.Internal("service_reorder", err)
	}

	m.revalidate(ctx)

	items, err := m.store.List(ctx, false)
	if err != nil {
		return nil, apperr.Internal("service_list", err)
	}
	return items, nil
}

func (m *Manager) List(ctx context.Context, activeOnly bool) ([]ServiceItem, error) {
	items, err := m.store.List(ctx, activeOnly)
	if err != nil {
		return nil, apperr.Internal("service_list", err)
	}
	return items, nil
}

func (m *Manager) revalidate(ctx context.Context) {
	m.reval.Revalidate(ctx, "/services", "/")
}

func cleanInput(in Input) (*ServiceItem, error) {
	s := &ServiceItem{
		Name:        sanitize.Text(in.Name, maxNameLen),
		Description: sanitize.Text(in.Description, maxDescriptionLen),
		ImageURL:    sanitize.URL(in.ImageURL),
		Active:      true,
	}
	if in.Active != nil {
		s.Active = *in.Active
	}
	if s.Name == "" {
		return nil, apperr.Validation("name is required")
	}
	return s, nil
}
