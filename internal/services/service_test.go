package services

import (
	"context"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atelier-digital/atelier-backend/internal/apperr"
	"github.com/atelier-digital/atelier-backend/internal/storage"
)

type fakeStore struct {
	mu    sync.Mutex
	items map[string]*ServiceItem
	next  int
}

func newFakeStore() *fakeStore {
	return &fakeStore{items: map[string]*ServiceItem{}}
}

func (s *fakeStore) Insert(_ context.Context, item *ServiceItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	item.OrderIndex = s.next
	s.next++
	cp := *item
	s.items[item.ID] = &cp
	return nil
}

func (s *fakeStore) Update(_ context.Context, item *ServiceItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *item
	s.items[item.ID] = &cp
	return nil
}

func (s *fakeStore) Delete(_ context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.items[id]; !ok {
		return false, nil
	}
	delete(s.items, id)
	return true, nil
}

func (s *fakeStore) GetByID(_ context.Context, id string) (*ServiceItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	item, ok := s.items[id]
	if !ok {
		return nil, nil
	}
	cp := *item
	return &cp, nil
}

func (s *fakeStore) List(_ context.Context, activeOnly bool) ([]ServiceItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []ServiceItem{}
	for _, item := range s.items {
		if activeOnly && !item.Active {
			continue
		}
		out = append(out, *item)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].OrderIndex < out[j].OrderIndex })
	return out, nil
}

func (s *fakeStore) SetActive(_ context.Context, id string, active bool) (*ServiceItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	item, ok := s.items[id]
	if !ok {
		return nil, nil
	}
	item.Active = active
	cp := *item
	return &cp, nil
}

func (s *fakeStore) Reorder(_ context.Context, ids []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, id := range ids {
		if item, ok := s.items[id]; ok {
			item.OrderIndex = i
		}
	}
	return nil
}

type fakeRevalidator struct {
	mu    sync.Mutex
	paths []string
}

func (r *fakeRevalidator) Revalidate(_ context.Context, paths ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.paths = append(r.paths, paths...)
}

func newTestManager() (*Manager, *fakeStore, *storage.MemStore, *fakeRevalidator) {
	store := newFakeStore()
	blobs := storage.NewMemStore("https://cdn.example.com")
	reval := &fakeRevalidator{}
	return NewManager(store, blobs, reval), store, blobs, reval
}

func TestCreateAppendsToOrder(t *testing.T) {
	m, _, _, reval := newTestManager()
	ctx := context.Background()

	first, err := m.Create(ctx, Input{Name: "Kitchen Remodels"})
	require.NoError(t, err)
	second, err := m.Create(ctx, Input{Name: "Bathroom Remodels"})
	require.NoError(t, err)

	assert.Equal(t, 0, first.OrderIndex)
	assert.Equal(t, 1, second.OrderIndex)
	assert.True(t, first.Active, "services default to active")
	assert.Contains(t, reval.paths, "/services")
}

func TestCreateSanitizesAndValidates(t *testing.T) {
	m, _, _, _ := newTestManager()
	ctx := context.Background()

	_, err := m.Create(ctx, Input{Name: "<b></b>"})
	require.Error(t, err)
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))

	s, err := m.Create(ctx, Input{
		Name:     "Decks <script>x</script>",
		ImageURL: "javascript:alert(1)",
	})
	require.NoError(t, err)
	assert.Equal(t, "Decks x", s.Name)
	assert.Empty(t, s.ImageURL)
}

func TestListActiveFiltersInactive(t *testing.T) {
	m, _, _, _ := newTestManager()
	ctx := context.Background()

	a, err := m.Create(ctx, Input{Name: "A"})
	require.NoError(t, err)
	_, err = m.Create(ctx, Input{Name: "B"})
	require.NoError(t, err)

	_, err = m.ToggleActive(ctx, a.ID)
	require.NoError(t, err)

	active, err := m.List(ctx, true)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "B", active[0].Name)

	all, err := m.List(ctx, false)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestReorderValidatesCompleteness(t *testing.T) {
	m, _, _, _ := newTestManager()
	ctx := context.Background()

	a, _ := m.Create(ctx, Input{Name: "A"})
	b, _ := m.Create(ctx, Input{Name: "B"})
	c, _ := m.Create(ctx, Input{Name: "C"})

	_, err := m.Reorder(ctx, []string{a.ID, b.ID})
	require.Error(t, err)
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))

	_, err = m.Reorder(ctx, []string{a.ID, a.ID, b.ID})
	require.Error(t, err)

	items, err := m.Reorder(ctx, []string{c.ID, a.ID, b.ID})
	require.NoError(t, err)
	require.Len(t, items, 3)
	assert.Equal(t, []string{"C", "A", "B"}, []string{items[0].Name, items[1].Name, items[2].Name})
}

func TestDeleteCleansOwnedBlob(t *testing.T) {
	m, _, blobs, _ := newTestManager()
	ctx := context.Background()

	url, err := blobs.Upload(ctx, "services/deck.jpg", strings.NewReader("img"), "image/jpeg")
	require.NoError(t, err)

	s, err := m.Create(ctx, Input{Name: "Decks", ImageURL: url})
	require.NoError(t, err)

	require.NoError(t, m.Delete(ctx, s.ID))
	assert.False(t, blobs.Has("services/deck.jpg"))

	err = m.Delete(ctx, s.ID)
	require.Error(t, err)
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
}
