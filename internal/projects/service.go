package projects

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/atelier-digital/atelier-backend/internal/apperr"
	"github.com/atelier-digital/atelier-backend/internal/logging"
	"github.com/atelier-digital/atelier-backend/internal/sanitize"
	"github.com/atelier-digital/atelier-backend/internal/storage"
)

// MaxImagesPerProject is the single authoritative cap, enforced both by
// the staging layer and by service-level truncation.
const MaxImagesPerProject = 10

const (
	maxTitleLen       = 200
	maxDescriptionLen = 2000
	maxCategoryLen    = 100
	maxLocationLen    = 200
	dateLayout        = "2006-01-02"
	slugAttempts      = 100
	insertRetries     = 5
)

// Store is what the service needs from persistence; *Repo implements it.
type Store interface {
	Insert(ctx context.Context, p *Project) error
	Update(ctx context.Context, p *Project) error
	Delete(ctx context.Context, id string) (bool, error)
	GetByID(ctx context.Context, id string) (*Project, error)
	GetBySlug(ctx context.Context, slug string) (*Project, error)
	List(ctx context.Context, f Filter) ([]Project, error)
	SlugExists(ctx context.Context, slug, excludeID string) (bool, error)
	SetFeatured(ctx context.Context, id string, featured bool) (*Project, error)
	UpdateImages(ctx context.Context, id string, images []string) error
}

// Revalidator regenerates cached public pages; *revalidate.Client
// implements it.
type Revalidator interface {
	Revalidate(ctx context.Context, paths ...string)
}

type Service struct {
	store     Store
	blobs     storage.BlobStore
	organizer *storage.Organizer
	reval     Revalidator
}

func NewService(store Store, blobs storage.BlobStore, reval Revalidator) *Service {
	return &Service{
		store:     store,
		blobs:     blobs,
		organizer: storage.NewOrganizer(blobs),
		reval:     reval,
	}
}

type CreateInput struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Category    string   `json:"category"`
	Images      []string `json:"images"`
	Date        string   `json:"date"`
	Location    string   `json:"location"`
	Featured    bool     `json:"featured"`
}

type UpdateInput = CreateInput

// Create validates and persists a new project, then organizes its
// images under the new id and revalidates the pages that show it.
// Validation precedes persistence, persistence precedes organization,
// organization precedes revalidation.
func (s *Service) Create(ctx context.Context, in CreateInput) (*Project, error) {
	fields, err := cleanFields(in)
	if err != nil {
		return nil, err
	}

	p := &Project{
		ID:          uuid.NewString(),
		Title:       fields.title,
		Description: fields.description,
		Category:    fields.category,
		Images:      fields.images,
		Date:        fields.date,
		Location:    fields.location,
		Featured:    in.Featured,
	}

	if err := s.insertWithSlug(ctx, p, Slugify(p.Title)); err != nil {
		return nil, err
	}

	s.organizeImages(ctx, p)
	s.revalidateProject(ctx, p.Slug, p.Featured)
	return p, nil
}

// Update re-derives the slug only when the title actually changed.
func (s *Service) Update(ctx context.Context, id string, in UpdateInput) (*Project, error) {
	existing, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, apperr.Internal("project_get", err)
	}
	if existing == nil {
		return nil, apperr.NotFound("project not found")
	}

	fields, err := cleanFields(in)
	if err != nil {
		return nil, err
	}

	oldSlug := existing.Slug
	wasFeatured := existing.Featured

	p := *existing
	p.Title = fields.title
	p.Description = fields.description
	p.Category = fields.category
	p.Images = fields.images
	p.Date = fields.date
	p.Location = fields.location
	p.Featured = in.Featured

	if p.Title != existing.Title {
		slug, err := s.uniqueSlug(ctx, Slugify(p.Title), p.ID)
		if err != nil {
			return nil, err
		}
		p.Slug = slug
	}

	if err := s.store.Update(ctx, &p); err != nil {
		if errors.Is(err, ErrSlugTaken) {
			return nil, apperr.Conflict("slug already taken")
		}
		return nil, apperr.Internal("project_update", err)
	}

	s.organizeImages(ctx, &p)

	paths := []string{"/projects/" + p.Slug, "/projects"}
	if p.Slug != oldSlug {
		paths = append(paths, "/projects/"+oldSlug)
	}
	if p.Featured || wasFeatured {
		paths = append(paths, "/")
	}
	s.reval.Revalidate(ctx, paths...)

	return &p, nil
}

// Delete removes the project's blobs best-effort before the row; a
// failed blob deletion is logged and never blocks the delete.
func (s *Service) Delete(ctx context.Context, id string) error {
	logger := logging.NewLogger(ctx)

	p, err := s.store.GetByID(ctx, id)
	if err != nil {
		return apperr.Internal("project_get", err)
	}
	if p == nil {
		return apperr.NotFound("project not found")
	}

	if keys := s.ownedKeys(p.Images); len(keys) > 0 {
		if err := s.blobs.Remove(ctx, keys); err != nil {
			logger.LogWarnf("project_delete", "blob cleanup failed for %s: %v", p.ID, err)
		}
	}

	ok, err := s.store.Delete(ctx, id)
	if err != nil {
		return apperr.Internal("project_delete", err)
	}
	if !ok {
		return apperr.NotFound("project not found")
	}

	s.revalidateProject(ctx, p.Slug, p.Featured)
	return nil
}

func (s *Service) ToggleFeatured(ctx context.Context, id string) (*Project, error) {
	existing, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, apperr.Internal("project_get", err)
	}
	if existing == nil {
		return nil, apperr.NotFound("project not found")
	}

	p, err := s.store.SetFeatured(ctx, id, !existing.Featured)
	if err != nil {
		return nil, apperr.Internal("project_set_featured", err)
	}
	if p == nil {
		return nil, apperr.NotFound("project not found")
	}

	s.reval.Revalidate(ctx, "/", "/projects", "/projects/"+p.Slug)
	return p, nil
}

func (s *Service) Get(ctx context.Context, id string) (*Project, error) {
	p, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, apperr.Internal("project_get", err)
	}
	if p == nil {
		return nil, apperr.NotFound("project not found")
	}
	return p, nil
}

func (s *Service) GetBySlug(ctx context.Context, slug string) (*Project, error) {
	p, err := s.store.GetBySlug(ctx, slug)
	if err != nil {
		return nil, apperr.Internal("project_get_by_slug", err)
	}
	if p == nil {
		return nil, apperr.NotFound("project not found")
	}
	return p, nil
}

func (s *Service) List(ctx context.Context, f Filter) ([]Project, error) {
	items, err := s.store.List(ctx, f)
	if err != nil {
		return nil, apperr.Internal("project_list", err)
	}
	return items, nil
}

// ReplaceImages swaps the project's image list for the submitted one
// (already uploaded, in display order), organizes the new blobs and
// best-effort deletes the blobs of removed existing images.
func (s *Service) ReplaceImages(ctx context.Context, id string, urls, removed []string) (*Project, error) {
	logger := logging.NewLogger(ctx)

	p, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, apperr.Internal("project_get", err)
	}
	if p == nil {
		return nil, apperr.NotFound("project not found")
	}

	if len(urls) > MaxImagesPerProject {
		urls = urls[:MaxImagesPerProject]
	}

	org := s.organizer.Organize(ctx, p.ID, urls)
	if err := s.store.UpdateImages(ctx, p.ID, org.URLs); err != nil {
		return nil, apperr.Internal("project_update_images", err)
	}
	p.Images = org.URLs

	if keys := s.ownedKeys(removed); len(keys) > 0 {
		if err := s.blobs.Remove(ctx, keys); err != nil {
			logger.LogWarnf("project_replace_images", "removed image cleanup failed: %v", err)
		}
	}

	s.revalidateProject(ctx, p.Slug, p.Featured)
	return p, nil
}

func (s *Service) insertWithSlug(ctx context.Context, p *Project, base string) error {
	slug, err := s.uniqueSlug(ctx, base, "")
	if err != nil {
		return err
	}

	for attempt := 0; attempt < insertRetries; attempt++ {
		p.Slug = slug
		err := s.store.Insert(ctx, p)
		if err == nil {
			return nil
		}
		// a concurrent create can win the slug between the existence
		// check and the insert; re-derive and retry
		if errors.Is(err, ErrSlugTaken) {
			slug, err = s.uniqueSlug(ctx, base, "")
			if err != nil {
				return err
			}
			continue
		}
		return apperr.Internal("project_insert", err)
	}
	return apperr.Conflict("could not allocate a unique slug")
}

func (s *Service) uniqueSlug(ctx context.Context, base, excludeID string) (string, error) {
	if base == "" {
		base = "project"
	}

	slug := base
	for i := 1; i <= slugAttempts; i++ {
		exists, err := s.store.SlugExists(ctx, slug, excludeID)
		if err != nil {
			return "", apperr.Internal("slug_exists", err)
		}
		if !exists {
			return slug, nil
		}
		slug = fmt.Sprintf("%s-%d", base, i)
	}
	return fmt.Sprintf("%s-%s", base, uuid.NewString()[:8]), nil
}

func (s *Service) organizeImages(ctx context.Context, p *Project) {
	if len(p.Images) == 0 {
		return
	}

	logger := logging.NewLogger(ctx)
	org := s.organizer.Organize(ctx, p.ID, p.Images)
	if len(org.Failed) > 0 {
		logger.LogWarnf("organize_images", "%d image(s) kept at original location for project %s", len(org.Failed), p.ID)
	}

	changed := false
	for i := range org.URLs {
		if org.URLs[i] != p.Images[i] {
			changed = true
			break
		}
	}
	if !changed {
		return
	}

	if err := s.store.UpdateImages(ctx, p.ID, org.URLs); err != nil {
		logger.LogWarnf("organize_images", "image url rewrite failed for %s: %v", p.ID, err)
		return
	}
	p.Images = org.URLs
}

func (s *Service) ownedKeys(urls []string) []string {
	keys := make([]string, 0, len(urls))
	for _, u := range urls {
		if key, ok := s.blobs.KeyFromURL(u); ok {
			keys = append(keys, key)
		}
	}
	return keys
}

func (s *Service) revalidateProject(ctx context.Context, slug string, featured bool) {
	paths := []string{"/projects/" + slug, "/projects"}
	if featured {
		paths = append(paths, "/")
	}
	s.reval.Revalidate(ctx, paths...)
}

type cleanedFields struct {
	title       string
	description string
	category    string
	location    string
	images      []string
	date        time.Time
}

func cleanFields(in CreateInput) (cleanedFields, error) {
	var f cleanedFields

	f.title = sanitize.Text(in.Title, maxTitleLen)
	if f.title == "" {
		return f, apperr.Validation("title is required")
	}

	f.category = sanitize.Text(in.Category, maxCategoryLen)
	if f.category == "" {
		return f, apperr.Validation("category is required")
	}

	f.description = sanitize.Text(in.Description, maxDescriptionLen)
	f.location = sanitize.Text(in.Location, maxLocationLen)

	if strings.TrimSpace(in.Date) == "" {
		return f, apperr.Validation("date is required")
	}
	date, err := time.Parse(dateLayout, strings.TrimSpace(in.Date))
	if err != nil {
		return f, apperr.Validationf("date must be in %s format", dateLayout)
	}
	f.date = date

	f.images = make([]string, 0, len(in.Images))
	for _, u := range in.Images {
		if clean := sanitize.URL(u); clean != "" {
			f.images = append(f.images, clean)
		}
	}
	if len(f.images) > MaxImagesPerProject {
		f.images = f.images[:MaxImagesPerProject]
	}

	return f, nil
}
