// Package staging accumulates a form's images (already-persisted URLs
// and freshly chosen files) ahead of a single save. Nothing touches the
// network until Submit; removal and reordering are pure list edits.
package staging

import (
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/atelier-digital/atelier-backend/internal/storage"
)

const uploadConcurrency = 4

var allowedTypes = map[string]bool{
	"image/jpeg": true,
	"image/jpg":  true,
	"image/png":  true,
	"image/webp": true,
}

type Status string

const (
	StatusPending   Status = "pending"
	StatusUploading Status = "uploading"
	StatusCompleted Status = "completed"
	StatusError     Status = "error"
)

// ProgressEvent drives UI feedback only; it is never persisted.
type ProgressEvent struct {
	ID      string
	Name    string
	Status  Status
	Percent int
	Err     string
}

// File is a newly chosen image. Open yields its content; Release frees
// the local handle and must be safe to call at most once.
type File struct {
	Name        string
	Size        int64
	ContentType string
	Open        func() (io.ReadCloser, error)
	Release     func()
}

// FromMultipart adapts a multipart upload into a File.
func FromMultipart(fh *multipart.FileHeader) File {
	ct := fh.Header.Get("Content-Type")
	if ct == "" {
		ct = contentTypeFromName(fh.Filename)
	}
	return File{
		Name:        fh.Filename,
		Size:        fh.Size,
		ContentType: ct,
		Open: func() (io.ReadCloser, error) {
			return fh.Open()
		},
	}
}

type stagedImage struct {
	id          string
	name        string
	url         string
	existing    bool
	originalURL string
	file        File
	released    bool
}

type FileError struct {
	Name   string
	Reason string
}

func (e FileError) String() string {
	return e.Name + ": " + e.Reason
}

type AddResult struct {
	Accepted int
	// Dropped counts valid files rejected because the image cap was
	// reached; Errors lists files rejected individually.
	Dropped int
	Errors  []FileError
}

// ErrorsMessage joins every rejected file's reason into one message so
// a batch never hides errors behind the first.
func (r AddResult) ErrorsMessage() string {
	parts := make([]string, len(r.Errors))
	for i, fe := range r.Errors {
		parts[i] = fe.String()
	}
	return strings.Join(parts, "; ")
}

// DroppedMessage is the "only N more images can be added" condition.
func (r AddResult) DroppedMessage(remaining int) string {
	if r.Dropped == 0 {
		return ""
	}
	return fmt.Sprintf("only %d more image(s) can be added", remaining)
}

type SubmitResult struct {
	// URLs is the final list in display order at submit time.
	URLs []string
	// UploadedKeys are the blob keys written during this submit, kept
	// even on failure so callers never lose track of orphaned blobs.
	UploadedKeys []string
	// RemovedExisting are pre-existing image URLs the user removed;
	// their deletion is the caller's best-effort step.
	RemovedExisting []string
}

// SubmitError aggregates every failed upload in a batch.
type SubmitError struct {
	Errors []FileError
}

func (e *SubmitError) Error() string {
	parts := make([]string, len(e.Errors))
	for i, fe := range e.Errors {
		parts[i] = fe.String()
	}
	return "upload failed: " + strings.Join(parts, "; ")
}

type Pipeline struct {
	mu         sync.Mutex
	uploader   storage.BlobStore
	maxImages  int
	maxBytes   int64
	onProgress func(ProgressEvent)
	staged     []*stagedImage
	removed    []string
	closed     bool
}

func NewPipeline(uploader storage.BlobStore, maxImages int, maxBytes int64, onProgress func(ProgressEvent)) *Pipeline {
	if onProgress == nil {
		onProgress = func(ProgressEvent) {}
	}
	return &Pipeline{
		uploader:   uploader,
		maxImages:  maxImages,
		maxBytes:   maxBytes,
		onProgress: onProgress,
	}
}

// AddExisting seeds the pipeline with already-persisted image URLs, in
// order, as when editing a record.
func (p *Pipeline) AddExisting(urls ...string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, u := range urls {
		p.staged = append(p.staged, &stagedImage{
			id:          uuid.NewString(),
			url:         u,
			existing:    true,
			originalURL: u,
		})
	}
}

// Add validates and stages new files. Invalid files are reported
// individually without blocking valid ones in the same batch; valid
// files beyond the cap are dropped (and their handles released).
func (p *Pipeline) Add(files ...File) AddResult {
	p.mu.Lock()
	defer p.mu.Unlock()

	var res AddResult
	remaining := p.maxImages - len(p.staged)

	for _, f := range files {
		if reason, ok := validate(f, p.maxBytes); !ok {
			res.Errors = append(res.Errors, FileError{Name: f.Name, Reason: reason})
			release(f)
			continue
		}
		if remaining <= 0 {
			res.Dropped++
			release(f)
			continue
		}
		remaining--
		res.Accepted++
		img := &stagedImage{
			id:   uuid.NewString(),
			name: f.Name,
			file: f,
		}
		p.staged = append(p.staged, img)
		p.onProgress(ProgressEvent{ID: img.id, Name: img.name, Status: StatusPending})
	}
	return res
}

func validate(f File, maxBytes int64) (string, bool) {
	if !allowedTypes[strings.ToLower(f.ContentType)] {
		return "unsupported image type " + f.ContentType, false
	}
	if f.Size <= 0 {
		return "empty file", false
	}
	if f.Size > maxBytes {
		return fmt.Sprintf("file exceeds %d bytes", maxBytes), false
	}
	return "", true
}

func release(f File) {
	if f.Release != nil {
		f.Release()
	}
}

// Remove drops an image from the staged list. A new image's local
// handle is released exactly once; a pre-existing image's original URL
// is recorded for the deletion step at submit time.
func (p *Pipeline) Remove(id string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	for i, img := range p.staged {
		if img.id != id {
			continue
		}
		p.staged = append(p.staged[:i], p.staged[i+1:]...)
		if img.existing {
			p.removed = append(p.removed, img.originalURL)
		} else {
			p.releaseImage(img)
		}
		return true
	}
	return false
}

// Move splices the image at from out of the list and reinserts it at
// to, preserving the relative order of everything else.
func (p *Pipeline) Move(from, to int) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	n := len(p.staged)
	if from < 0 || from >= n || to < 0 || to >= n || from == to {
		return false
	}

	img := p.staged[from]
	p.staged = append(p.staged[:from], p.staged[from+1:]...)
	p.staged = append(p.staged[:to], append([]*stagedImage{img}, p.staged[to:]...)...)
	return true
}

// Len reports the staged image count.
func (p *Pipeline) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.staged)
}

// IDs returns the staged image ids in display order.
func (p *Pipeline) IDs() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.staged))
	for i, img := range p.staged {
		out[i] = img.id
	}
	return out
}

// Names returns the staged entries in display order: the URL for
// existing images, the filename for new ones.
func (p *Pipeline) Names() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.staged))
	for i, img := range p.staged {
		if img.existing {
			out[i] = img.url
		} else {
			out[i] = img.name
		}
	}
	return out
}

// Submit uploads every new file concurrently and returns the final URL
// list in display order. If any upload fails the whole submit fails with
// the aggregated per-file errors; keys uploaded before the failure are
// reported so the caller can clean them up.
func (p *Pipeline) Submit(ctx context.Context) (SubmitResult, error) {
	p.mu.Lock()
	snapshot := make([]*stagedImage, len(p.staged))
	copy(snapshot, p.staged)
	removed := make([]string, len(p.removed))
	copy(removed, p.removed)
	p.mu.Unlock()

	urls := make([]string, len(snapshot))
	var (
		resMu    sync.Mutex
		uploaded []string
		failures []FileError
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(uploadConcurrency)

	for i, img := range snapshot {
		if img.existing {
			urls[i] = img.url
			continue
		}

		i, img := i, img
		g.Go(func() error {
			url, key, err := p.uploadOne(gctx, img)
			resMu.Lock()
			defer resMu.Unlock()
			if err != nil {
				failures = append(failures, FileError{Name: img.name, Reason: err.Error()})
				return nil
			}
			urls[i] = url
			uploaded = append(uploaded, key)
			return nil
		})
	}

	_ = g.Wait()

	res := SubmitResult{UploadedKeys: uploaded, RemovedExisting: removed}
	if len(failures) > 0 {
		sort.Slice(failures, func(a, b int) bool { return failures[a].Name < failures[b].Name })
		return res, &SubmitError{Errors: failures}
	}

	res.URLs = urls
	return res, nil
}

func (p *Pipeline) uploadOne(ctx context.Context, img *stagedImage) (string, string, error) {
	p.onProgress(ProgressEvent{ID: img.id, Name: img.name, Status: StatusUploading, Percent: 0})

	rc, err := img.file.Open()
	if err != nil {
		p.onProgress(ProgressEvent{ID: img.id, Name: img.name, Status: StatusError, Err: err.Error()})
		return "", "", err
	}
	defer rc.Close()

	reader := &progressReader{
		r:     rc,
		total: img.file.Size,
		report: func(pct int) {
			p.onProgress(ProgressEvent{ID: img.id, Name: img.name, Status: StatusUploading, Percent: pct})
		},
	}

	key := storage.TempUploadPrefix + img.id + extFromName(img.name)
	url, err := p.uploader.Upload(ctx, key, reader, img.file.ContentType)
	if err != nil {
		p.onProgress(ProgressEvent{ID: img.id, Name: img.name, Status: StatusError, Err: err.Error()})
		return "", "", err
	}

	p.onProgress(ProgressEvent{ID: img.id, Name: img.name, Status: StatusCompleted, Percent: 100})
	return url, key, nil
}

// Close releases every local handle that has not been released yet.
// Safe to call multiple times.
func (p *Pipeline) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return
	}
	p.closed = true
	for _, img := range p.staged {
		if !img.existing {
			p.releaseImage(img)
		}
	}
}

// releaseImage must be called with p.mu held.
func (p *Pipeline) releaseImage(img *stagedImage) {
	if img.released {
		return
	}
	img.released = true
	release(img.file)
}

type progressReader struct {
	r      io.Reader
	total  int64
	read   int64
	last   int
	report func(pct int)
}

func (pr *progressReader) Read(b []byte) (int, error) {
	n, err := pr.r.Read(b)
	pr.read += int64(n)
	if pr.total > 0 {
		pct := int(pr.read * 100 / pr.total)
		if pct > 100 {
			pct = 100
		}
		if pct != pr.last {
			pr.last = pct
			pr.report(pct)
		}
	}
	return n, err
}

func extFromName(name string) string {
	ext := strings.ToLower(filepath.Ext(name))
	switch ext {
	case ".jpg", ".jpeg", ".png", ".webp":
		return ext
	}
	return ".jpg"
}

func contentTypeFromName(name string) string {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	case ".webp":
		return "image/webp"
	}
	return ""
}
