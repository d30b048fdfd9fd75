package staging

import (
	"context"
	"io"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atelier-digital/atelier-backend/internal/storage"
)

type releaseCounter struct {
	mu     sync.Mutex
	counts map[string]int
}

func newReleaseCounter() *releaseCounter {
	return &releaseCounter{counts: make(map[string]int)}
}

func (rc *releaseCounter) file(name, contentType string, size int64) File {
	return File{
		Name:        name,
		Size:        size,
		ContentType: contentType,
		Open: func() (io.ReadCloser, error) {
			return io.NopCloser(strings.NewReader(strings.Repeat("x", int(size)))), nil
		},
		Release: func() {
			rc.mu.Lock()
			defer rc.mu.Unlock()
			rc.counts[name]++
		},
	}
}

func (rc *releaseCounter) count(name string) int {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	return rc.counts[name]
}

func jpeg(rc *releaseCounter, name string) File {
	return rc.file(name, "image/jpeg", 100)
}

func newTestPipeline(maxImages int) (*Pipeline, *storage.MemStore) {
	store := storage.NewMemStore("https://cdn.example.com")
	return NewPipeline(store, maxImages, 1<<20, nil), store
}

func TestAddValidatesTypeAndSize(t *testing.T) {
	p, _ := newTestPipeline(10)
	rc := newReleaseCounter()

	res := p.Add(
		jpeg(rc, "ok.jpg"),
		rc.file("doc.pdf", "application/pdf", 100),
		rc.file("huge.png", "image/png", 2<<20),
		rc.file("empty.webp", "image/webp", 0),
	)

	assert.Equal(t, 1, res.Accepted)
	require.Len(t, res.Errors, 3)
	assert.Equal(t, "doc.pdf", res.Errors[0].Name)
	assert.Equal(t, 1, p.Len())

	// rejected files have their handles released immediately
	assert.Equal(t, 1, rc.count("doc.pdf"))
	assert.Equal(t, 1, rc.count("huge.png"))
	assert.Equal(t, 0, rc.count("ok.jpg"))
}

func TestAddRespectsCap(t *testing.T) {
	p, _ := newTestPipeline(3)
	rc := newReleaseCounter()
	p.AddExisting("https://cdn.example.com/p/a.jpg", "https://cdn.example.com/p/b.jpg")

	res := p.Add(jpeg(rc, "c.jpg"), jpeg(rc, "d.jpg"), jpeg(rc, "e.jpg"))

	assert.Equal(t, 1, res.Accepted)
	assert.Equal(t, 2, res.Dropped)
	assert.NotEmpty(t, res.DroppedMessage(1))
	assert.Equal(t, 3, p.Len())
	assert.Equal(t, 1, rc.count("d.jpg"))
	assert.Equal(t, 1, rc.count("e.jpg"))
}

func TestRemoveReleasesNewImageOnce(t *testing.T) {
	p, _ := newTestPipeline(10)
	rc := newReleaseCounter()

	p.Add(jpeg(rc, "a.jpg"))
	ids := p.IDs()
	require.Len(t, ids, 1)

	require.True(t, p.Remove(ids[0]))
	assert.Equal(t, 1, rc.count("a.jpg"))

	// a second remove of the same id is a no-op
	assert.False(t, p.Remove(ids[0]))
	p.Close()
	assert.Equal(t, 1, rc.count("a.jpg"))
}

func TestRemoveExistingTracksDeletion(t *testing.T) {
	p, _ := newTestPipeline(10)
	p.AddExisting("https://cdn.example.com/p/a.jpg", "https://cdn.example.com/p/b.jpg")

	ids := p.IDs()
	require.True(t, p.Remove(ids[0]))

	res, err := p.Submit(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"https://cdn.example.com/p/a.jpg"}, res.RemovedExisting)
	assert.Equal(t, []string{"https://cdn.example.com/p/b.jpg"}, res.URLs)
}

func TestMoveIsSpliceNotSwap(t *testing.T) {
	p, _ := newTestPipeline(10)
	p.AddExisting("A", "B", "C", "D")

	require.True(t, p.Move(0, 2))
	assert.Equal(t, []string{"B", "C", "A", "D"}, p.Names())

	assert.False(t, p.Move(0, 9))
	assert.False(t, p.Move(-1, 1))
}

func TestSubmitPreservesDisplayOrder(t *testing.T) {
	p, store := newTestPipeline(10)
	rc := newReleaseCounter()

	p.AddExisting("https://cdn.example.com/p/existing.jpg")
	p.Add(jpeg(rc, "new1.jpg"), jpeg(rc, "new2.jpg"))
	// user drags the first new image to the front
	require.True(t, p.Move(1, 0))

	res, err := p.Submit(context.Background())
	require.NoError(t, err)
	require.Len(t, res.URLs, 3)

	assert.True(t, strings.Contains(res.URLs[0], "tmp/uploads/"))
	assert.Equal(t, "https://cdn.example.com/p/existing.jpg", res.URLs[1])
	assert.True(t, strings.Contains(res.URLs[2], "tmp/uploads/"))

	require.Len(t, res.UploadedKeys, 2)
	for _, key := range res.UploadedKeys {
		assert.True(t, store.Has(key))
	}
}

func TestSubmitReportsProgress(t *testing.T) {
	store := storage.NewMemStore("https://cdn.example.com")

	var mu sync.Mutex
	events := make(map[string][]Status)
	p := NewPipeline(store, 10, 1<<20, func(e ProgressEvent) {
		mu.Lock()
		defer mu.Unlock()
		events[e.Name] = append(events[e.Name], e.Status)
	})

	rc := newReleaseCounter()
	p.Add(jpeg(rc, "a.jpg"))

	_, err := p.Submit(context.Background())
	require.NoError(t, err)

	mu.Lock()
	defer mu.Unlock()
	statuses := events["a.jpg"]
	require.NotEmpty(t, statuses)
	assert.Equal(t, StatusPending, statuses[0], "staging a file reports it as pending")
	assert.Contains(t, statuses, StatusUploading)
	assert.Equal(t, StatusCompleted, statuses[len(statuses)-1])
}

func TestSubmitAggregatesFailures(t *testing.T) {
	p, _ := newTestPipeline(10)
	rc := newReleaseCounter()

	bad1 := rc.file("bad1.jpg", "image/jpeg", 100)
	bad1.Open = func() (io.ReadCloser, error) { return nil, io.ErrUnexpectedEOF }
	bad2 := rc.file("bad2.jpg", "image/jpeg", 100)
	bad2.Open = func() (io.ReadCloser, error) { return nil, io.ErrUnexpectedEOF }

	p.Add(jpeg(rc, "good.jpg"), bad1, bad2)

	res, err := p.Submit(context.Background())
	require.Error(t, err)

	var serr *SubmitError
	require.ErrorAs(t, err, &serr)
	require.Len(t, serr.Errors, 2)
	assert.Equal(t, "bad1.jpg", serr.Errors[0].Name)
	assert.Equal(t, "bad2.jpg", serr.Errors[1].Name)

	// the successful upload is still reported for cleanup
	assert.Len(t, res.UploadedKeys, 1)
	assert.Empty(t, res.URLs)
}

func TestCloseReleasesAllNewImagesOnce(t *testing.T) {
	p, _ := newTestPipeline(10)
	rc := newReleaseCounter()

	p.Add(jpeg(rc, "a.jpg"), jpeg(rc, "b.jpg"))
	p.AddExisting("https://cdn.example.com/p/c.jpg")

	p.Close()
	p.Close()

	assert.Equal(t, 1, rc.count("a.jpg"))
	assert.Equal(t, 1, rc.count("b.jpg"))
}
