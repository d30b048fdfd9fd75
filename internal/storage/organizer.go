package storage

import (
	"context"
	"fmt"
	"path"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/atelier-digital/atelier-backend/internal/logging"
)

// Organizer rewrites image URLs so their blobs live under the owning
// entity's id. URLs already organized, or not served by this store, pass
// through untouched.
type Organizer struct {
	store BlobStore
	seq   atomic.Int64
}

type OrganizeResult struct {
	URLs []string
	// Failed holds the URLs whose blobs could not be moved; they are
	// still present in URLs at their original location.
	Failed []string
	OK     bool
}

func NewOrganizer(store BlobStore) *Organizer {
	return &Organizer{store: store}
}

// Organize moves each unorganized blob to {entityID}/{ts}-{seq}-{rand}.{ext}
// and substitutes the new public URL, preserving list order. A failed
// move keeps the original URL so no image is dropped silently.
func (o *Organizer) Organize(ctx context.Context, entityID string, urls []string) OrganizeResult {
	logger := logging.NewLogger(ctx)

	out := make([]string, 0, len(urls))
	var failed []string

	for _, u := range urls {
		key, ok := o.store.KeyFromURL(u)
		if !ok || organized(key, entityID) {
			out = append(out, u)
			continue
		}

		newKey := o.newKey(entityID, key)
		if err := o.store.Move(ctx, key, newKey); err != nil {
			logger.LogWarnf("organize_images", "move %s failed, keeping original: %v", key, err)
			out = append(out, u)
			failed = append(failed, u)
			continue
		}
		out = append(out, o.store.PublicURL(newKey))
	}

	return OrganizeResult{URLs: out, Failed: failed, OK: true}
}

func organized(key, entityID string) bool {
	for _, seg := range strings.Split(key, "/") {
		if seg == entityID {
			return true
		}
	}
	return false
}

// newKey builds an entity-scoped key. The sequence counter disambiguates
// moves landing on the same millisecond; the random suffix covers
// collisions across processes without any locking.
func (o *Organizer) newKey(entityID, oldKey string) string {
	ext := path.Ext(oldKey)
	if ext == "" {
		ext = ".jpg"
	}
	rand := strings.ReplaceAll(uuid.NewString(), "-", "")[:6]
	return fmt.Sprintf("%s/%d-%d-%s%s", entityID, time.Now().UnixMilli(), o.seq.Add(1), rand, ext)
}
