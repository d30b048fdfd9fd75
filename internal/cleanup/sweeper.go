// Package cleanup reaps abandoned temp uploads: blobs staged for an
// admin form that was never submitted.
package cleanup

import (
	"context"
	"log"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/atelier-digital/atelier-backend/internal/storage"
)

// MaxTempAge is how long a temp upload may linger before it is reaped.
const MaxTempAge = 24 * time.Hour

type Sweeper struct {
	blobs storage.BlobStore
	cron  *cron.Cron
	now   func() time.Time
}

func NewSweeper(blobs storage.BlobStore) *Sweeper {
	return &Sweeper{
		blobs: blobs,
		cron:  cron.New(cron.WithSeconds()),
		now:   time.Now,
	}
}

// Start schedules the nightly sweep at midnight.
func (s *Sweeper) Start() error {
	_, err := s.cron.AddFunc("0 0 0 * * *", func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()
		if err := s.Sweep(ctx); err != nil {
			log.Printf("[cleanup] sweep failed: %v", err)
		}
	})
	if err != nil {
		return err
	}
	s.cron.Start()
	log.Printf("[cleanup] temp upload sweeper scheduled (daily at midnight)")
	return nil
}

func (s *Sweeper) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}

// Sweep deletes every temp upload older than MaxTempAge.
func (s *Sweeper) Sweep(ctx context.Context) error {
	blobs, err := s.blobs.List(ctx, storage.TempUploadPrefix)
	if err != nil {
		return err
	}

	cutoff := s.now().Add(-MaxTempAge)
	stale := make([]string, 0, len(blobs))
	for _, b := range blobs {
		if b.LastModified.Before(cutoff) {
			stale = append(stale, b.Key)
		}
	}
	if len(stale) == 0 {
		return nil
	}

	if err := s.blobs.Remove(ctx, stale); err != nil {
		return err
	}
	log.Printf("[cleanup] removed %d stale temp upload(s)", len(stale))
	return nil
}
