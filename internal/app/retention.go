package app

import (
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/moot-ai/moot-backend/internal/config"
	"github.com/moot-ai/moot-backend/internal/storage"
)

// startRetentionSweeper schedules periodic removal of uploaded and generated
// documents past the retention TTL. Returns a nil stop func when retention
// is disabled.
func startRetentionSweeper(cfg *config.Config, db *storage.Database) (func(), error) {
	if cfg.Retention.FileTTLHours <= 0 {
		return nil, nil
	}

	c := cron.New()
	_, err := c.AddFunc(cfg.Retention.SweepSchedule, func() {
		sweepDocuments(cfg, db)
	})
	if err != nil {
		return nil, err
	}

	c.Start()
	return func() { c.Stop() }, nil
}

// sweepDocuments drops expired upload records plus their files, then clears
// generated documents older than the TTL.
func sweepDocuments(cfg *config.Config, db *storage.Database) {
	ttl := time.Duration(cfg.Retention.FileTTLHours) * time.Hour
	cutoffTime := time.Now().Add(-ttl)
	cutoff := cutoffTime.UTC().Format(time.RFC3339)

	names, err := db.DeleteUploadedFilesBefore(cutoff)
	if err != nil {
		log.Printf("[retention] dropping upload records failed: %v", err)
	}
	removed := 0
	for _, name := range names {
		if err := os.Remove(filepath.Join(cfg.UploadsDir(), name)); err == nil {
			removed++
		} else if !os.IsNotExist(err) {
			log.Printf("[retention] removing upload %s failed: %v", name, err)
		}
	}

	removed += sweepDirBefore(cfg.GeneratedDir(), cutoffTime)
	if removed > 0 || len(names) > 0 {
		log.Printf("[retention] swept %d expired documents", removed)
	}
}

// sweepDirBefore removes regular files in dir with a modification time
// before the cutoff. Returns the number removed.
func sweepDirBefore(dir string, cutoff time.Time) int {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0
	}

	removed := 0
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		info, err := e.Info()
		if err != nil || !info.ModTime().Before(cutoff) {
			continue
		}
		if err := os.Remove(filepath.Join(dir, e.Name())); err == nil {
			removed++
		}
	}
	return removed
}
