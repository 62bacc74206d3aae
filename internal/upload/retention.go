package upload

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

// isStoredName reports whether name has the <uuid>_ prefix Save gives every upload
func isStoredName(name string) bool {
	const prefix = 36
	if len(name) <= prefix || name[prefix] != '_' {
		return false
	}
	return uuid.Validate(name[:prefix]) == nil
}

// Sweep removes kept uploads last modified before now minus retention.
// Files Save did not create are left alone.
func (s *Store) Sweep(retention time.Duration, now time.Time) (int, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to list uploads: %w", err)
	}

	cutoff := now.Add(-retention)
	removed := 0
	for _, e := range entries {
		if !e.Type().IsRegular() || !isStoredName(e.Name()) {
			continue
		}
		info, err := e.Info()
		if err != nil || !info.ModTime().Before(cutoff) {
			continue
		}
		if err := os.Remove(filepath.Join(s.dir, e.Name())); err != nil && !os.IsNotExist(err) {
			slog.Warn("Failed to remove expired upload", "name", e.Name(), "error", err)
			continue
		}
		removed++
	}

	slog.Info("Upload retention sweep completed", "dir", s.dir, "removed", removed, "retention", retention.String())
	return removed, nil
}

// StartRetention sweeps every interval until ctx is done
func (s *Store) StartRetention(ctx context.Context, retention, interval time.Duration) {
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				if _, err := s.Sweep(retention, now); err != nil {
					slog.Error("Upload retention sweep failed", "error", err)
				}
			}
		}
	}()
}
