// Package snapshot backs the SQLite store up to R2 and restores it on a fresh
// disk.
package snapshot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/omamori-dev/omamori-linebot-go/internal/r2client"
	"github.com/omamori-dev/omamori-linebot-go/internal/storage"
)

// ErrLocked is returned when another instance holds the upload lock.
var ErrLocked = errors.New("snapshot: upload lock held by another instance")

// Job names reported to the Recorder.
const (
	JobUpload  = "snapshot_upload"
	JobRestore = "snapshot_restore"
)

// Recorder receives the outcome of each upload and restore.
type Recorder interface {
	RecordJob(job, status string, d time.Duration)
}

// Config holds snapshot settings.
type Config struct {
	SnapshotKey string        // object key of the compressed database
	LockKey     string        // defaults to SnapshotKey + ".lock"
	LockTTL     time.Duration // defaults to 10 minutes
	TempDir     string        // defaults to os.TempDir()
}

// Manager uploads and restores database snapshots.
type Manager struct {
	store    r2client.ObjectStore
	cfg      Config
	recorder Recorder
	group    singleflight.Group

	mu         sync.RWMutex
	lastETag   string
	lastUpload time.Time
}

// New returns a Manager. recorder may be nil.
func New(store r2client.ObjectStore, cfg Config, recorder Recorder) *Manager {
	if cfg.LockKey == "" {
		cfg.LockKey = cfg.SnapshotKey + ".lock"
	}
	if cfg.LockTTL <= 0 {
		cfg.LockTTL = 10 * time.Minute
	}
	if cfg.TempDir == "" {
		cfg.TempDir = os.TempDir()
	}
	return &Manager{store: store, cfg: cfg, recorder: recorder}
}

// LastUpload returns the ETag and time of the last successful upload.
func (m *Manager) LastUpload() (string, time.Time) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lastETag, m.lastUpload
}

// Restore downloads the snapshot into dbPath when no database file exists
// there yet. It reports whether a snapshot was restored. A missing remote
// snapshot is not an error.
func (m *Manager) Restore(ctx context.Context, dbPath string) (bool, error) {
	start := time.Now()

	if _, err := os.Stat(dbPath); err == nil {
		m.record(JobRestore, "skipped", start)
		return false, nil
	} else if !errors.Is(err, os.ErrNotExist) {
		m.record(JobRestore, "error", start)
		return false, fmt.Errorf("stat %s: %w", dbPath, err)
	}

	body, etag, err := m.store.Download(ctx, m.cfg.SnapshotKey)
	if errors.Is(err, r2client.ErrNotFound) {
		slog.InfoContext(ctx, "no snapshot in R2, starting with an empty database", "key", m.cfg.SnapshotKey)
		m.record(JobRestore, "not_found", start)
		return false, nil
	}
	if err != nil {
		m.record(JobRestore, "error", start)
		return false, fmt.Errorf("download snapshot: %w", err)
	}
	defer body.Close()

	if err := os.MkdirAll(filepath.Dir(dbPath), 0o750); err != nil {
		m.record(JobRestore, "error", start)
		return false, fmt.Errorf("create data dir: %w", err)
	}

	// Decompress next to the target so the final rename stays on one filesystem.
	tmp := dbPath + ".restore"
	if err := r2client.DecompressStream(body, tmp); err != nil {
		_ = os.Remove(tmp)
		m.record(JobRestore, "error", start)
		return false, err
	}
	if err := os.Rename(tmp, dbPath); err != nil {
		_ = os.Remove(tmp)
		m.record(JobRestore, "error", start)
		return false, fmt.Errorf("move restored database: %w", err)
	}

	m.mu.Lock()
	m.lastETag = etag
	m.mu.Unlock()

	m.record(JobRestore, "success", start)
	slog.InfoContext(ctx, "database restored from snapshot",
		"key", m.cfg.SnapshotKey,
		"etag", etag,
		"duration_ms", time.Since(start).Milliseconds())
	return true, nil
}

// Upload writes a consistent copy of src to R2 and returns the new ETag.
// Concurrent calls share one upload.
func (m *Manager) Upload(ctx context.Context, src storage.Snapshotter) (string, error) {
	v, err, _ := m.group.Do("upload", func() (any, error) {
		return m.upload(ctx, src)
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

func (m *Manager) upload(ctx context.Context, src storage.Snapshotter) (string, error) {
	start := time.Now()

	lock := r2client.NewDistributedLock(m.store, m.cfg.LockKey, m.cfg.LockTTL)
	acquired, err := lock.Acquire(ctx)
	if err != nil {
		m.record(JobUpload, "error", start)
		return "", err
	}
	if !acquired {
		m.record(JobUpload, "locked", start)
		return "", ErrLocked
	}
	defer func() {
		// Release even when ctx is already canceled at shutdown.
		releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
		defer cancel()
		if err := lock.Release(releaseCtx); err != nil {
			slog.WarnContext(ctx, "failed to release snapshot lock", "error", err)
		}
	}()

	dir, err := os.MkdirTemp(m.cfg.TempDir, "omamori-snapshot-")
	if err != nil {
		m.record(JobUpload, "error", start)
		return "", fmt.Errorf("create temp dir: %w", err)
	}
	defer os.RemoveAll(dir)

	raw := filepath.Join(dir, "omamori.db")
	packed := raw + ".zst"

	if err := src.CreateSnapshot(ctx, raw); err != nil {
		m.record(JobUpload, "error", start)
		return "", fmt.Errorf("create snapshot: %w", err)
	}
	if err := r2client.CompressFile(raw, packed); err != nil {
		m.record(JobUpload, "error", start)
		return "", err
	}

	etag, err := m.uploadFile(ctx, packed)
	if err != nil {
		m.record(JobUpload, "error", start)
		return "", err
	}

	m.mu.Lock()
	m.lastETag = etag
	m.lastUpload = time.Now()
	m.mu.Unlock()

	m.record(JobUpload, "success", start)
	slog.InfoContext(ctx, "snapshot uploaded",
		"key", m.cfg.SnapshotKey,
		"etag", etag,
		"duration_ms", time.Since(start).Milliseconds())
	return etag, nil
}

func (m *Manager) uploadFile(ctx context.Context, path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open compressed snapshot: %w", err)
	}
	defer f.Close()
	return m.store.Upload(ctx, m.cfg.SnapshotKey, f, r2client.ContentTypeZstd)
}

// Run uploads a snapshot every interval until ctx is done. Failures are
// logged and retried on the next tick.
func (m *Manager) Run(ctx context.Context, src storage.Snapshotter, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := m.Upload(ctx, src); err != nil && !errors.Is(err, ErrLocked) && ctx.Err() == nil {
				slog.ErrorContext(ctx, "periodic snapshot upload failed", "error", err)
			}
		}
	}
}

func (m *Manager) record(job, status string, start time.Time) {
	if m.recorder != nil {
		m.recorder.RecordJob(job, status, time.Since(start))
	}
}
