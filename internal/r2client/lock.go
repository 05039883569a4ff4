package r2client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
)

// LockInfo is the JSON body of a lock object.
type LockInfo struct {
	Owner     string    `json:"owner"`
	ExpiresAt time.Time `json:"expires_at"`
}

// DistributedLock keeps two instances from uploading a snapshot at the same
// time, for example during a rolling deploy. It relies on R2 conditional
// writes and is not reentrant.
type DistributedLock struct {
	store   ObjectStore
	key     string
	ttl     time.Duration
	ownerID string
	etag    string
	now     func() time.Time
}

// NewDistributedLock returns a lock on key with a random owner ID.
func NewDistributedLock(store ObjectStore, key string, ttl time.Duration) *DistributedLock {
	return &DistributedLock{
		store:   store,
		key:     key,
		ttl:     ttl,
		ownerID: uuid.NewString(),
		now:     time.Now,
	}
}

// OwnerID identifies this holder in the lock body.
func (l *DistributedLock) OwnerID() string {
	return l.ownerID
}

// Acquire takes the lock. It returns false without error when another owner
// holds an unexpired lock. An expired lock is taken over with If-Match, so
// only one contender wins.
func (l *DistributedLock) Acquire(ctx context.Context) (bool, error) {
	body, err := l.body()
	if err != nil {
		return false, err
	}

	created, etag, err := l.store.PutObjectIfNotExists(ctx, l.key, bytes.NewReader(body), "application/json")
	if err != nil {
		return false, fmt.Errorf("acquire lock: %w", err)
	}
	if created {
		l.etag = etag
		return true, nil
	}

	info, oldETag, err := l.read(ctx)
	if errors.Is(err, ErrNotFound) {
		// Released between our write and read; next attempt will win.
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("acquire lock: %w", err)
	}
	if info != nil && l.now().Before(info.ExpiresAt) {
		return false, nil
	}

	taken, newETag, err := l.store.PutObjectIfMatch(ctx, l.key, bytes.NewReader(body), oldETag, "application/json")
	if err != nil {
		return false, fmt.Errorf("acquire lock: take over: %w", err)
	}
	if taken {
		l.etag = newETag
	}
	return taken, nil
}

// Renew pushes the expiry forward while we still hold the lock.
func (l *DistributedLock) Renew(ctx context.Context) (bool, error) {
	if l.etag == "" {
		return false, nil
	}
	body, err := l.body()
	if err != nil {
		return false, err
	}
	ok, etag, err := l.store.PutObjectIfMatch(ctx, l.key, bytes.NewReader(body), l.etag, "application/json")
	if err != nil {
		return false, fmt.Errorf("renew lock: %w", err)
	}
	if !ok {
		l.etag = ""
		return false, nil
	}
	l.etag = etag
	return true, nil
}

// Release deletes the lock if we still own it. A lock taken over by someone
// else is left alone.
func (l *DistributedLock) Release(ctx context.Context) error {
	defer func() { l.etag = "" }()

	info, _, err := l.read(ctx)
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("release lock: %w", err)
	}
	if info != nil && info.Owner != l.ownerID {
		return nil
	}
	return l.store.DeleteObject(ctx, l.key)
}

func (l *DistributedLock) body() ([]byte, error) {
	data, err := json.Marshal(LockInfo{Owner: l.ownerID, ExpiresAt: l.now().Add(l.ttl)})
	if err != nil {
		return nil, fmt.Errorf("marshal lock: %w", err)
	}
	return data, nil
}

// read returns a nil info for a lock body that is not valid JSON, which
// callers treat as expired.
func (l *DistributedLock) read(ctx context.Context) (*LockInfo, string, error) {
	rc, etag, err := l.store.Download(ctx, l.key)
	if err != nil {
		return nil, "", err
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, "", fmt.Errorf("read lock: %w", err)
	}
	var info LockInfo
	if err := json.Unmarshal(data, &info); err != nil {
		return nil, etag, nil
	}
	return &info, etag, nil
}
