// Package sticker picks the avatar shown next to bot replies.
//
// Avatars come from a configured list of HTTPS image URLs. When the list is
// empty a generated ui-avatars.com image is used instead, so a reply always
// carries an icon.
package sticker

import (
	"crypto/rand"
	"encoding/binary"
	"net/url"
	"strings"
	"sync"

	"github.com/omamori-dev/omamori-linebot-go/internal/logger"
)

// fallbackBackgrounds are the ui-avatars background colours.
var fallbackBackgrounds = []string{"E8A0BF", "BA90C6", "C0DBEA", "FDF4F5", "F6BA6F"}

// Manager holds the avatar pool. It is safe for concurrent use.
type Manager struct {
	mu       sync.RWMutex
	urls     []string
	fallback string
}

// NewManager builds a pool from urls. Entries that are not absolute HTTPS
// URLs are skipped with a warning, since LINE rejects them as icons.
// label names the generated fallback avatar.
func NewManager(urls []string, label string, log *logger.Logger) *Manager {
	m := &Manager{fallback: fallbackURL(label)}
	m.Replace(urls, log)
	return m
}

// Replace swaps the pool.
func (m *Manager) Replace(urls []string, log *logger.Logger) {
	valid := make([]string, 0, len(urls))
	for _, raw := range urls {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		if !isHTTPS(raw) {
			if log != nil {
				log.WithField("url", raw).Warn("Skipping avatar URL: not an absolute https URL")
			}
			continue
		}
		valid = append(valid, raw)
	}

	m.mu.Lock()
	m.urls = valid
	m.mu.Unlock()
}

// GetRandomSticker returns a random avatar URL. It never returns "".
func (m *Manager) GetRandomSticker() string {
	m.mu.RLock()
	urls := m.urls
	m.mu.RUnlock()

	if len(urls) == 0 {
		return m.fallback
	}
	return urls[randomIndex(len(urls))]
}

// Count returns the number of configured avatars.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.urls)
}

func randomIndex(n int) int {
	var b [8]byte
	_, _ = rand.Read(b[:]) // crypto/rand.Read does not fail on supported platforms
	return int(binary.LittleEndian.Uint64(b[:]) % uint64(n))
}

func fallbackURL(label string) string {
	if label == "" {
		label = "OMAMORI"
	}
	var sum int
	for _, r := range label {
		sum += int(r)
	}
	bg := fallbackBackgrounds[sum%len(fallbackBackgrounds)]

	q := url.Values{}
	q.Set("name", label)
	q.Set("size", "256")
	q.Set("background", bg)
	q.Set("color", "fff")
	return "https://ui-avatars.com/api/?" + q.Encode()
}

func isHTTPS(raw string) bool {
	u, err := url.Parse(raw)
	return err == nil && u.Scheme == "https" && u.Host != ""
}
