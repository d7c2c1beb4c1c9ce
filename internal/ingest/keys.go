package ingest

import (
	"fmt"
	"sync"
	"time"

	"docflow-backend/internal/shared/util"
)

// KeyGenerator builds storage keys of the form "<unix-nanos>-<file name>".
// A generator never hands out the same timestamp twice.
type KeyGenerator struct {
	mu   sync.Mutex
	last int64
	now  func() time.Time
}

// NewKeyGenerator returns a generator driven by the wall clock.
func NewKeyGenerator() *KeyGenerator {
	return &KeyGenerator{now: time.Now}
}

var defaultKeys = NewKeyGenerator()

// Next returns a fresh key for fileName.
func (g *KeyGenerator) Next(fileName string) (string, error) {
	name, err := util.SanitizeFileName(fileName)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	g.mu.Lock()
	ts := g.now().UnixNano()
	if ts <= g.last {
		ts = g.last + 1
	}
	g.last = ts
	g.mu.Unlock()
	return fmt.Sprintf("%d-%s", ts, name), nil
}
