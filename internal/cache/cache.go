package cache

import (
	"log/slog"
	"sync"
	"time"
)

// Cleaner is a cache that can drop its expired entries.
type Cleaner interface {
	CleanExpired() int
}

// Janitor periodically cleans registered caches until stopped.
type Janitor struct {
	mu      sync.Mutex
	caches  []Cleaner
	logger  *slog.Logger
	stop    chan struct{}
	done    chan struct{}
	started bool
	stopped sync.Once
}

// NewJanitor returns a janitor that logs through logger (slog.Default when nil).
func NewJanitor(logger *slog.Logger) *Janitor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Janitor{logger: logger, stop: make(chan struct{}), done: make(chan struct{})}
}

// Register adds a cache to clean.
func (j *Janitor) Register(c Cleaner) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.caches = append(j.caches, c)
}

// Start runs the cleanup loop every interval in its own goroutine.
func (j *Janitor) Start(interval time.Duration) {
	j.mu.Lock()
	j.started = true
	j.mu.Unlock()
	go func() {
		defer close(j.done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if n := j.Sweep(); n > 0 {
					j.logger.Debug("Cache cleanup completed", "entries_removed", n)
				}
			case <-j.stop:
				return
			}
		}
	}()
}

// Sweep cleans every registered cache once.
func (j *Janitor) Sweep() int {
	j.mu.Lock()
	defer j.mu.Unlock()
	total := 0
	for _, c := range j.caches {
		total += c.CleanExpired()
	}
	return total
}

// Stop ends the loop started by Start and waits for it.
func (j *Janitor) Stop() {
	j.stopped.Do(func() {
		close(j.stop)
		j.mu.Lock()
		started := j.started
		j.mu.Unlock()
		if started {
			<-j.done
		}
	})
}
