package auth

import (
	"sync"
	"time"

	"fintrack/internal/storage"

	"github.com/charmbracelet/log"
)

// Sweeper periodically purges expired session rows. Resolution already
// deletes expired sessions lazily on first access; the sweeper catches the
// ones nobody ever presents again.
type Sweeper struct {
	db       *storage.DB
	interval time.Duration
	done     chan struct{}
	wg       sync.WaitGroup
}

// NewSweeper creates a sweeper with the given run interval.
func NewSweeper(db *storage.DB, interval time.Duration) *Sweeper {
	if interval <= 0 {
		interval = time.Hour
	}
	return &Sweeper{db: db, interval: interval, done: make(chan struct{})}
}

// Start launches the background loop.
func (s *Sweeper) Start() {
	s.wg.Add(1)
	go s.run()
}

// Stop terminates the loop and waits for it to finish.
func (s *Sweeper) Stop() {
	close(s.done)
	s.wg.Wait()
}

func (s *Sweeper) run() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			n, err := s.db.DeleteExpiredSessions()
			if err != nil {
				log.Error("session sweep failed", "err", err)
				continue
			}
			if n > 0 {
				log.Info("swept expired sessions", "count", n)
			}
		case <-s.done:
			return
		}
	}
}
