// Package cooldown rate limits chat queries per user.
package cooldown

import (
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/time/rate"
)

// DefaultSize bounds how many users are tracked at once. The least
// recently active user is forgotten first, which only ever lets a query
// through early.
const DefaultSize = 4096

// Limiter allows one query per user per interval. A rejected attempt does
// not extend the wait.
type Limiter struct {
	every time.Duration
	now   func() time.Time

	mu    sync.Mutex
	users *lru.Cache[string, *rate.Limiter]
}

// New creates a Limiter. An interval of zero or less allows everything.
func New(every time.Duration, size int) *Limiter {
	if size <= 0 {
		size = DefaultSize
	}
	users, _ := lru.New[string, *rate.Limiter](size)
	return &Limiter{every: every, now: time.Now, users: users}
}

// SetClock replaces the time source. Tests only.
func (l *Limiter) SetClock(now func() time.Time) {
	l.now = now
}

// Allow records a query attempt by user on platform. When the attempt is
// too soon it returns false and how long the user still has to wait.
func (l *Limiter) Allow(platform, user string) (bool, time.Duration) {
	if l.every <= 0 {
		return true, 0
	}

	key := platform + ":" + user
	l.mu.Lock()
	lim, ok := l.users.Get(key)
	if !ok {
		lim = rate.NewLimiter(rate.Every(l.every), 1)
		l.users.Add(key, lim)
	}
	l.mu.Unlock()

	now := l.now()
	r := lim.ReserveN(now, 1)
	if d := r.DelayFrom(now); d > 0 {
		r.CancelAt(now)
		return false, d
	}
	return true, 0
}

// Tracked returns the number of users currently remembered.
func (l *Limiter) Tracked() int {
	return l.users.Len()
}
