package cooldown

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type clock struct{ t time.Time }

func (c *clock) now() time.Time          { return c.t }
func (c *clock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestLimiter(every time.Duration, size int) (*Limiter, *clock) {
	c := &clock{t: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
	l := New(every, size)
	l.SetClock(c.now)
	return l, c
}

func TestAllow_FirstQueryPasses(t *testing.T) {
	l, _ := newTestLimiter(3*time.Second, 0)

	ok, wait := l.Allow("discord", "42")

	assert.True(t, ok)
	assert.Zero(t, wait)
}

func TestAllow_SecondQueryWithinIntervalIsRejected(t *testing.T) {
	// Given: a user who just searched
	l, c := newTestLimiter(3*time.Second, 0)
	l.Allow("discord", "42")

	// When: they search again one second later
	c.advance(time.Second)
	ok, wait := l.Allow("discord", "42")

	// Then: they are told to wait the remaining two seconds
	assert.False(t, ok)
	assert.InDelta(t, (2 * time.Second).Seconds(), wait.Seconds(), 0.01)
}

func TestAllow_RejectedAttemptDoesNotExtendWait(t *testing.T) {
	l, c := newTestLimiter(3*time.Second, 0)
	l.Allow("twitch", "harv")

	c.advance(2 * time.Second)
	ok, _ := l.Allow("twitch", "harv")
	assert.False(t, ok)

	c.advance(1 * time.Second)
	ok, _ = l.Allow("twitch", "harv")
	assert.True(t, ok)
}

func TestAllow_UsersAndPlatformsAreIndependent(t *testing.T) {
	l, _ := newTestLimiter(3*time.Second, 0)
	l.Allow("discord", "42")

	ok, _ := l.Allow("discord", "43")
	assert.True(t, ok)
	ok, _ = l.Allow("twitch", "42")
	assert.True(t, ok)
}

func TestAllow_ZeroIntervalAllowsEverything(t *testing.T) {
	l, _ := newTestLimiter(0, 0)

	for range 5 {
		ok, _ := l.Allow("discord", "42")
		assert.True(t, ok)
	}
	assert.Zero(t, l.Tracked())
}

func TestAllow_TrackingIsBounded(t *testing.T) {
	l, _ := newTestLimiter(3*time.Second, 2)

	l.Allow("discord", "1")
	l.Allow("discord", "2")
	l.Allow("discord", "3")

	assert.Equal(t, 2, l.Tracked())
	// The evicted user starts over
	ok, _ := l.Allow("discord", "1")
	assert.True(t, ok)
}
