package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestWatcher_PublishReachesOnlyThatClient(t *testing.T) {
	w := NewWatcher()
	var a, b []*User
	stopA := w.Subscribe("a", func(u *User) { a = append(a, u) })
	stopB := w.Subscribe("b", func(u *User) { b = append(b, u) })
	defer stopB()

	w.Publish("a", &User{ID: "u1"})
	assert.Len(t, a, 1)
	assert.Empty(t, b)
	assert.Equal(t, 2, w.Subscribers())

	stopA()
	stopA()
	w.Publish("a", nil)
	assert.Len(t, a, 1, "no delivery after unsubscribe")
	assert.Equal(t, 1, w.Subscribers())
}

func TestRateLimiter_PerKeyAndRefill(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	rl := NewRateLimiter(2)
	rl.now = func() time.Time { return now }

	assert.True(t, rl.Allow("1.1.1.1"))
	assert.True(t, rl.Allow("1.1.1.1"))
	assert.False(t, rl.Allow("1.1.1.1"))
	assert.True(t, rl.Allow("2.2.2.2"))

	now = now.Add(30 * time.Second)
	assert.True(t, rl.Allow("1.1.1.1"))
}

func TestRateLimiter_Disabled(t *testing.T) {
	rl := NewRateLimiter(0)
	for i := 0; i < 100; i++ {
		assert.True(t, rl.Allow("k"))
	}
}
