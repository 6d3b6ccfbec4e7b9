package clock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var epoch = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

func TestFakeAfterFuncFiresOnAdvance(t *testing.T) {
	c := Fake(epoch)
	fired := 0
	c.AfterFunc(2*time.Second, func() { fired++ })

	c.Advance(time.Second)
	assert.Equal(t, 0, fired)
	c.Advance(time.Second)
	assert.Equal(t, 1, fired)
	c.Advance(10 * time.Second)
	assert.Equal(t, 1, fired, "one-shot timer must not fire twice")
}

func TestFakeAfterFuncStop(t *testing.T) {
	c := Fake(epoch)
	fired := false
	timer := c.AfterFunc(time.Second, func() { fired = true })

	assert.True(t, timer.Stop())
	assert.False(t, timer.Stop())
	c.Advance(time.Minute)
	assert.False(t, fired)
	assert.Equal(t, 0, c.PendingCount())
}

func TestFakeTickerDropsWhenFull(t *testing.T) {
	c := Fake(epoch)
	ticker := c.NewTicker(2 * time.Second)
	defer ticker.Stop()

	c.Advance(6 * time.Second)
	select {
	case at := <-ticker.C:
		assert.Equal(t, epoch.Add(6*time.Second), at)
	default:
		t.Fatal("expected a tick")
	}
	select {
	case <-ticker.C:
		t.Fatal("buffer holds a single tick")
	default:
	}
}

func TestFakeWaitForTimers(t *testing.T) {
	c := Fake(epoch)
	done := make(chan struct{})
	go func() {
		ticker := c.NewTicker(time.Second)
		<-ticker.C
		ticker.Stop()
		close(done)
	}()

	c.WaitForTimers(1)
	c.Advance(time.Second)
	select {
	case <-done:
	case <-time.After(time.Second):
		require.FailNow(t, "ticker goroutine did not observe the tick")
	}
}
