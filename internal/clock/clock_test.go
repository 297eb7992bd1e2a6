package clock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRealClockAfterFires(t *testing.T) {
	var c Clock = Real{}
	start := c.Now()
	<-c.After(10 * time.Millisecond)
	assert.True(t, c.Now().Sub(start) >= 0)
}

func TestFakeClockAfterFiresOnAdvance(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	f := NewFake(start)

	ch := f.After(100 * time.Millisecond)
	select {
	case <-ch:
		t.Fatal("fired before advance")
	default:
	}

	f.Advance(50 * time.Millisecond)
	select {
	case <-ch:
		t.Fatal("fired early")
	default:
	}

	f.Advance(60 * time.Millisecond)
	select {
	case got := <-ch:
		require.Equal(t, start.Add(110*time.Millisecond), got)
	default:
		t.Fatal("did not fire")
	}
}

func TestFakeClockTicker(t *testing.T) {
	f := NewFake(time.Unix(0, 0))
	ticker := f.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()

	f.Advance(25 * time.Millisecond)

	count := 0
drain:
	for {
		select {
		case <-ticker.C():
			count++
		default:
			break drain
		}
	}
	assert.Equal(t, 1, count) // unbuffered-style single pending tick, not backlog
}

func TestFakeClockTickerStops(t *testing.T) {
	f := NewFake(time.Unix(0, 0))
	ticker := f.NewTicker(10 * time.Millisecond)
	ticker.Stop()
	f.Advance(100 * time.Millisecond)
	select {
	case <-ticker.C():
		t.Fatal("stopped ticker fired")
	default:
	}
}
