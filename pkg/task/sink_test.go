package task

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResultSinkSettlesOnce(t *testing.T) {
	sink := NewResultSink()

	sink.Settle(Outcome{Result: []byte("first")})
	sink.Settle(Outcome{Result: []byte("second")}) // dropped

	out := <-sink.Chan()
	require.True(t, out.OK())
	assert.Equal(t, []byte("first"), out.Result)

	select {
	case <-sink.Chan():
		t.Fatal("sink delivered a second outcome")
	default:
	}
}

func TestResultSinkConcurrentSettle(t *testing.T) {
	sink := NewResultSink()
	done := make(chan struct{})
	for i := 0; i < 8; i++ {
		go func(i int) {
			sink.Settle(Outcome{Result: []byte{byte(i)}})
			done <- struct{}{}
		}(i)
	}
	for i := 0; i < 8; i++ {
		<-done
	}
	out := <-sink.Chan()
	assert.True(t, out.OK())
}
