package memprobe

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFakeProbeSetAndFreePercent(t *testing.T) {
	f := NewFake(90)
	used, err := f.UsedPercent()
	require.NoError(t, err)
	assert.Equal(t, 90.0, used)

	free, err := FreePercent(f)
	require.NoError(t, err)
	assert.Equal(t, 10.0, free)

	f.Set(2)
	free, err = FreePercent(f)
	require.NoError(t, err)
	assert.Equal(t, 98.0, free)
}

func TestSystemProbeReturnsBoundedPercent(t *testing.T) {
	p := System{}
	used, err := p.UsedPercent()
	require.NoError(t, err)
	assert.GreaterOrEqual(t, used, 0.0)
	assert.LessOrEqual(t, used, 100.0)
}
