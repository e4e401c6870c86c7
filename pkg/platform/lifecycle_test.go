package platform

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLifecycleStopOrder(t *testing.T) {
	l := NewLifecycle()

	var order []int
	for i := 0; i < 3; i++ {
		i := i
		l.OnStop(func(_ context.Context) error {
			order = append(order, i)
			return nil
		})
	}

	require.NoError(t, l.Stop(context.Background()))
	assert.Equal(t, []int{2, 1, 0}, order)
}

func TestLifecycleStopIdempotent(t *testing.T) {
	l := NewLifecycle()

	var calls int
	l.OnStop(func(_ context.Context) error {
		calls++
		return nil
	})

	require.NoError(t, l.Stop(context.Background()))
	require.NoError(t, l.Stop(context.Background()))
	assert.Equal(t, 1, calls)
}

func TestLifecycleCollectsErrors(t *testing.T) {
	l := NewLifecycle()

	l.OnStop(func(_ context.Context) error { return fmt.Errorf("first failure") })
	l.OnStop(func(_ context.Context) error { return nil })
	l.OnStop(func(_ context.Context) error { return fmt.Errorf("last failure") })

	err := l.Stop(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "first failure")
	assert.Contains(t, err.Error(), "last failure")
}

type closeRecorder struct {
	closed bool
}

func (c *closeRecorder) Close() error {
	c.closed = true
	return nil
}

func TestRegisterCloser(t *testing.T) {
	l := NewLifecycle()
	c := &closeRecorder{}
	l.RegisterCloser(c)

	require.NoError(t, l.Stop(context.Background()))
	assert.True(t, c.closed)
}
