package resource

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHostManager_CommandQueuesReportsCount(t *testing.T) {
	m := NewHostManager(3)
	qs := m.CommandQueues()
	require.Len(t, qs, 3)
	assert.Equal(t, "host-0", qs[0].ID())
	assert.Equal(t, "host-2", qs[2].ID())
}

func TestHostManager_RequestBufferWithHostData(t *testing.T) {
	m := NewHostManager(1)
	b, err := m.RequestBuffer(context.Background(), []int{3}, []float64{1, 2, 3}, nil)
	require.NoError(t, err)
	assert.Equal(t, 1.0, b.Get(0))
	assert.Equal(t, 2.0, b.Get(1))
	assert.Equal(t, 3.0, b.Get(2))
}

func TestHostManager_RequestBufferWithFillValue(t *testing.T) {
	m := NewHostManager(1)
	v := 4.2
	b, err := m.RequestBuffer(context.Background(), []int{2}, nil, &v)
	require.NoError(t, err)
	assert.Equal(t, 4.2, b.Get(0))
	assert.Equal(t, 4.2, b.Get(1))
}

func TestHostManager_RequestBufferRejectsEmptyShape(t *testing.T) {
	m := NewHostManager(1)
	_, err := m.RequestBuffer(context.Background(), nil, nil, nil)
	assert.Error(t, err)
}

func TestNewHostManager_ClampsToAtLeastOneQueue(t *testing.T) {
	m := NewHostManager(0)
	assert.Len(t, m.CommandQueues(), 1)
}
