package repository

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStoreContextCarriesDeadline(t *testing.T) {
	old := storeTimeout
	t.Cleanup(func() { storeTimeout = old })

	SetStoreTimeout(5 * time.Second)
	ctx, cancel := storeContext()
	defer cancel()

	deadline, ok := ctx.Deadline()
	require.True(t, ok)
	assert.WithinDuration(t, time.Now().Add(5*time.Second), deadline, time.Second)
}

func TestSetStoreTimeoutIgnoresNonPositive(t *testing.T) {
	old := storeTimeout
	t.Cleanup(func() { storeTimeout = old })

	SetStoreTimeout(20 * time.Second)
	SetStoreTimeout(0)
	SetStoreTimeout(-time.Second)
	assert.Equal(t, 20*time.Second, storeTimeout)
}
