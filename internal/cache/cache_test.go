package cache

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/beardedgiant/pipewatch/internal/domain"
)

func TestPutTerminalThenGet(t *testing.T) {
	c := New()
	stored := c.Put(KindJob, 1, "payload", domain.StatusSuccess)
	require.True(t, stored)

	v, ok := c.Get(KindJob, 1)
	require.True(t, ok)
	assert.Equal(t, "payload", v)
}

func TestNonTerminalIsNeverStored(t *testing.T) {
	c := New()
	for _, status := range []domain.Status{domain.StatusPending, domain.StatusRunning, domain.StatusManual} {
		assert.False(t, c.Put(KindJob, 1, "payload", status), "status %s", status)
	}
	_, ok := c.Get(KindJob, 1)
	assert.False(t, ok)
	assert.Zero(t, c.Len())
}

func TestAllTerminalStatusesAreCacheable(t *testing.T) {
	c := New()
	for i, status := range []domain.Status{
		domain.StatusSuccess, domain.StatusFailed, domain.StatusCanceled, domain.StatusSkipped,
	} {
		require.True(t, c.Put(KindJob, i, i, status), "status %s", status)
	}
	assert.Equal(t, 4, c.Len())
}

func TestKindsDoNotCollide(t *testing.T) {
	c := New()
	c.Put(KindJob, 1, "job", domain.StatusSuccess)
	c.Put(KindLog, 1, "log", domain.StatusSuccess)

	v, _ := c.Get(KindJob, 1)
	assert.Equal(t, "job", v)
	v, _ = c.Get(KindLog, 1)
	assert.Equal(t, "log", v)
}

func TestInvalidateRemovesEntry(t *testing.T) {
	c := New()
	c.Put(KindPipeline, 5, "jobs", domain.StatusFailed)
	c.Invalidate(KindPipeline, 5)
	_, ok := c.Get(KindPipeline, 5)
	assert.False(t, ok)
}

func TestClearDropsEverything(t *testing.T) {
	c := New()
	c.Put(KindJob, 1, "a", domain.StatusSuccess)
	c.Put(KindLog, 2, "b", domain.StatusSuccess)
	c.Clear()
	assert.Zero(t, c.Len())
}

func TestConcurrentWritesResolveToOneValue(t *testing.T) {
	c := New()
	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			c.Put(KindJob, 1, n, domain.StatusSuccess)
		}(i)
	}
	wg.Wait()

	v, ok := c.Get(KindJob, 1)
	require.True(t, ok)
	n, isInt := v.(int)
	require.True(t, isInt)
	assert.GreaterOrEqual(t, n, 0)
	assert.Less(t, n, 32)
}

func TestConcurrentReadersAndWritersDistinctKeys(t *testing.T) {
	c := New()
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(2)
		go func(id int) {
			defer wg.Done()
			c.Put(KindLog, id, id, domain.StatusFailed)
		}(i)
		go func(id int) {
			defer wg.Done()
			if v, ok := c.Get(KindLog, id); ok {
				assert.Equal(t, id, v)
			}
		}(i)
	}
	wg.Wait()
	assert.Equal(t, 16, c.Len())
}
