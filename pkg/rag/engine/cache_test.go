package engine

import (
	"context"
	"sync"
	"testing"

	"manual-chatbot-be/internal/apperror"
	"manual-chatbot-be/pkg/session"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCache_GetOrCreate(t *testing.T) {
	h := newHarness(t)
	s := h.session(t, session.StatusReady)
	c := NewCache(h.deps, DefaultConfig())

	var wg sync.WaitGroup
	engines := make([]*Engine, 20)
	for i := range engines {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			e, err := c.Get(s.ID)
			assert.NoError(t, err)
			engines[i] = e
		}(i)
	}
	wg.Wait()

	for _, e := range engines {
		assert.Same(t, engines[0], e)
	}
	assert.Equal(t, 1, c.Len())

	_, err := c.Get("missing")
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}

func TestCache_EvictClosesHandle(t *testing.T) {
	h := newHarness(t)
	h.store.handle = &fakeHandle{hits: tireHits}
	s := h.session(t, session.StatusReady)
	c := NewCache(h.deps, DefaultConfig())

	e, err := c.Get(s.ID)
	require.NoError(t, err)
	_, err = e.Ask(context.Background(), "What is the recommended tire pressure?")
	require.NoError(t, err)

	c.Evict(s.ID)
	assert.True(t, h.store.handle.closed)
	assert.Zero(t, c.Len())

	fresh, err := c.Get(s.ID)
	require.NoError(t, err)
	assert.NotSame(t, e, fresh)
	assert.Empty(t, fresh.History())
}

func TestCache_RefreshKeepsHistory(t *testing.T) {
	h := newHarness(t)
	h.store.handle = &fakeHandle{hits: tireHits}
	s := h.session(t, session.StatusReady)
	c := NewCache(h.deps, DefaultConfig())

	e, err := c.Get(s.ID)
	require.NoError(t, err)
	_, err = e.Ask(context.Background(), "What is the recommended tire pressure?")
	require.NoError(t, err)
	require.Equal(t, 1, h.store.opens)

	c.Refresh(s.ID)
	assert.True(t, h.store.handle.closed)

	same, err := c.Get(s.ID)
	require.NoError(t, err)
	assert.Same(t, e, same)
	assert.Len(t, same.History(), 2)

	_, err = same.Ask(context.Background(), "What is the recommended tire pressure?")
	require.NoError(t, err)
	assert.Equal(t, 2, h.store.opens, "index is reopened after a refresh")

	c.Refresh("unknown")
}

func TestCache_DeleteRacingGetLeavesNoEngine(t *testing.T) {
	h := newHarness(t)
	c := NewCache(h.deps, DefaultConfig())

	const sessions = 50
	var wg sync.WaitGroup
	for i := 0; i < sessions; i++ {
		s := h.session(t, session.StatusReady)

		wg.Add(2)
		go func() {
			defer wg.Done()
			for j := 0; j < 20; j++ {
				if _, err := c.Get(s.ID); err != nil {
					assert.ErrorIs(t, err, apperror.ErrNotFound)
					return
				}
			}
		}()
		go func() {
			defer wg.Done()
			h.registry.Delete(s.ID)
			c.Evict(s.ID)
		}()
	}
	wg.Wait()

	assert.Zero(t, c.Len(), "engines of deleted sessions must not stay cached")
}
