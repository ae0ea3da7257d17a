package idgen

import (
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNextUnique(t *testing.T) {
	g := New()
	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		id := g.Next("msg")
		require.False(t, seen[id], "duplicate id %s", id)
		seen[id] = true
		assert.True(t, strings.HasPrefix(id, "msg-"))
	}
}

func TestNextUniqueConcurrent(t *testing.T) {
	g := New()
	var mu sync.Mutex
	seen := make(map[string]bool)
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				id := g.Next("tool")
				mu.Lock()
				if seen[id] {
					t.Errorf("duplicate id %s", id)
				}
				seen[id] = true
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
}

func TestDistinctGeneratorsDistinctNonces(t *testing.T) {
	a, b := New(), New()
	assert.NotEqual(t, a.nonce, b.nonce)
}

func TestEncodeBase36Width(t *testing.T) {
	assert.Equal(t, "0000", encodeBase36(0, 4))
	assert.Equal(t, "000z", encodeBase36(35, 4))
	assert.Equal(t, "0010", encodeBase36(36, 4))
}
