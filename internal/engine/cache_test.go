package engine

import (
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestModelCache_Load(t *testing.T) {
	t.Run("should invoke the loader once per key", func(t *testing.T) {
		// Arrange
		cache := NewModelCache()
		calls := 0

		// Act
		first, err1 := cache.Load("whisper:base", func() (interface{}, error) {
			calls++
			return "model-handle", nil
		})
		second, err2 := cache.Load("whisper:base", func() (interface{}, error) {
			calls++
			return "other-handle", nil
		})

		// Assert
		assert.NoError(t, err1)
		assert.NoError(t, err2)
		assert.Equal(t, "model-handle", first)
		assert.Equal(t, "model-handle", second)
		assert.Equal(t, 1, calls)
	})

	t.Run("should load different keys independently", func(t *testing.T) {
		// Arrange
		cache := NewModelCache()

		// Act
		a, _ := cache.Load("align:en", func() (interface{}, error) { return "en", nil })
		b, _ := cache.Load("align:es", func() (interface{}, error) { return "es", nil })

		// Assert
		assert.Equal(t, "en", a)
		assert.Equal(t, "es", b)
		assert.Equal(t, 2, cache.Len())
	})

	t.Run("should not cache a failed load", func(t *testing.T) {
		// Arrange
		cache := NewModelCache()

		// Act
		_, err := cache.Load("whisper:base", func() (interface{}, error) {
			return nil, fmt.Errorf("download failed")
		})
		value, retryErr := cache.Load("whisper:base", func() (interface{}, error) {
			return "recovered", nil
		})

		// Assert
		assert.Error(t, err)
		assert.NoError(t, retryErr)
		assert.Equal(t, "recovered", value)
	})

	t.Run("should run a single load under concurrent access to one key", func(t *testing.T) {
		// Arrange
		cache := NewModelCache()
		var loads int32
		var wg sync.WaitGroup

		// Act
		for i := 0; i < 32; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				value, err := cache.Load("whisper:large-v3", func() (interface{}, error) {
					atomic.AddInt32(&loads, 1)
					return "handle", nil
				})
				require.NoError(t, err)
				require.Equal(t, "handle", value)
			}()
		}
		wg.Wait()

		// Assert
		assert.Equal(t, int32(1), atomic.LoadInt32(&loads))
	})
}
