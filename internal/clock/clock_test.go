package clock

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFakeClock(t *testing.T) {
	start := time.Date(2025, time.January, 31, 12, 0, 0, 0, time.FixedZone("AEDT", 11*3600))
	c := NewFakeClock(start)
	assert.Equal(t, time.UTC, c.Now().Location())
	assert.True(t, c.Now().Equal(start))

	c.Advance(time.Hour)
	assert.True(t, c.Now().Equal(start.Add(time.Hour)))

	c.Set(start)
	assert.True(t, c.Now().Equal(start))
}

func TestFakeClockConcurrentUse(t *testing.T) {
	start := time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC)
	c := NewFakeClock(start)

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(2)
		go func() {
			defer wg.Done()
			for range 100 {
				c.Advance(time.Second)
			}
		}()
		go func() {
			defer wg.Done()
			for range 100 {
				assert.False(t, c.Now().Before(start))
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, start.Add(800*time.Second), c.Now())
}
