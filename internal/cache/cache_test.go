// Pelagos - Dive Trip Marketplace and Booking Platform
// Copyright 2026 Pelagos Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/pelagos-app/pelagos

package cache

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetAndGet(t *testing.T) {
	c := New(time.Minute)

	c.Set("trips:PH", []string{"apo-reef", "coron"})
	got, ok := c.Get("trips:PH")
	require.True(t, ok)
	assert.Equal(t, []string{"apo-reef", "coron"}, got)
}

func TestGetMiss(t *testing.T) {
	c := New(time.Minute)

	_, ok := c.Get("absent")
	assert.False(t, ok)

	stats := c.GetStats()
	assert.EqualValues(t, 1, stats.Misses)
	assert.EqualValues(t, 0, stats.Hits)
}

func TestExpiration(t *testing.T) {
	c := New(time.Minute)

	c.SetWithTTL("short", "value", 10*time.Millisecond)
	time.Sleep(20 * time.Millisecond)

	_, ok := c.Get("short")
	assert.False(t, ok)

	stats := c.GetStats()
	assert.EqualValues(t, 1, stats.Evictions)
}

func TestClear(t *testing.T) {
	c := New(time.Minute)

	c.Set("a", 1)
	c.Set("b", 2)
	c.Clear()

	_, ok := c.Get("a")
	assert.False(t, ok)
	assert.EqualValues(t, 0, c.GetStats().TotalKeys)
}

func TestHitRate(t *testing.T) {
	c := New(time.Minute)

	c.Set("key", "value")
	c.Get("key")
	c.Get("key")
	c.Get("miss")

	assert.InDelta(t, 66.6, c.HitRate(), 1.0)
}

func TestGenerateKeyStableAndDistinct(t *testing.T) {
	type filter struct {
		Country  string
		MaxPrice string
	}

	k1 := GenerateKey("trips", filter{Country: "PH", MaxPrice: "200"})
	k2 := GenerateKey("trips", filter{Country: "PH", MaxPrice: "200"})
	k3 := GenerateKey("trips", filter{Country: "MX", MaxPrice: "200"})

	assert.Equal(t, k1, k2)
	assert.NotEqual(t, k1, k3)
}

func TestConcurrentAccess(t *testing.T) {
	c := New(time.Minute)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			key := fmt.Sprintf("key-%d", i%10)
			c.Set(key, i)
			c.Get(key)
			if i%7 == 0 {
				c.Delete(key)
			}
		}(i)
	}
	wg.Wait()
}
