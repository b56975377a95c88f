package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/use-agent/cadastre/models"
)

func TestGetRespectsMaxAge(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	c := New(10, 0)
	c.now = func() time.Time { return now }

	rec := &models.PropertyRecord{Geocode: "0310", Year: 2023}
	c.Set(Key("0310", 2023), rec)

	got, ok := c.Get(Key("0310", 2023), time.Minute)
	require.True(t, ok)
	require.Same(t, rec, got)

	_, ok = c.Get(Key("0310", 2023), 0)
	require.False(t, ok)

	now = now.Add(2 * time.Minute)
	_, ok = c.Get(Key("0310", 2023), time.Minute)
	require.False(t, ok)

	_, ok = c.Get(Key("0310", 2022), time.Hour)
	require.False(t, ok)
}

func TestSetEvictsAtCapacity(t *testing.T) {
	c := New(2, 0)
	c.Set(Key("A", 2023), &models.PropertyRecord{})
	c.Set(Key("B", 2023), &models.PropertyRecord{})
	c.Set(Key("B", 2023), &models.PropertyRecord{})
	require.Equal(t, 2, c.Len())

	c.Set(Key("C", 2023), &models.PropertyRecord{})
	require.Equal(t, 2, c.Len())
	_, ok := c.Get(Key("C", 2023), time.Hour)
	require.True(t, ok)
}

func TestEvictOlderThan(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	c := New(10, 0)
	c.now = func() time.Time { return now }
	c.Set(Key("old", 2023), &models.PropertyRecord{})
	now = now.Add(time.Hour)
	c.Set(Key("new", 2023), &models.PropertyRecord{})

	c.evictOlderThan(now.Add(-30 * time.Minute))
	require.Equal(t, 1, c.Len())
}

func TestKeyDistinguishesYear(t *testing.T) {
	require.NotEqual(t, Key("0310", 2023), Key("0310", 2022))
	require.Equal(t, Key("0310", 2023), Key("0310", 2023))
}
