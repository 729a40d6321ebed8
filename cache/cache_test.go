package cache

import (
	"testing"

	"github.com/stretchr/testify/require"
)

type jobCacheEntry struct {
	FullVideoPath string
}

func TestStoreAndRetrieve(t *testing.T) {
	c := New[jobCacheEntry]()
	c.Store("job-1", jobCacheEntry{FullVideoPath: "/tmp/full-source.mp4"})
	require.Equal(t, "/tmp/full-source.mp4", c.Get("job-1").FullVideoPath)
}

func TestGetMissingKeyReturnsZeroValue(t *testing.T) {
	c := New[jobCacheEntry]()
	require.Equal(t, jobCacheEntry{}, c.Get("does-not-exist"))
}

func TestRemove(t *testing.T) {
	c := New[jobCacheEntry]()
	c.Store("job-1", jobCacheEntry{FullVideoPath: "/tmp/full-source.mp4"})
	require.NotEqual(t, "", c.Get("job-1").FullVideoPath)

	c.Remove("request-id", "job-1")
	require.Equal(t, "", c.Get("job-1").FullVideoPath)
}
