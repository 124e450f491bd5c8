package jobs

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRefreshAvailabilityWarmsCache(t *testing.T) {
	repo := newFakeCourseRepo(
		testCourse("IF2040", 30, 10),
		testCourse("MA1101", 2, 2),
		testCourse("FI1201", 40, 0),
	)
	cache := newFakeAvailabilityCache()

	job := NewRefreshAvailabilityJob(repo, cache, discardLogger(), DefaultRefreshAvailabilityConfig())
	err := job.Run(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 3, cache.size())

	snapshot, err := cache.Get(context.Background(), "IF2040")
	require.NoError(t, err)
	assert.Equal(t, 20, snapshot.SeatsLeft)
	assert.False(t, snapshot.Full)

	full, err := cache.Get(context.Background(), "MA1101")
	require.NoError(t, err)
	assert.Equal(t, 0, full.SeatsLeft)
	assert.True(t, full.Full)

	stats := job.LastRunStats()
	require.NotNil(t, stats)
	assert.Equal(t, 3, stats.CoursesRefreshed)
	assert.Equal(t, 0, stats.CoursesFailed)
}

func TestRefreshAvailabilityRecordsFailures(t *testing.T) {
	repo := newFakeCourseRepo(
		testCourse("IF2040", 30, 10),
		testCourse("MA1101", 2, 2),
	)
	cache := newFakeAvailabilityCache()
	cache.setErr = assert.AnError

	job := NewRefreshAvailabilityJob(repo, cache, discardLogger(), DefaultRefreshAvailabilityConfig())
	err := job.Run(context.Background())

	require.Error(t, err)

	stats := job.LastRunStats()
	require.NotNil(t, stats)
	assert.Equal(t, 0, stats.CoursesRefreshed)
	assert.Equal(t, 2, stats.CoursesFailed)
	assert.Len(t, stats.Errors, 2)
}

func TestRefreshAvailabilityPagesThroughCatalog(t *testing.T) {
	repo := newFakeCourseRepo(
		testCourse("IF2040", 30, 10),
		testCourse("MA1101", 20, 5),
		testCourse("FI1201", 40, 0),
	)
	cache := newFakeAvailabilityCache()

	config := DefaultRefreshAvailabilityConfig()
	config.PageSize = 2

	job := NewRefreshAvailabilityJob(repo, cache, discardLogger(), config)
	err := job.Run(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 3, cache.size())
}
