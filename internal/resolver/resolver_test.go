package resolver

import (
	"context"
	"sync"
	"testing"
	"time"

	"driveport/internal/drive"
	"driveport/internal/drive/drivetest"
	driveport_errors "driveport/pkg/errors"
	"driveport/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedClock() func() time.Time {
	// 21:30 UTC on 14-03-2026; +3h rolls the date over to 15-03-2026.
	at := time.Date(2026, 3, 14, 21, 30, 0, 0, time.UTC)
	return func() time.Time { return at }
}

func TestDestinationsFiltersDenyList(t *testing.T) {
	gw := drivetest.New()
	rootID := gw.AddFolder("", "Upload")
	gw.AddFolder(rootID, "Events")
	gw.AddFolder(rootID, "Archive")
	gw.AddFolder(rootID, "Trips")

	r := New(gw, nil, "Upload", []string{"Archive"}, logger.NewNop())

	gotRoot, folders, err := r.Destinations(context.Background())
	require.NoError(t, err)
	assert.Equal(t, rootID, gotRoot)

	names := make([]string, 0, len(folders))
	for _, f := range folders {
		names = append(names, f.Name)
	}
	assert.ElementsMatch(t, []string{"Events", "Trips"}, names)
}

func TestDestinationsMissingRoot(t *testing.T) {
	gw := drivetest.New()
	gw.AddFolder("", "Other")

	r := New(gw, nil, "Upload", nil, logger.NewNop())

	_, _, err := r.Destinations(context.Background())
	assert.ErrorIs(t, err, driveport_errors.ErrRootNotFound)
}

func TestResolveCreatesDatedFolder(t *testing.T) {
	gw := drivetest.New()
	rootID := gw.AddFolder("", "Upload")
	gw.AddFolder(rootID, "Events")

	r := New(gw, nil, "Upload", nil, logger.NewNop()).WithClock(fixedClock())

	res, err := r.Resolve(context.Background(), "Events")
	require.NoError(t, err)
	assert.Equal(t, "15-03-2026", res.DatedName)
	assert.Equal(t, "Events/15-03-2026", res.Path())
	assert.Equal(t, res.DatedName, gw.FolderName(res.DatedID))

	// A second resolution reuses the existing dated folder.
	again, err := r.Resolve(context.Background(), "Events")
	require.NoError(t, err)
	assert.Equal(t, res.DatedID, again.DatedID)
}

func TestResolveDestinationGone(t *testing.T) {
	gw := drivetest.New()
	rootID := gw.AddFolder("", "Upload")
	gw.AddFolder(rootID, "Events")

	r := New(gw, nil, "Upload", nil, logger.NewNop()).WithClock(fixedClock())

	_, err := r.Resolve(context.Background(), "Trips")
	assert.ErrorIs(t, err, driveport_errors.ErrDestinationGone)
}

func TestResolveExcludedNameIsGone(t *testing.T) {
	gw := drivetest.New()
	rootID := gw.AddFolder("", "Upload")
	gw.AddFolder(rootID, "Archive")

	r := New(gw, nil, "Upload", []string{"Archive"}, logger.NewNop()).WithClock(fixedClock())

	// A denied name cannot be selected even if the folder exists.
	_, err := r.Resolve(context.Background(), "Archive")
	assert.ErrorIs(t, err, driveport_errors.ErrDestinationGone)
}

type memoryCache struct {
	mu     sync.Mutex
	data   map[string][]drive.Folder
	hits   int
	misses int
}

func (c *memoryCache) GetFolders(_ context.Context, parentID string) ([]drive.Folder, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if folders, ok := c.data[parentID]; ok {
		c.hits++
		return folders, nil
	}
	c.misses++
	return nil, nil
}

func (c *memoryCache) SetFolders(_ context.Context, parentID string, folders []drive.Folder) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[parentID] = folders
	return nil
}

func TestDestinationsUsesListingCache(t *testing.T) {
	gw := drivetest.New()
	rootID := gw.AddFolder("", "Upload")
	gw.AddFolder(rootID, "Events")

	cache := &memoryCache{data: make(map[string][]drive.Folder)}
	r := New(gw, cache, "Upload", nil, logger.NewNop())

	_, _, err := r.Destinations(context.Background())
	require.NoError(t, err)
	_, _, err = r.Destinations(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, cache.misses)
	assert.Equal(t, 1, cache.hits)
}
