package redis

import (
	"context"
	"encoding/json"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"driveport/internal/drive"
)

// FolderCache caches destination-folder listings so repeated prompts
// within the TTL don't re-list the remote store.
type FolderCache struct {
	client *goredis.Client
	ttl    time.Duration
}

func NewFolderCache(client *goredis.Client, ttl time.Duration) *FolderCache {
	return &FolderCache{client: client, ttl: ttl}
}

func key(parentID string) string {
	return "folders:" + parentID
}

// GetFolders retrieves a cached listing. A miss is (nil, nil).
func (c *FolderCache) GetFolders(ctx context.Context, parentID string) ([]drive.Folder, error) {
	data, err := c.client.Get(ctx, key(parentID)).Result()
	if err == goredis.Nil {
		return nil, nil // Cache miss
	}
	if err != nil {
		return nil, err
	}

	var folders []drive.Folder
	if err := json.Unmarshal([]byte(data), &folders); err != nil {
		return nil, err
	}
	if folders == nil {
		folders = []drive.Folder{}
	}
	return folders, nil
}

// SetFolders stores a listing with the configured TTL.
func (c *FolderCache) SetFolders(ctx context.Context, parentID string, folders []drive.Folder) error {
	if folders == nil {
		folders = []drive.Folder{}
	}
	data, err := json.Marshal(folders)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, key(parentID), data, c.ttl).Err()
}

// Invalidate drops a cached listing.
func (c *FolderCache) Invalidate(ctx context.Context, parentID string) error {
	return c.client.Del(ctx, key(parentID)).Err()
}

// Ping checks if Redis is available.
func (c *FolderCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}
