package resolver

import (
	"context"
	"errors"
	"fmt"
	"time"

	"driveport/internal/drive"
	driveport_errors "driveport/pkg/errors"
	"driveport/pkg/logger"
)

// The source system stamps dated folders three hours ahead of the
// execution clock. Preserved as-is.
const clockOffset = 3 * time.Hour

const datedLayout = "02-01-2006"

// ListingCache caches child-folder listings. A (nil, nil) Get is a
// miss. Implemented by the redis folder cache; a nil cache disables it.
type ListingCache interface {
	GetFolders(ctx context.Context, parentID string) ([]drive.Folder, error)
	SetFolders(ctx context.Context, parentID string, folders []drive.Folder) error
}

// Resolution is a fully resolved upload target.
type Resolution struct {
	RootID          string
	DestinationID   string
	DestinationName string
	DatedID         string
	DatedName       string
}

// Path is the "<destination>/<dated>" string used in reports and audit.
func (r Resolution) Path() string {
	return r.DestinationName + "/" + r.DatedName
}

type Resolver struct {
	gw       drive.Gateway
	cache    ListingCache
	log      *logger.Logger
	root     string
	excluded map[string]bool
	now      func() time.Time
}

func New(gw drive.Gateway, cache ListingCache, root string, excluded []string, log *logger.Logger) *Resolver {
	ex := make(map[string]bool, len(excluded))
	for _, name := range excluded {
		ex[name] = true
	}
	return &Resolver{
		gw:       gw,
		cache:    cache,
		log:      log,
		root:     root,
		excluded: ex,
		now:      time.Now,
	}
}

// WithClock overrides the clock. Used in tests.
func (r *Resolver) WithClock(now func() time.Time) *Resolver {
	r.now = now
	return r
}

// Destinations returns the selectable destination folders: the root's
// children minus the deny-list. A missing root is a configuration
// error, not something to retry.
func (r *Resolver) Destinations(ctx context.Context) (string, []drive.Folder, error) {
	rootID, err := r.gw.FindFolder(ctx, "", r.root)
	if err != nil {
		if errors.Is(err, driveport_errors.ErrNotFound) {
			return "", nil, fmt.Errorf("%w: %q", driveport_errors.ErrRootNotFound, r.root)
		}
		return "", nil, err
	}

	folders, err := r.listChildren(ctx, rootID)
	if err != nil {
		return "", nil, err
	}

	out := make([]drive.Folder, 0, len(folders))
	for _, f := range folders {
		if !r.excluded[f.Name] {
			out = append(out, f)
		}
	}
	return rootID, out, nil
}

// Resolve turns a selected destination name into today's dated folder,
// creating it when absent. The name must still be among the current
// destinations: the set can change between prompt and selection.
func (r *Resolver) Resolve(ctx context.Context, name string) (Resolution, error) {
	rootID, folders, err := r.Destinations(ctx)
	if err != nil {
		return Resolution{}, err
	}

	var dest *drive.Folder
	for i := range folders {
		if folders[i].Name == name {
			dest = &folders[i]
			break
		}
	}
	if dest == nil {
		return Resolution{}, fmt.Errorf("%w: %q", driveport_errors.ErrDestinationGone, name)
	}

	datedName := r.now().Add(clockOffset).Format(datedLayout)
	datedID, err := r.gw.FindFolder(ctx, dest.ID, datedName)
	if errors.Is(err, driveport_errors.ErrNotFound) {
		// Lookup-then-create; a rare concurrent duplicate is accepted.
		datedID, err = r.gw.CreateFolder(ctx, dest.ID, datedName)
	}
	if err != nil {
		return Resolution{}, err
	}

	return Resolution{
		RootID:          rootID,
		DestinationID:   dest.ID,
		DestinationName: dest.Name,
		DatedID:         datedID,
		DatedName:       datedName,
	}, nil
}

func (r *Resolver) listChildren(ctx context.Context, parentID string) ([]drive.Folder, error) {
	if r.cache != nil {
		if cached, err := r.cache.GetFolders(ctx, parentID); err != nil {
			r.log.Warnf("folder cache read failed: %v", err)
		} else if cached != nil {
			return cached, nil
		}
	}
	folders, err := r.gw.ListFolders(ctx, parentID)
	if err != nil {
		return nil, err
	}
	if r.cache != nil {
		if err := r.cache.SetFolders(ctx, parentID, folders); err != nil {
			r.log.Warnf("folder cache write failed: %v", err)
		}
	}
	return folders, nil
}
