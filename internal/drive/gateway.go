package drive

import (
	"context"
)

// Folder is a named folder in the remote store.
type Folder struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Gateway is the remote hierarchical store boundary. A parentID of ""
// means the store root. Lookups return driveport_errors.ErrNotFound
// when the target is absent. Implementations are responsible for
// credential refresh: callers never see an auth-expired condition that
// a single guarded refresh-and-retry could have absorbed.
type Gateway interface {
	// FindFolder returns the ID of the named child folder.
	FindFolder(ctx context.Context, parentID, name string) (string, error)
	// ListFolders returns the immediate child folders.
	ListFolders(ctx context.Context, parentID string) ([]Folder, error)
	// CreateFolder creates a child folder and returns its ID.
	CreateFolder(ctx context.Context, parentID, name string) (string, error)
	// Put uploads a local file under the given name. An existing object
	// with that name is overwritten in place, keeping its identifier.
	Put(ctx context.Context, localPath, folderID, name string) (string, error)
	// EnsureSheet returns the tabular log in the folder, creating it
	// with the given header row when absent.
	EnsureSheet(ctx context.Context, folderID, name string, header []string) (string, error)
	// AppendRow appends one row at the end of the sheet.
	AppendRow(ctx context.Context, sheetID string, row []string) error
}
