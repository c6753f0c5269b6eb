// Package drivetest provides an in-memory Gateway for tests.
package drivetest

import (
	"context"
	"fmt"
	"os"
	"sort"
	"sync"

	"driveport/internal/drive"
	driveport_errors "driveport/pkg/errors"
)

type folder struct {
	id       string
	name     string
	parentID string
}

type object struct {
	id       string
	name     string
	folderID string
	content  []byte
	writes   int
}

// Gateway is an in-memory drive.Gateway. Folder IDs are synthetic and
// stable; objects keep their ID across overwrites.
type Gateway struct {
	mu      sync.Mutex
	nextID  int
	folders map[string]*folder
	objects map[string]*object
	sheets  map[string][][]string

	// FailPutNamed makes Put fail for that destination name.
	FailPutNamed string
	// Err, when set, is returned by every call. Used for auth and
	// transport failure scenarios.
	Err error
}

func New() *Gateway {
	return &Gateway{
		folders: make(map[string]*folder),
		objects: make(map[string]*object),
		sheets:  make(map[string][][]string),
	}
}

func (g *Gateway) newID(prefix string) string {
	g.nextID++
	return fmt.Sprintf("%s-%d", prefix, g.nextID)
}

// AddFolder seeds a folder and returns its ID. parentID "" is the root.
func (g *Gateway) AddFolder(parentID, name string) string {
	g.mu.Lock()
	defer g.mu.Unlock()
	id := g.newID("folder")
	g.folders[id] = &folder{id: id, name: name, parentID: parentID}
	return id
}

func (g *Gateway) FindFolder(_ context.Context, parentID, name string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.Err != nil {
		return "", g.Err
	}
	for _, f := range g.folders {
		if f.parentID == parentID && f.name == name {
			return f.id, nil
		}
	}
	return "", driveport_errors.ErrNotFound
}

func (g *Gateway) ListFolders(_ context.Context, parentID string) ([]drive.Folder, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.Err != nil {
		return nil, g.Err
	}
	var out []drive.Folder
	for _, f := range g.folders {
		if f.parentID == parentID {
			out = append(out, drive.Folder{ID: f.id, Name: f.name})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (g *Gateway) CreateFolder(_ context.Context, parentID, name string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.Err != nil {
		return "", g.Err
	}
	id := g.newID("folder")
	g.folders[id] = &folder{id: id, name: name, parentID: parentID}
	return id, nil
}

func (g *Gateway) Put(_ context.Context, localPath, folderID, name string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.Err != nil {
		return "", g.Err
	}
	if g.FailPutNamed != "" && name == g.FailPutNamed {
		return "", fmt.Errorf("%w: %s", driveport_errors.ErrTransfer, name)
	}
	content, err := os.ReadFile(localPath)
	if err != nil {
		return "", fmt.Errorf("%w: %v", driveport_errors.ErrTransfer, err)
	}
	for _, o := range g.objects {
		if o.folderID == folderID && o.name == name {
			o.content = content
			o.writes++
			return o.id, nil
		}
	}
	id := g.newID("object")
	g.objects[id] = &object{id: id, name: name, folderID: folderID, content: content, writes: 1}
	return id, nil
}

func (g *Gateway) EnsureSheet(_ context.Context, folderID, name string, header []string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.Err != nil {
		return "", g.Err
	}
	for _, o := range g.objects {
		if o.folderID == folderID && o.name == name {
			return o.id, nil
		}
	}
	id := g.newID("sheet")
	g.objects[id] = &object{id: id, name: name, folderID: folderID}
	g.sheets[id] = [][]string{append([]string(nil), header...)}
	return id, nil
}

func (g *Gateway) AppendRow(_ context.Context, sheetID string, row []string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.Err != nil {
		return g.Err
	}
	if _, ok := g.sheets[sheetID]; !ok {
		return driveport_errors.ErrNotFound
	}
	g.sheets[sheetID] = append(g.sheets[sheetID], append([]string(nil), row...))
	return nil
}

// Objects returns name -> (content, write count) for a folder.
func (g *Gateway) Objects(folderID string) map[string]struct {
	Content string
	Writes  int
} {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make(map[string]struct {
		Content string
		Writes  int
	})
	for _, o := range g.objects {
		if o.folderID == folderID {
			out[o.name] = struct {
				Content string
				Writes  int
			}{string(o.content), o.writes}
		}
	}
	return out
}

// Rows returns the sheet contents including the header row.
func (g *Gateway) Rows(sheetID string) [][]string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.sheets[sheetID]
}

// FolderName resolves an ID back to its name.
func (g *Gateway) FolderName(id string) string {
	g.mu.Lock()
	defer g.mu.Unlock()
	if f, ok := g.folders[id]; ok {
		return f.name
	}
	return ""
}
