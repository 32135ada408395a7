package hierarchy

import (
	"fmt"

	"github.com/disiqueira/gotree/v3"
	"github.com/dustin/go-humanize"
)

// FolderNode is one folder in a nested folder tree.
type FolderNode struct {
	ID       string        `json:"id"`
	Name     string        `json:"name"`
	Children []*FolderNode `json:"children"`
}

// FolderTree returns the nested folder structure below the root.
func (x *Index) FolderTree() []*FolderNode {
	return x.folderTree(nil, make(map[string]bool))
}

func (x *Index) folderTree(parentID *string, visited map[string]bool) []*FolderNode {
	result := []*FolderNode{}
	for _, e := range x.Children(parentID) {
		if !e.IsFolder() || visited[e.ID] {
			continue
		}
		visited[e.ID] = true
		id := e.ID
		result = append(result, &FolderNode{
			ID:       e.ID,
			Name:     e.Name,
			Children: x.folderTree(&id, visited),
		})
	}
	return result
}

// Render draws the whole drive as a text tree under rootLabel.
func (x *Index) Render(rootLabel string) string {
	root := gotree.New(rootLabel)
	x.render(root, nil, make(map[string]bool))
	return root.Print()
}

func (x *Index) render(node gotree.Tree, parentID *string, visited map[string]bool) {
	for _, e := range x.Children(parentID) {
		if visited[e.ID] {
			continue
		}
		visited[e.ID] = true
		if e.IsFolder() {
			id := e.ID
			x.render(node.Add(e.Name+"/"), &id, visited)
			continue
		}
		var size int64
		if e.File != nil {
			size = e.File.SizeBytes
		}
		node.Add(fmt.Sprintf("%s (%s)", e.Name, humanize.Bytes(uint64(size))))
	}
}
