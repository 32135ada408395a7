package hierarchy

import (
	"errors"
	"slices"
	"strings"

	"medvault-server/internal/model"

	"github.com/samber/lo"
)

// View is a folder listing split for display. Order within each group is
// preserved from the input.
type View struct {
	Folders []*model.Entry `json:"folders"`
	Files   []*model.Entry `json:"files"`
}

// Compose partitions an ordered listing into folders and files.
func Compose(entries []*model.Entry) View {
	return View{
		Folders: lo.Filter(entries, func(e *model.Entry, _ int) bool { return e.IsFolder() }),
		Files:   lo.Filter(entries, func(e *model.Entry, _ int) bool { return !e.IsFolder() }),
	}
}

// Sort orders entries folders first, then by name ascending.
func Sort(entries []*model.Entry) {
	slices.SortStableFunc(entries, func(a, b *model.Entry) int {
		if a.IsFolder() != b.IsFolder() {
			if a.IsFolder() {
				return -1
			}
			return 1
		}
		return strings.Compare(a.Name, b.Name)
	})
}

// Crumb is one step of a navigation trail.
type Crumb struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

var ErrNotFolder = errors.New("only folders can be entered")

// Navigator tracks which folder a client is looking at. The zero value
// points at the root.
type Navigator struct {
	trail []Crumb
}

// NewNavigator starts at the end of trail, e.g. a path from Index.Ancestors.
func NewNavigator(trail []*model.Entry) *Navigator {
	n := &Navigator{}
	for _, e := range trail {
		n.trail = append(n.trail, Crumb{ID: e.ID, Name: e.Name})
	}
	return n
}

// Current returns the id of the folder being viewed, nil for the root.
func (n *Navigator) Current() *string {
	if len(n.trail) == 0 {
		return nil
	}
	id := n.trail[len(n.trail)-1].ID
	return &id
}

// Enter moves into folder.
func (n *Navigator) Enter(folder *model.Entry) error {
	if !folder.IsFolder() {
		return ErrNotFolder
	}
	n.trail = append(n.trail, Crumb{ID: folder.ID, Name: folder.Name})
	return nil
}

// Back moves to the parent folder. At the root it does nothing.
func (n *Navigator) Back() {
	if len(n.trail) > 0 {
		n.trail = n.trail[:len(n.trail)-1]
	}
}

// Root jumps back to the top of the drive.
func (n *Navigator) Root() {
	n.trail = nil
}

// Trail returns the folders from the root down to the current one.
func (n *Navigator) Trail() []Crumb {
	return slices.Clone(n.trail)
}
