package hierarchy

import (
	"fmt"
	"slices"
	"strings"

	"medvault-server/internal/model"

	"github.com/samber/lo"
)

// Index holds one owner's entries keyed by id, plus a parent -> children
// index kept up to date on every change. The root is keyed by "".
// An Index is not safe for concurrent use.
type Index struct {
	entries  map[string]*model.Entry
	children map[string]map[string]struct{}
}

// NewIndex builds an index from a flat entry list.
func NewIndex(entries []*model.Entry) *Index {
	x := &Index{
		entries:  make(map[string]*model.Entry, len(entries)),
		children: make(map[string]map[string]struct{}),
	}
	for _, e := range entries {
		x.Put(e)
	}
	return x
}

// Len returns the number of entries.
func (x *Index) Len() int {
	return len(x.entries)
}

// Get returns a copy of the entry with id.
func (x *Index) Get(id string) (*model.Entry, bool) {
	e, ok := x.entries[id]
	if !ok {
		return nil, false
	}
	return e.Clone(), true
}

// Folder returns the folder with id, or false when id is missing or a file.
func (x *Index) Folder(id string) (*model.Entry, bool) {
	e, ok := x.entries[id]
	if !ok || !e.IsFolder() {
		return nil, false
	}
	return e.Clone(), true
}

// Put inserts or replaces an entry, moving it between parents if needed.
func (x *Index) Put(e *model.Entry) {
	if old, ok := x.entries[e.ID]; ok {
		x.unlink(old.ParentKey(), old.ID)
	}
	c := e.Clone()
	x.entries[c.ID] = c
	set, ok := x.children[c.ParentKey()]
	if !ok {
		set = make(map[string]struct{})
		x.children[c.ParentKey()] = set
	}
	set[c.ID] = struct{}{}
}

// Remove drops one entry. Its children stay indexed under its id.
func (x *Index) Remove(id string) {
	e, ok := x.entries[id]
	if !ok {
		return
	}
	x.unlink(e.ParentKey(), id)
	delete(x.entries, id)
}

func (x *Index) unlink(parent, id string) {
	set := x.children[parent]
	delete(set, id)
	if len(set) == 0 {
		delete(x.children, parent)
	}
}

// Children returns the direct children of parentID (nil for the root),
// folders first, then by name.
func (x *Index) Children(parentID *string) []*model.Entry {
	key := ""
	if parentID != nil {
		key = *parentID
	}
	set := x.children[key]
	out := make([]*model.Entry, 0, len(set))
	for id := range set {
		out = append(out, x.entries[id].Clone())
	}
	Sort(out)
	return out
}

// HasChild reports whether parentID already holds an entry of kind named name.
// exclude is skipped, so a rename does not collide with itself.
func (x *Index) HasChild(parentID *string, kind model.Kind, name, exclude string) bool {
	key := ""
	if parentID != nil {
		key = *parentID
	}
	for id := range x.children[key] {
		e := x.entries[id]
		if id != exclude && e.Kind == kind && e.Name == name {
			return true
		}
	}
	return false
}

// Ancestors returns the folders above id, root first. It fails on a broken
// or cyclic parent chain.
func (x *Index) Ancestors(id string) ([]*model.Entry, error) {
	e, ok := x.entries[id]
	if !ok {
		return nil, fmt.Errorf("entry %s not indexed", id)
	}

	var path []*model.Entry
	seen := map[string]bool{id: true}
	for e.ParentID != nil {
		pid := *e.ParentID
		if seen[pid] {
			return nil, fmt.Errorf("parent chain of %s loops at %s", id, pid)
		}
		seen[pid] = true
		parent, ok := x.entries[pid]
		if !ok {
			return nil, fmt.Errorf("parent %s of %s not indexed", pid, e.ID)
		}
		path = append(path, parent.Clone())
		e = parent
	}
	slices.Reverse(path)
	return path, nil
}

// WouldCycle reports whether moving id under newParent makes id its own
// ancestor.
func (x *Index) WouldCycle(id string, newParent *string) bool {
	for cur := newParent; cur != nil; {
		if *cur == id {
			return true
		}
		p, ok := x.entries[*cur]
		if !ok {
			return false
		}
		cur = p.ParentID
	}
	return false
}

// Descendants returns id's subtree in post-order: every entry appears
// before its parent, and id itself comes last.
func (x *Index) Descendants(id string) []*model.Entry {
	if _, ok := x.entries[id]; !ok {
		return nil
	}
	var out []*model.Entry
	visited := make(map[string]bool)
	var walk func(string)
	walk = func(cur string) {
		if visited[cur] {
			return
		}
		visited[cur] = true
		for _, child := range x.Children(&cur) {
			walk(child.ID)
		}
		out = append(out, x.entries[cur].Clone())
	}
	walk(id)
	return out
}

// Folders returns every folder, ordered by name.
func (x *Index) Folders() []*model.Entry {
	out := lo.FilterMap(lo.Values(x.entries), func(e *model.Entry, _ int) (*model.Entry, bool) {
		return e.Clone(), e.IsFolder()
	})
	slices.SortFunc(out, func(a, b *model.Entry) int { return strings.Compare(a.Name, b.Name) })
	return out
}

// Search returns entries whose name contains q, case-insensitively.
func (x *Index) Search(q string) []*model.Entry {
	q = strings.ToLower(q)
	out := lo.FilterMap(lo.Values(x.entries), func(e *model.Entry, _ int) (*model.Entry, bool) {
		return e.Clone(), strings.Contains(strings.ToLower(e.Name), q)
	})
	Sort(out)
	return out
}

// UsedBytes sums the sizes of all files.
func (x *Index) UsedBytes() int64 {
	return lo.SumBy(lo.Values(x.entries), func(e *model.Entry) int64 {
		if e.File == nil {
			return 0
		}
		return e.File.SizeBytes
	})
}
