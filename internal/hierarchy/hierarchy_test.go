package hierarchy

import (
	"strings"
	"testing"
	"time"

	"medvault-server/internal/model"

	"github.com/google/go-cmp/cmp"
)

func folder(id, name string, parent *string) *model.Entry {
	return &model.Entry{ID: id, Name: name, Kind: model.KindFolder, OwnerID: "u1", ParentID: parent, CreatedAt: time.Unix(0, 0)}
}

func file(id, name string, parent *string, size int64) *model.Entry {
	return &model.Entry{
		ID: id, Name: name, Kind: model.KindFile, OwnerID: "u1", ParentID: parent, CreatedAt: time.Unix(0, 0),
		File: &model.FileMeta{StorageRef: "ref-" + id, MimeType: "text/plain", SizeBytes: size},
	}
}

func ptr(s string) *string { return &s }

func ids(entries []*model.Entry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.ID
	}
	return out
}

// sample builds:
//
//	root: docs/ (f1), images/ (f2), b.txt, a.txt
//	docs: reports/ (f3), lab.pdf
//	reports: 2024.pdf
func sample() *Index {
	return NewIndex([]*model.Entry{
		file("b", "b.txt", nil, 10),
		folder("f2", "images", nil),
		file("a", "a.txt", nil, 20),
		folder("f1", "docs", nil),
		folder("f3", "reports", ptr("f1")),
		file("lab", "lab.pdf", ptr("f1"), 100),
		file("r24", "2024.pdf", ptr("f3"), 1000),
	})
}

func TestChildrenOrderAndIsolation(t *testing.T) {
	x := sample()

	if diff := cmp.Diff([]string{"f1", "f2", "a", "b"}, ids(x.Children(nil))); diff != "" {
		t.Errorf("root children (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"f3", "lab"}, ids(x.Children(ptr("f1")))); diff != "" {
		t.Errorf("docs children (-want +got):\n%s", diff)
	}
	if got := x.Children(ptr("f2")); len(got) != 0 {
		t.Errorf("images should be empty, got %v", ids(got))
	}
}

func TestPutMovesBetweenParents(t *testing.T) {
	x := sample()
	moved, _ := x.Get("a")
	moved.ParentID = ptr("f2")
	x.Put(moved)

	if diff := cmp.Diff([]string{"f1", "f2", "b"}, ids(x.Children(nil))); diff != "" {
		t.Errorf("root after move (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"a"}, ids(x.Children(ptr("f2")))); diff != "" {
		t.Errorf("images after move (-want +got):\n%s", diff)
	}
}

func TestGetReturnsCopy(t *testing.T) {
	x := sample()
	e, _ := x.Get("lab")
	e.Name = "changed"
	e.File.SizeBytes = 0

	again, _ := x.Get("lab")
	if again.Name != "lab.pdf" || again.File.SizeBytes != 100 {
		t.Fatalf("index was mutated through a returned entry: %+v", again)
	}
}

func TestAncestorsAndCycles(t *testing.T) {
	x := sample()

	path, err := x.Ancestors("r24")
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"f1", "f3"}, ids(path)); diff != "" {
		t.Errorf("ancestors (-want +got):\n%s", diff)
	}

	if !x.WouldCycle("f1", ptr("f3")) {
		t.Error("moving docs under its own subfolder should cycle")
	}
	if !x.WouldCycle("f1", ptr("f1")) {
		t.Error("moving a folder into itself should cycle")
	}
	if x.WouldCycle("f3", ptr("f2")) {
		t.Error("moving reports under images is fine")
	}
	if x.WouldCycle("f3", nil) {
		t.Error("moving to root never cycles")
	}

	// A corrupted chain is reported rather than looping forever.
	broken := NewIndex([]*model.Entry{folder("x", "x", ptr("y")), folder("y", "y", ptr("x"))})
	if _, err := broken.Ancestors("x"); err == nil {
		t.Error("expected loop error")
	}
}

func TestDescendantsPostOrder(t *testing.T) {
	x := sample()
	got := ids(x.Descendants("f1"))
	if diff := cmp.Diff([]string{"r24", "f3", "lab", "f1"}, got); diff != "" {
		t.Errorf("descendants (-want +got):\n%s", diff)
	}
	if got := x.Descendants("missing"); got != nil {
		t.Errorf("missing id: %v", got)
	}
}

func TestRemoveAndUsage(t *testing.T) {
	x := sample()
	if got := x.UsedBytes(); got != 1130 {
		t.Fatalf("UsedBytes = %d", got)
	}
	x.Remove("r24")
	if got := x.UsedBytes(); got != 130 {
		t.Fatalf("UsedBytes after remove = %d", got)
	}
	if got := x.Children(ptr("f3")); len(got) != 0 {
		t.Fatalf("reports still lists %v", ids(got))
	}
	if x.Len() != 6 {
		t.Fatalf("Len = %d", x.Len())
	}
}

func TestHasChildAndSearch(t *testing.T) {
	x := sample()
	if !x.HasChild(nil, model.KindFolder, "docs", "") {
		t.Error("docs exists at root")
	}
	if x.HasChild(nil, model.KindFolder, "docs", "f1") {
		t.Error("excluded entry should not count")
	}
	if x.HasChild(nil, model.KindFile, "docs", "") {
		t.Error("kind must match")
	}

	if diff := cmp.Diff([]string{"r24", "lab"}, ids(x.Search("PDF"))); diff != "" {
		t.Errorf("search (-want +got):\n%s", diff)
	}
}

func TestComposePreservesOrder(t *testing.T) {
	x := sample()
	v := Compose(x.Children(nil))
	if diff := cmp.Diff([]string{"f1", "f2"}, ids(v.Folders)); diff != "" {
		t.Errorf("folders (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"a", "b"}, ids(v.Files)); diff != "" {
		t.Errorf("files (-want +got):\n%s", diff)
	}
}

func TestNavigator(t *testing.T) {
	x := sample()
	var n Navigator
	if n.Current() != nil {
		t.Fatal("zero navigator should be at root")
	}

	docs, _ := x.Get("f1")
	reports, _ := x.Get("f3")
	lab, _ := x.Get("lab")

	if err := n.Enter(docs); err != nil {
		t.Fatal(err)
	}
	if err := n.Enter(lab); err != ErrNotFolder {
		t.Fatalf("entering a file: %v", err)
	}
	if err := n.Enter(reports); err != nil {
		t.Fatal(err)
	}
	if got := *n.Current(); got != "f3" {
		t.Fatalf("current = %s", got)
	}
	want := []Crumb{{ID: "f1", Name: "docs"}, {ID: "f3", Name: "reports"}}
	if diff := cmp.Diff(want, n.Trail()); diff != "" {
		t.Errorf("trail (-want +got):\n%s", diff)
	}

	n.Back()
	if got := *n.Current(); got != "f1" {
		t.Fatalf("after back = %s", got)
	}
	n.Root()
	if n.Current() != nil {
		t.Fatal("root should clear the trail")
	}
	n.Back()
	if n.Current() != nil {
		t.Fatal("back at root stays at root")
	}
}

func TestFolderTreeAndRender(t *testing.T) {
	x := sample()
	tree := x.FolderTree()
	if len(tree) != 2 || tree[0].Name != "docs" || len(tree[0].Children) != 1 || tree[0].Children[0].Name != "reports" {
		t.Fatalf("tree = %+v", tree)
	}

	out := x.Render("drive")
	for _, want := range []string{"drive", "docs/", "reports/", "2024.pdf (1.0 kB)", "a.txt (20 B)"} {
		if !strings.Contains(out, want) {
			t.Errorf("render missing %q:\n%s", want, out)
		}
	}
}

func TestFolderTreeStopsOnSelfParent(t *testing.T) {
	// A folder with an empty id under the root is its own child.
	x := NewIndex([]*model.Entry{
		folder("", "corrupt", nil),
		folder("x", "x", ptr("y")),
		folder("y", "y", ptr("x")),
	})

	tree := x.FolderTree()
	if len(tree) != 1 || tree[0].Name != "corrupt" || len(tree[0].Children) != 0 {
		t.Fatalf("tree = %+v", tree)
	}
	if out := x.Render("ada"); strings.Count(out, "corrupt/") != 1 {
		t.Errorf("render repeated the looped folder:\n%s", out)
	}
}
