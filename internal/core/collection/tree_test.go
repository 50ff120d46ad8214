package collection

import "testing"

func TestBuildTreeAndFlattenOrdersByFolderThenSortOrder(t *testing.T) {
	folders := []Folder{
		{ID: "root-a", CollectionID: "c1", ParentID: ""},
		{ID: "child-b", CollectionID: "c1", ParentID: "root-a"},
	}
	requests := []Request{
		{ID: "r1", FolderID: "root-a", SortOrder: 2},
		{ID: "r2", FolderID: "root-a", SortOrder: 1},
		{ID: "r3", FolderID: "child-b", SortOrder: 0},
	}

	tree, err := BuildTree(folders, requests)
	if err != nil {
		t.Fatalf("BuildTree: %v", err)
	}
	flat := Flatten(tree)
	if len(flat) != 3 {
		t.Fatalf("expected 3 requests, got %d", len(flat))
	}
	// root-a's requests come before descending into child-b, sorted by SortOrder.
	if flat[0].ID != "r2" || flat[1].ID != "r1" || flat[2].ID != "r3" {
		ids := []string{flat[0].ID, flat[1].ID, flat[2].ID}
		t.Fatalf("unexpected flatten order: %v", ids)
	}
}

func TestBuildTreeDetectsCycles(t *testing.T) {
	folders := []Folder{
		{ID: "a", ParentID: "b"},
		{ID: "b", ParentID: "a"},
	}
	if _, err := BuildTree(folders, nil); err != ErrCyclicFolderGraph {
		t.Fatalf("BuildTree() err = %v, want ErrCyclicFolderGraph", err)
	}
}

func TestAncestorFoldersWalksNearestToFarthest(t *testing.T) {
	byID := map[string]*Folder{
		"child":  {ID: "child", ParentID: "parent"},
		"parent": {ID: "parent", ParentID: "grandparent"},
		"grandparent": {ID: "grandparent", ParentID: ""},
	}
	chain, err := AncestorFolders(byID, "child")
	if err != nil {
		t.Fatalf("AncestorFolders: %v", err)
	}
	if len(chain) != 3 || chain[0].ID != "child" || chain[2].ID != "grandparent" {
		t.Fatalf("unexpected chain: %+v", chain)
	}
}

func TestAncestorFoldersDetectsCycle(t *testing.T) {
	byID := map[string]*Folder{
		"a": {ID: "a", ParentID: "b"},
		"b": {ID: "b", ParentID: "a"},
	}
	if _, err := AncestorFolders(byID, "a"); err != ErrCyclicFolderGraph {
		t.Fatalf("AncestorFolders() err = %v, want ErrCyclicFolderGraph", err)
	}
}
