package collection

import (
	"errors"
	"sort"
)

// ErrCyclicFolderGraph is returned when a Folder's ParentID chain revisits
// a folder it already walked through. spec.md §9 requires this be detected
// rather than looped on forever.
var ErrCyclicFolderGraph = errors.New("cyclic folder graph")

// Node is an in-memory assembly of a Folder (or the collection root) with
// its child folders and requests, used by the Auth Resolver's ancestor walk
// and the Collection Runner's flatten step.
type Node struct {
	Folder   *Folder // nil for the synthetic collection root
	Children []*Node
	Requests []*Request
}

// BuildTree assembles a Node tree from a flat folder list and a flat
// request list (as returned by the repository). Requests are attached to
// their FolderID; folders are attached to their ParentID, with ParentID ==
// "" attaching directly under the synthetic root.
func BuildTree(folders []Folder, requests []Request) (*Node, error) {
	nodes := make(map[string]*Node, len(folders))
	for i := range folders {
		nodes[folders[i].ID] = &Node{Folder: &folders[i]}
	}
	root := &Node{}

	for id, n := range nodes {
		parentID := n.Folder.ParentID
		if parentID == "" {
			root.Children = append(root.Children, n)
			continue
		}
		parent, ok := nodes[parentID]
		if !ok {
			// Dangling parent reference: treat as a root folder rather than
			// dropping it silently.
			root.Children = append(root.Children, n)
			continue
		}
		parent.Children = append(parent.Children, n)
		_ = id
	}

	for i := range requests {
		req := &requests[i]
		if req.FolderID == "" {
			root.Requests = append(root.Requests, req)
			continue
		}
		n, ok := nodes[req.FolderID]
		if !ok {
			continue
		}
		n.Requests = append(n.Requests, req)
	}

	if err := detectCycles(root, map[*Node]bool{}); err != nil {
		return nil, err
	}
	// Folders on a ParentID cycle never attach under root, so each folder
	// is also checked as a starting point.
	for _, n := range nodes {
		if err := detectCycles(n, map[*Node]bool{}); err != nil {
			return nil, err
		}
	}
	return root, nil
}

func detectCycles(n *Node, visiting map[*Node]bool) error {
	if visiting[n] {
		return ErrCyclicFolderGraph
	}
	visiting[n] = true
	for _, c := range n.Children {
		if err := detectCycles(c, visiting); err != nil {
			return err
		}
	}
	delete(visiting, n)
	return nil
}

// Flatten walks the tree depth-first (folders before descending into their
// children), emitting every Request in each folder sorted by SortOrder
// (ties broken by original/creation order, which is stable since Go's
// sort.SliceStable is used) before moving to child folders — matching
// spec.md §4.I step 1 exactly.
func Flatten(root *Node) []*Request {
	var out []*Request
	var walk func(n *Node)
	walk = func(n *Node) {
		reqs := make([]*Request, len(n.Requests))
		copy(reqs, n.Requests)
		sort.SliceStable(reqs, func(i, j int) bool {
			return reqs[i].SortOrder < reqs[j].SortOrder
		})
		out = append(out, reqs...)
		for _, c := range n.Children {
			walk(c)
		}
	}
	walk(root)
	return out
}

// AncestorFolders returns a Request's Folder and every ancestor Folder up
// to (but not including) the Collection, ordered nearest-to-farthest
// (folder first, root-most ancestor last). It detects cycles in the
// ParentID chain rather than looping forever.
func AncestorFolders(folderByID map[string]*Folder, startFolderID string) ([]*Folder, error) {
	var chain []*Folder
	seen := map[string]bool{}
	id := startFolderID
	for id != "" {
		if seen[id] {
			return nil, ErrCyclicFolderGraph
		}
		seen[id] = true
		f, ok := folderByID[id]
		if !ok {
			break
		}
		chain = append(chain, f)
		id = f.ParentID
	}
	return chain, nil
}
