// Package memory implements every repository interface with
// mutex-guarded maps. It is the default backing store for tests and
// single-process deployments.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/sadopc/courier/internal/core/collection"
	"github.com/sadopc/courier/internal/core/environment"
	"github.com/sadopc/courier/internal/core/history"
	"github.com/sadopc/courier/internal/core/run"
	"github.com/sadopc/courier/internal/repository"
)

// data is the shared, mutex-guarded state behind every per-interface
// accessor below. A single Go type cannot implement two interfaces that
// each declare a same-named, differently-typed Save method, so each
// repository.* interface gets its own accessor type sharing this data.
type data struct {
	mu sync.Mutex

	collections map[string]collection.Collection
	folders     map[string]collection.Folder
	requests    map[string]collection.Request

	environments  map[string]environment.Environment
	globals       map[string]environment.GlobalVariable // keyed "teamID\x00key"
	activateLocks map[string]*sync.Mutex                // per team-id, spec.md §5

	historyEntries []history.Entry
	nextHistoryID  int64

	runs       map[string]run.Result
	iterations map[string][]run.Iteration
}

func newData() *data {
	return &data{
		collections:   map[string]collection.Collection{},
		folders:       map[string]collection.Folder{},
		requests:      map[string]collection.Request{},
		environments:  map[string]environment.Environment{},
		globals:       map[string]environment.GlobalVariable{},
		activateLocks: map[string]*sync.Mutex{},
		runs:          map[string]run.Result{},
		iterations:    map[string][]run.Iteration{},
	}
}

// Store bundles one accessor per repository interface, all sharing the
// same underlying maps — mirroring how a single sqlite/postgres
// connection backs every interface in the other two implementations.
type Store struct {
	Collections     *CollectionStore
	Folders         *FolderStore
	Requests        *RequestStore
	Environments    *EnvironmentStore
	GlobalVariables *GlobalVariableStore
	History         *HistoryStore
	Runs            *RunStore
}

// New creates an empty Store.
func New() *Store {
	d := newData()
	return &Store{
		Collections:     &CollectionStore{d},
		Folders:         &FolderStore{d},
		Requests:        &RequestStore{d},
		Environments:    &EnvironmentStore{d},
		GlobalVariables: &GlobalVariableStore{d},
		History:         &HistoryStore{d},
		Runs:            &RunStore{d},
	}
}

// CollectionStore implements repository.Collections.
type CollectionStore struct{ d *data }

var _ repository.Collections = (*CollectionStore)(nil)

func (s *CollectionStore) Get(ctx context.Context, id string) (*collection.Collection, error) {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()
	c, ok := s.d.collections[id]
	if !ok {
		return nil, fmt.Errorf("collection %q not found", id)
	}
	return &c, nil
}

func (s *CollectionStore) ListByTeam(ctx context.Context, teamID string) ([]collection.Collection, error) {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()
	var out []collection.Collection
	for _, c := range s.d.collections {
		if c.TeamID == teamID {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *CollectionStore) Save(ctx context.Context, c *collection.Collection) error {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()
	if c.ID == "" {
		return fmt.Errorf("collection must have an ID")
	}
	c.UpdatedAt = time.Now()
	if _, exists := s.d.collections[c.ID]; !exists {
		c.CreatedAt = c.UpdatedAt
	}
	s.d.collections[c.ID] = *c
	return nil
}

func (s *CollectionStore) Delete(ctx context.Context, id string) error {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()
	delete(s.d.collections, id)
	for fid, f := range s.d.folders {
		if f.CollectionID == id {
			delete(s.d.folders, fid)
		}
	}
	for rid, r := range s.d.requests {
		if _, ok := s.d.folders[r.FolderID]; !ok {
			delete(s.d.requests, rid)
		}
	}
	return nil
}

// FolderStore implements repository.Folders.
type FolderStore struct{ d *data }

var _ repository.Folders = (*FolderStore)(nil)

func (s *FolderStore) ListByCollection(ctx context.Context, collectionID string) ([]collection.Folder, error) {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()
	var out []collection.Folder
	for _, f := range s.d.folders {
		if f.CollectionID == collectionID {
			out = append(out, f)
		}
	}
	return out, nil
}

func (s *FolderStore) FindRootFolders(ctx context.Context, collectionID string) ([]collection.Folder, error) {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()
	var out []collection.Folder
	for _, f := range s.d.folders {
		if f.CollectionID == collectionID && f.ParentID == "" {
			out = append(out, f)
		}
	}
	return out, nil
}

func (s *FolderStore) Save(ctx context.Context, f *collection.Folder) error {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()
	if f.ID == "" {
		return fmt.Errorf("folder must have an ID")
	}
	if f.CreatedAt.IsZero() {
		f.CreatedAt = time.Now()
	}
	s.d.folders[f.ID] = *f
	return nil
}

func (s *FolderStore) Delete(ctx context.Context, id string) error {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()
	doomed := map[string]bool{id: true}
	for changed := true; changed; {
		changed = false
		for fid, f := range s.d.folders {
			if !doomed[fid] && doomed[f.ParentID] {
				doomed[fid] = true
				changed = true
			}
		}
	}
	for fid := range doomed {
		delete(s.d.folders, fid)
	}
	for rid, r := range s.d.requests {
		if doomed[r.FolderID] {
			delete(s.d.requests, rid)
		}
	}
	return nil
}

// RequestStore implements repository.Requests.
type RequestStore struct{ d *data }

var _ repository.Requests = (*RequestStore)(nil)

func (s *RequestStore) ListByFolder(ctx context.Context, folderID string, orderBySort bool) ([]collection.Request, error) {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()
	var out []collection.Request
	for _, r := range s.d.requests {
		if r.FolderID == folderID {
			out = append(out, r)
		}
	}
	if orderBySort {
		sort.SliceStable(out, func(i, j int) bool { return out[i].SortOrder < out[j].SortOrder })
	}
	return out, nil
}

func (s *RequestStore) Get(ctx context.Context, id string) (*collection.Request, error) {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()
	r, ok := s.d.requests[id]
	if !ok {
		return nil, fmt.Errorf("request %q not found", id)
	}
	return &r, nil
}

func (s *RequestStore) Save(ctx context.Context, r *collection.Request) error {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()
	if r.ID == "" {
		return fmt.Errorf("request must have an ID")
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now()
	}
	s.d.requests[r.ID] = *r
	return nil
}

func (s *RequestStore) Delete(ctx context.Context, id string) error {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()
	delete(s.d.requests, id)
	return nil
}

// EnvironmentStore implements repository.Environments.
type EnvironmentStore struct{ d *data }

var _ repository.Environments = (*EnvironmentStore)(nil)

func (s *EnvironmentStore) ListByTeam(ctx context.Context, teamID string) ([]environment.Environment, error) {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()
	var out []environment.Environment
	for _, e := range s.d.environments {
		if e.TeamID == teamID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (s *EnvironmentStore) FindActive(ctx context.Context, teamID string) (*environment.Environment, error) {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()
	for _, e := range s.d.environments {
		if e.TeamID == teamID && e.IsActive {
			return &e, nil
		}
	}
	return nil, nil
}

func (s *EnvironmentStore) Save(ctx context.Context, e *environment.Environment) error {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()
	if e.ID == "" {
		return fmt.Errorf("environment must have an ID")
	}
	e.UpdatedAt = time.Now()
	if _, exists := s.d.environments[e.ID]; !exists {
		e.CreatedAt = e.UpdatedAt
	}
	s.d.environments[e.ID] = *e
	return nil
}

// Activate deactivates teamID's previously active Environment (if any)
// and activates envID, holding a per-team lock so the pair is atomic
// (spec.md invariant 3).
func (s *EnvironmentStore) Activate(ctx context.Context, teamID, envID string) error {
	lock := s.teamLock(teamID)
	lock.Lock()
	defer lock.Unlock()

	s.d.mu.Lock()
	defer s.d.mu.Unlock()
	target, ok := s.d.environments[envID]
	if !ok || target.TeamID != teamID {
		return fmt.Errorf("environment %q not found for team %q", envID, teamID)
	}
	for id, e := range s.d.environments {
		if e.TeamID == teamID && e.IsActive && id != envID {
			e.IsActive = false
			s.d.environments[id] = e
		}
	}
	target.IsActive = true
	s.d.environments[envID] = target
	return nil
}

func (s *EnvironmentStore) teamLock(teamID string) *sync.Mutex {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()
	if l, ok := s.d.activateLocks[teamID]; ok {
		return l
	}
	l := &sync.Mutex{}
	s.d.activateLocks[teamID] = l
	return l
}

// GlobalVariableStore implements repository.GlobalVariables.
type GlobalVariableStore struct{ d *data }

var _ repository.GlobalVariables = (*GlobalVariableStore)(nil)

func globalKey(teamID, key string) string { return teamID + "\x00" + key }

func (s *GlobalVariableStore) ListByTeam(ctx context.Context, teamID string) ([]environment.GlobalVariable, error) {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()
	var out []environment.GlobalVariable
	for _, g := range s.d.globals {
		if g.TeamID == teamID {
			out = append(out, g)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

func (s *GlobalVariableStore) Upsert(ctx context.Context, teamID, key, value string, isSecret, isEnabled bool) error {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()
	s.d.globals[globalKey(teamID, key)] = environment.GlobalVariable{
		TeamID: teamID, Key: key, Value: value, IsSecret: isSecret, IsEnabled: isEnabled,
	}
	return nil
}

func (s *GlobalVariableStore) Delete(ctx context.Context, teamID, key string) error {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()
	delete(s.d.globals, globalKey(teamID, key))
	return nil
}

// HistoryStore implements repository.History.
type HistoryStore struct{ d *data }

var _ repository.History = (*HistoryStore)(nil)

// Append deduplicates on e.HistoryID the same way repository/sqlite
// does: a retried Append with a HistoryID already stored returns that
// row's id without appending a second entry. An empty HistoryID always
// inserts, matching the NULLs-don't-conflict behavior of the sqlite
// unique index.
func (s *HistoryStore) Append(ctx context.Context, e history.Entry) (int64, error) {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()
	if e.HistoryID != "" {
		for _, existing := range s.d.historyEntries {
			if existing.HistoryID == e.HistoryID {
				return existing.ID, nil
			}
		}
	}
	s.d.nextHistoryID++
	e.ID = s.d.nextHistoryID
	s.d.historyEntries = append(s.d.historyEntries, e)
	return e.ID, nil
}

func (s *HistoryStore) ListByTeam(ctx context.Context, teamID string, filter repository.HistoryFilter, limit, offset int) ([]history.Entry, error) {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()
	var matched []history.Entry
	for i := len(s.d.historyEntries) - 1; i >= 0; i-- {
		e := s.d.historyEntries[i]
		if e.TeamID != teamID {
			continue
		}
		if filter.Method != "" && !strings.EqualFold(e.Method, filter.Method) {
			continue
		}
		if filter.URLLike != "" && !strings.Contains(e.URL, filter.URLLike) {
			continue
		}
		matched = append(matched, e)
	}
	if offset >= len(matched) {
		return nil, nil
	}
	end := offset + limit
	if limit <= 0 || end > len(matched) {
		end = len(matched)
	}
	return matched[offset:end], nil
}

func (s *HistoryStore) PruneOlderThan(ctx context.Context, teamID string, cutoff time.Time) error {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()
	var kept []history.Entry
	for _, e := range s.d.historyEntries {
		if e.TeamID == teamID && e.CreatedAt.Before(cutoff) {
			continue
		}
		kept = append(kept, e)
	}
	s.d.historyEntries = kept
	return nil
}

// RunStore implements repository.Runs.
type RunStore struct{ d *data }

var _ repository.Runs = (*RunStore)(nil)

func (s *RunStore) Create(ctx context.Context, r *run.Result) error {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()
	if r.ID == "" {
		return fmt.Errorf("run must have an ID")
	}
	r.CreatedAt = time.Now()
	s.d.runs[r.ID] = *r
	return nil
}

func (s *RunStore) Update(ctx context.Context, r *run.Result) error {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()
	if _, ok := s.d.runs[r.ID]; !ok {
		return fmt.Errorf("run %q not found", r.ID)
	}
	s.d.runs[r.ID] = *r
	return nil
}

func (s *RunStore) AppendIteration(ctx context.Context, runID string, it run.Iteration) error {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()
	s.d.iterations[runID] = append(s.d.iterations[runID], it)
	return nil
}

func (s *RunStore) Get(ctx context.Context, id string) (*run.Result, error) {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()
	r, ok := s.d.runs[id]
	if !ok {
		return nil, fmt.Errorf("run %q not found", id)
	}
	return &r, nil
}

func (s *RunStore) ListByTeam(ctx context.Context, teamID string) ([]run.Result, error) {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()
	var out []run.Result
	for _, r := range s.d.runs {
		if r.TeamID == teamID {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *RunStore) ListRunning(ctx context.Context, olderThan time.Time) ([]run.Result, error) {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()
	var out []run.Result
	for _, r := range s.d.runs {
		if r.Status == run.Running && r.StartedAt.Before(olderThan) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *RunStore) ListIterations(ctx context.Context, runID string, limit, offset int) ([]run.Iteration, error) {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()
	all := s.d.iterations[runID]
	if offset >= len(all) {
		return nil, nil
	}
	end := offset + limit
	if limit <= 0 || end > len(all) {
		end = len(all)
	}
	out := make([]run.Iteration, end-offset)
	copy(out, all[offset:end])
	return out, nil
}
