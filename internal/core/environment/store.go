package environment

// scope ranks lowest (0) to highest (3) precedence.
type scope int

const (
	scopeGlobal scope = iota
	scopeCollection
	scopeEnvironment
	scopeLocal
)

type entry struct {
	value     string
	isSecret  bool
	isEnabled bool
}

// Store is an immutable-for-the-duration-of-one-execution snapshot of the
// four variable scopes, plus a mutable Local overlay. A fresh Store is
// built per proxy execution (spec.md §9's "Shared mutable Variable Store"
// design note). pm.variables.set writes Local; pm.environment.set and
// pm.globals.set write in-memory overlays of the Environment and Global
// scopes. Nothing written to a Store is persisted.
type Store struct {
	global      map[string]entry
	collection  map[string]entry
	environment map[string]entry
	local       map[string]entry
}

// NewStore builds a Store snapshot from the three persistent scopes.
// Local starts empty; it is populated by SetLocal (pm.variables.set) or by
// the Collection Runner seeding a data-file row.
func NewStore(globals []GlobalVariable, collectionVars map[string]string, env []Variable) *Store {
	s := &Store{
		global:      map[string]entry{},
		collection:  map[string]entry{},
		environment: map[string]entry{},
		local:       map[string]entry{},
	}
	for _, g := range globals {
		s.global[g.Key] = entry{value: g.Value, isSecret: g.IsSecret, isEnabled: g.IsEnabled}
	}
	for k, v := range collectionVars {
		s.collection[k] = entry{value: v, isEnabled: true}
	}
	for _, v := range env {
		s.environment[v.Key] = entry{value: v.Value, isSecret: v.IsSecret, isEnabled: v.IsEnabled}
	}
	return s
}

// scopes in ascending precedence, matching spec.md §4.A: Global <
// Collection < Environment < Local.
func (s *Store) scopes() [4]map[string]entry {
	return [4]map[string]entry{s.global, s.collection, s.environment, s.local}
}

// Resolve returns the value of the highest-precedence enabled entry for
// name, and whether any matching entry (enabled or not, in any scope)
// was flagged as secret. found is false only when no scope defines name
// at all.
func (s *Store) Resolve(name string) (value string, isSecret bool, found bool) {
	scopes := s.scopes()
	winnerSet := false
	for i := len(scopes) - 1; i >= 0; i-- {
		e, ok := scopes[i][name]
		if !ok {
			continue
		}
		found = true
		if e.isSecret {
			isSecret = true
		}
		if e.isEnabled && !winnerSet {
			value = e.value
			winnerSet = true
		}
	}
	return value, isSecret, found
}

// SetLocal sets name in the Local scope only; it never touches Global,
// Collection, or Environment. Used by pm.variables.set and by the
// Collection Runner (data-file rows, response extraction);
// pm.globals.set goes through SetGlobalOverlay instead.
func (s *Store) SetLocal(name, value string) {
	s.local[name] = entry{value: value, isEnabled: true}
}

// UnsetLocal removes name from the Local scope.
func (s *Store) UnsetLocal(name string) {
	delete(s.local, name)
}

// SetEnvironmentOverlay mutates the in-memory Environment scope for the
// remainder of this execution (pm.environment.set). It does not persist
// to the repository; callers that want durable writes must do so
// explicitly after the script finishes.
func (s *Store) SetEnvironmentOverlay(name, value string) {
	s.environment[name] = entry{value: value, isEnabled: true}
}

// UnsetEnvironmentOverlay removes name from the Environment scope.
func (s *Store) UnsetEnvironmentOverlay(name string) {
	delete(s.environment, name)
}

// GetEnvironmentScope returns name's raw value from the Environment
// scope only, not resolved across the other three (pm.environment.get).
func (s *Store) GetEnvironmentScope(name string) (string, bool) {
	e, ok := s.environment[name]
	return e.value, ok
}

// SetGlobalOverlay mutates the in-memory Global scope for the remainder
// of this execution (pm.globals.set). Per spec.md §4.E this has
// local-only effect: it never writes through to the repository.
func (s *Store) SetGlobalOverlay(name, value string) {
	s.global[name] = entry{value: value, isEnabled: true}
}

// UnsetGlobalOverlay removes name from the Global scope.
func (s *Store) UnsetGlobalOverlay(name string) {
	delete(s.global, name)
}

// GetGlobalScope returns name's raw value from the Global scope only
// (pm.globals.get).
func (s *Store) GetGlobalScope(name string) (string, bool) {
	e, ok := s.global[name]
	return e.value, ok
}

// List returns one entry per variable defined in any scope, carrying its
// highest-precedence value and its secret flag (see Masked); the order
// of the entries is not defined. Used by diagnostic/list endpoints —
// never by substitution.
func (s *Store) List() []ListedVariable {
	scopeNames := [4]string{"global", "collection", "environment", "local"}
	keys := map[string]bool{}
	for _, m := range s.scopes() {
		for k := range m {
			keys[k] = true
		}
	}
	out := make([]ListedVariable, 0, len(keys))
	for k := range keys {
		value, isSecret, _ := s.Resolve(k)
		winningScope := scopeNames[0]
		scopes := s.scopes()
		for i := len(scopes) - 1; i >= 0; i-- {
			if e, ok := scopes[i][k]; ok && e.isEnabled {
				winningScope = scopeNames[i]
				break
			}
		}
		out = append(out, ListedVariable{Key: k, Value: value, IsSecret: isSecret, WinningScope: winningScope})
	}
	return out
}

// ListedVariable is the masked, scope-tagged view returned by List.
type ListedVariable struct {
	Key          string
	Value        string
	IsSecret     bool
	WinningScope string
}

// Masked returns "***" for secret entries, the real value otherwise.
func (lv ListedVariable) Masked() string {
	if lv.IsSecret {
		return "***"
	}
	return lv.Value
}
