package environment

import "testing"

func TestResolvePrecedenceGlobalCollectionEnvironmentLocal(t *testing.T) {
	s := NewStore(
		[]GlobalVariable{{Key: "x", Value: "global", IsEnabled: true}},
		map[string]string{"x": "collection"},
		[]Variable{{Key: "x", Value: "environment", IsEnabled: true}},
	)
	if v, _, _ := s.Resolve("x"); v != "environment" {
		t.Fatalf("Resolve(x) = %q, want environment (before local write)", v)
	}
	s.SetLocal("x", "local")
	if v, _, _ := s.Resolve("x"); v != "local" {
		t.Fatalf("Resolve(x) = %q, want local", v)
	}
}

func TestResolveSkipsDisabledEntriesFallingThrough(t *testing.T) {
	s := NewStore(
		[]GlobalVariable{{Key: "x", Value: "global", IsEnabled: true}},
		nil,
		[]Variable{{Key: "x", Value: "environment", IsEnabled: false}},
	)
	v, _, found := s.Resolve("x")
	if !found || v != "global" {
		t.Fatalf("Resolve(x) = (%q, %v), want (global, true)", v, found)
	}
}

func TestResolveUnknownNameReturnsNotFound(t *testing.T) {
	s := NewStore(nil, nil, nil)
	v, secret, found := s.Resolve("nope")
	if found || v != "" || secret {
		t.Fatalf("Resolve(nope) = (%q, %v, %v), want (\"\", false, false)", v, secret, found)
	}
}

func TestResolveSecretnessIsORAcrossScopes(t *testing.T) {
	s := NewStore(
		[]GlobalVariable{{Key: "token", Value: "g", IsEnabled: true, IsSecret: true}},
		nil,
		[]Variable{{Key: "token", Value: "e", IsEnabled: true, IsSecret: false}},
	)
	_, secret, _ := s.Resolve("token")
	if !secret {
		t.Fatal("expected isSecret=true via OR across scopes even though the winning entry is not secret")
	}
}

func TestSetLocalDoesNotTouchPersistentScopes(t *testing.T) {
	s := NewStore(nil, nil, nil)
	s.SetLocal("a", "1")
	if len(s.global) != 0 || len(s.collection) != 0 || len(s.environment) != 0 {
		t.Fatal("SetLocal must only write to the local scope")
	}
}

func TestListMasksSecretsAndDedupsByWinningScope(t *testing.T) {
	s := NewStore(
		[]GlobalVariable{{Key: "token", Value: "g", IsEnabled: true, IsSecret: true}},
		nil,
		[]Variable{{Key: "token", Value: "e", IsEnabled: true, IsSecret: false}},
	)
	list := s.List()
	if len(list) != 1 {
		t.Fatalf("expected one deduped entry, got %d", len(list))
	}
	if list[0].Masked() != "***" {
		t.Fatalf("Masked() = %q, want ***", list[0].Masked())
	}
}
