package template

import (
	"reflect"
	"testing"

	"github.com/sadopc/courier/internal/core/collection"
	"github.com/sadopc/courier/internal/core/environment"
)

func newTestStore() *environment.Store {
	return environment.NewStore(
		[]environment.GlobalVariable{{Key: "baseUrl", Value: "http://a.test", IsEnabled: true}},
		nil,
		[]environment.Variable{
			{Key: "token", Value: "xyz", IsSecret: true, IsEnabled: true},
		},
	)
}

func TestExpandSubstitutesAcrossScopes(t *testing.T) {
	s := newTestStore()
	s.SetLocal("id", "42")
	out, unresolved := Expand("{{baseUrl}}/users/{{id}}?t={{token}}", s)
	if out != "http://a.test/users/42?t=xyz" {
		t.Fatalf("Expand() = %q", out)
	}
	if len(unresolved) != 0 {
		t.Fatalf("unresolved = %v, want none", unresolved)
	}
}

func TestExpandIsNotRecursive(t *testing.T) {
	s := environment.NewStore(nil, nil, []environment.Variable{
		{Key: "outer", Value: "{{inner}}", IsEnabled: true},
		{Key: "inner", Value: "leaked", IsEnabled: true},
	})
	out, _ := Expand("{{outer}}", s)
	if out != "{{inner}}" {
		t.Fatalf("Expand() = %q, want literal {{inner}} (no second pass)", out)
	}
}

func TestExpandReportsUnresolvedOnce(t *testing.T) {
	s := environment.NewStore(nil, nil, nil)
	out, unresolved := Expand("{{missing}}-{{missing}}", s)
	if out != "-" {
		t.Fatalf("Expand() = %q, want empty substitutions", out)
	}
	if !reflect.DeepEqual(unresolved, []string{"missing"}) {
		t.Fatalf("unresolved = %v, want [missing] deduped", unresolved)
	}
}

func TestExpandKVPairsSkipsDisabled(t *testing.T) {
	s := newTestStore()
	pairs := []collection.KVPair{
		{Key: "Authorization", Value: "Bearer {{token}}", Enabled: true},
		{Key: "X-Disabled", Value: "{{baseUrl}}", Enabled: false},
	}
	out, _ := ExpandKVPairs(pairs, s)
	if out[0].Value != "Bearer xyz" {
		t.Fatalf("enabled pair expanded to %q", out[0].Value)
	}
	if out[1].Value != "{{baseUrl}}" {
		t.Fatalf("disabled pair must not be expanded, got %q", out[1].Value)
	}
}
