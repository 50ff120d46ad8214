package auth

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/sadopc/courier/internal/core/collection"
	"github.com/sadopc/courier/internal/core/environment"
)

func mustConfig(t *testing.T, v any) json.RawMessage {
	t.Helper()
	b, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	return b
}

func TestApplyBearerExpandsToken(t *testing.T) {
	store := environment.NewStore(nil, nil, []environment.Variable{{Key: "token", Value: "xyz", IsEnabled: true}})
	req, _ := http.NewRequest(http.MethodGet, "http://a.test", nil)
	eff := EffectiveAuth{Type: collection.AuthBearer, Config: mustConfig(t, BearerConfig{Token: "{{token}}"})}

	if _, err := Apply(req, eff, store); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if got := req.Header.Get("Authorization"); got != "Bearer xyz" {
		t.Fatalf("Authorization = %q, want Bearer xyz", got)
	}
}

func TestApplyBasicEncodesCredentials(t *testing.T) {
	store := environment.NewStore(nil, nil, nil)
	req, _ := http.NewRequest(http.MethodGet, "http://a.test", nil)
	eff := EffectiveAuth{Type: collection.AuthBasic, Config: mustConfig(t, BasicConfig{Username: "alice", Password: "secret"})}

	if _, err := Apply(req, eff, store); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if got := req.Header.Get("Authorization"); got != "Basic YWxpY2U6c2VjcmV0" {
		t.Fatalf("Authorization = %q", got)
	}
}

func TestApplyAPIKeyToQueryReturnsValues(t *testing.T) {
	store := environment.NewStore(nil, nil, nil)
	req, _ := http.NewRequest(http.MethodGet, "http://a.test", nil)
	eff := EffectiveAuth{Type: collection.AuthAPIKey, Config: mustConfig(t, APIKeyConfig{Header: "api_key", Value: "abc", AddTo: "query"})}

	q, err := Apply(req, eff, store)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if q.Get("api_key") != "abc" {
		t.Fatalf("query api_key = %q, want abc", q.Get("api_key"))
	}
	if req.Header.Get("api_key") != "" {
		t.Fatal("API key routed to query must not also set a header")
	}
}

func TestApplyDigestAndAWSSigV4AreNoOps(t *testing.T) {
	store := environment.NewStore(nil, nil, nil)
	req, _ := http.NewRequest(http.MethodGet, "http://a.test", nil)
	for _, typ := range []collection.AuthType{collection.AuthDigest, collection.AuthAWSSigV4} {
		q, err := Apply(req, EffectiveAuth{Type: typ}, store)
		if err != nil || q != nil {
			t.Fatalf("Apply(%v) = (%v, %v), want (nil, nil)", typ, q, err)
		}
	}
}

func TestApplyJWTSignsPayload(t *testing.T) {
	store := environment.NewStore(nil, nil, nil)
	req, _ := http.NewRequest(http.MethodGet, "http://a.test", nil)
	eff := EffectiveAuth{Type: collection.AuthJWT, Config: mustConfig(t, JWTConfig{
		Payload:   json.RawMessage(`{"sub":"1"}`),
		Secret:    "hunter2",
		Algorithm: "HS256",
	})}
	if _, err := Apply(req, eff, store); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if got := req.Header.Get("Authorization"); len(got) < len("Bearer ") || got[:7] != "Bearer " {
		t.Fatalf("Authorization = %q, want Bearer <jwt>", got)
	}
}
