package auth

import (
	"testing"

	"github.com/sadopc/courier/internal/core/collection"
)

func TestResolveRequestOwnAuthWins(t *testing.T) {
	rc := RequestContext{
		Request:    &collection.Request{Auth: &collection.RequestAuth{Type: collection.AuthBearer}},
		Folders:    []*collection.Folder{{AuthType: collection.AuthBasic}},
		Collection: &collection.Collection{AuthType: collection.AuthAPIKey},
	}
	eff := Resolve(rc)
	if eff.Type != collection.AuthBearer {
		t.Fatalf("Resolve() = %v, want BEARER_TOKEN", eff.Type)
	}
}

func TestResolveFallsThroughToNearestFolder(t *testing.T) {
	rc := RequestContext{
		Request: &collection.Request{Auth: &collection.RequestAuth{Type: collection.AuthInherit}},
		Folders: []*collection.Folder{
			{AuthType: collection.AuthInherit},
			{AuthType: collection.AuthBasic},
		},
		Collection: &collection.Collection{AuthType: collection.AuthAPIKey},
	}
	eff := Resolve(rc)
	if eff.Type != collection.AuthBasic {
		t.Fatalf("Resolve() = %v, want BASIC_AUTH (nearest non-inherit folder)", eff.Type)
	}
}

func TestResolveFallsThroughToCollection(t *testing.T) {
	rc := RequestContext{
		Request:    &collection.Request{Auth: nil},
		Folders:    []*collection.Folder{{AuthType: collection.AuthInherit}},
		Collection: &collection.Collection{AuthType: collection.AuthAPIKey},
	}
	eff := Resolve(rc)
	if eff.Type != collection.AuthAPIKey {
		t.Fatalf("Resolve() = %v, want API_KEY", eff.Type)
	}
}

func TestResolveDefaultsToNoAuth(t *testing.T) {
	rc := RequestContext{Request: &collection.Request{}}
	eff := Resolve(rc)
	if eff.Type != collection.AuthNone {
		t.Fatalf("Resolve() = %v, want NO_AUTH", eff.Type)
	}
}
