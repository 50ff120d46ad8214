// Package auth resolves and applies authentication for a Request,
// honoring the inheritance chain Request -> Folder (nearest to root) ->
// Collection -> NO_AUTH.
package auth

import (
	"encoding/json"

	"github.com/sadopc/courier/internal/core/collection"
)

// EffectiveAuth is the tagged union returned by Resolve: the auth type
// that actually governs a request, and its opaque, unparsed config blob.
type EffectiveAuth struct {
	Type   collection.AuthType
	Config json.RawMessage
}

// RequestContext bundles what Resolve needs to walk the inheritance
// chain without re-querying a repository mid-resolution.
type RequestContext struct {
	Request    *collection.Request
	Folders    []*collection.Folder // nearest-to-root ancestor chain, as returned by collection.AncestorFolders
	Collection *collection.Collection
}

// Resolve implements spec.md's Auth Resolver algorithm: the Request's
// own auth wins unless it is absent or INHERIT_FROM_PARENT, in which
// case each ancestor Folder is checked nearest-to-root, then the
// Collection, finally falling back to NO_AUTH. The opaque AuthConfig
// blob is never re-parsed here; it is passed through verbatim.
func Resolve(rc RequestContext) EffectiveAuth {
	if rc.Request != nil && rc.Request.Auth != nil && rc.Request.Auth.Type != collection.AuthInherit {
		return EffectiveAuth{Type: rc.Request.Auth.Type, Config: rc.Request.Auth.Config}
	}
	for _, f := range rc.Folders {
		if f.AuthType != "" && f.AuthType != collection.AuthInherit {
			return EffectiveAuth{Type: f.AuthType, Config: f.AuthConfig}
		}
	}
	if rc.Collection != nil && rc.Collection.AuthType != "" && rc.Collection.AuthType != collection.AuthInherit {
		return EffectiveAuth{Type: rc.Collection.AuthType, Config: rc.Collection.AuthConfig}
	}
	return EffectiveAuth{Type: collection.AuthNone}
}
