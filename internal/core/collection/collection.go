// Package collection defines the team-owned Collection/Folder/Request tree:
// the stored shape of a reusable HTTP request library.
package collection

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Method is one of the HTTP verbs a Request may carry.
type Method string

const (
	GET     Method = "GET"
	POST    Method = "POST"
	PUT     Method = "PUT"
	PATCH   Method = "PATCH"
	DELETE  Method = "DELETE"
	HEAD    Method = "HEAD"
	OPTIONS Method = "OPTIONS"
)

// BodyType discriminates the shape of a Request's Body.
type BodyType string

const (
	BodyNone       BodyType = "NONE"
	BodyFormData   BodyType = "FORM_DATA"
	BodyURLEncoded BodyType = "X_WWW_FORM_URLENCODED"
	BodyRawJSON    BodyType = "RAW_JSON"
	BodyRawXML     BodyType = "RAW_XML"
	BodyRawHTML    BodyType = "RAW_HTML"
	BodyRawText    BodyType = "RAW_TEXT"
	BodyRawYAML    BodyType = "RAW_YAML"
	BodyBinary     BodyType = "BINARY"
	BodyGraphQL    BodyType = "GRAPHQL"
)

// AuthType enumerates every auth strategy the Applier understands.
// INHERIT_FROM_PARENT is only valid on a Folder or Request; a Collection's
// AuthType is never INHERIT (there's nothing above it but NoAuth).
type AuthType string

const (
	AuthInherit  AuthType = "INHERIT_FROM_PARENT"
	AuthNone     AuthType = "NO_AUTH"
	AuthAPIKey   AuthType = "API_KEY"
	AuthBearer   AuthType = "BEARER_TOKEN"
	AuthBasic    AuthType = "BASIC_AUTH"
	AuthJWT      AuthType = "JWT_BEARER"
	AuthOAuth2   AuthType = "OAUTH2"
	AuthDigest   AuthType = "DIGEST"    // supplemental, see SPEC_FULL.md
	AuthAWSSigV4 AuthType = "AWS_SIGV4" // supplemental, see SPEC_FULL.md
)

// ScriptType is one of the two slots a Request/Folder/Collection may carry.
type ScriptType string

const (
	PreRequest   ScriptType = "PRE_REQUEST"
	PostResponse ScriptType = "POST_RESPONSE"
)

// Collection is owned by a team. Unique (TeamID, Name).
type Collection struct {
	ID         string
	TeamID     string
	Name       string
	PreScript  string
	PostScript string
	AuthType   AuthType        // "" or NO_AUTH means no auth; never INHERIT
	AuthConfig json.RawMessage // opaque, passed through verbatim by the resolver
	Variables  map[string]string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Folder belongs to a Collection and may nest under another Folder.
type Folder struct {
	ID           string
	CollectionID string
	ParentID     string // "" means a root folder
	Name         string
	PreScript    string
	PostScript   string
	AuthType     AuthType
	AuthConfig   json.RawMessage
	CreatedAt    time.Time
}

// KVPair is a header, query param, or form field.
type KVPair struct {
	Key     string
	Value   string
	Enabled bool
}

// Body holds at most one payload discriminated by Type.
type Body struct {
	Type             BodyType
	Raw              string // RAW_JSON/XML/HTML/TEXT/YAML content
	FormData         []KVPair
	GraphQLQuery     string
	GraphQLVariables string
	BinaryFileName   string
}

// RequestAuth is a Request's own auth slot, at most one per Request.
type RequestAuth struct {
	Type   AuthType
	Config json.RawMessage
}

// Request belongs to a Folder.
type Request struct {
	ID        string
	FolderID  string
	Name      string
	Method    Method
	URL       string
	SortOrder int
	Headers   []KVPair
	Params    []KVPair
	Body      *Body
	Auth      *RequestAuth
	Scripts   map[ScriptType]string // 0..2 entries, unique key per ScriptType
	// Extract holds supplemental post-response variable extractions:
	// variable name -> a JSONPath-lite expression ("$.token" or
	// "items[0].id") evaluated against the response body by the
	// Collection Runner and written into Local scope, independent of
	// and in addition to any pm.test assertions a POST_RESPONSE script
	// runs. See SPEC_FULL.md's Collection Runner section.
	Extract   map[string]string
	CreatedAt time.Time
}

// NewRequest creates a new request with sensible defaults and a fresh ID.
func NewRequest(folderID, name string, method Method, url string) *Request {
	return &Request{
		ID:        uuid.New().String(),
		FolderID:  folderID,
		Name:      name,
		Method:    method,
		URL:       url,
		Scripts:   map[ScriptType]string{},
		CreatedAt: time.Now(),
	}
}

// EnabledHeaders returns only the headers whose Enabled flag is set.
func (r *Request) EnabledHeaders() []KVPair {
	return filterEnabled(r.Headers)
}

// EnabledParams returns only the query params whose Enabled flag is set.
func (r *Request) EnabledParams() []KVPair {
	return filterEnabled(r.Params)
}

func filterEnabled(pairs []KVPair) []KVPair {
	out := make([]KVPair, 0, len(pairs))
	for _, p := range pairs {
		if p.Enabled && p.Key != "" {
			out = append(out, p)
		}
	}
	return out
}
