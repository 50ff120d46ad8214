package server

import (
	"crypto/tls"
	"encoding/json"

	"github.com/sadopc/courier/internal/auth"
	"github.com/sadopc/courier/internal/core/collection"
	corehistory "github.com/sadopc/courier/internal/core/history"
	coretls "github.com/sadopc/courier/internal/core/tls"
	"github.com/sadopc/courier/internal/proxy"
)

// kvPairDTO is the wire shape of a header/param/form-data entry.
type kvPairDTO struct {
	Key     string `json:"key"`
	Value   string `json:"value"`
	Enabled bool   `json:"enabled"`
}

func (d kvPairDTO) toCore() collection.KVPair {
	return collection.KVPair{Key: d.Key, Value: d.Value, Enabled: d.Enabled}
}

func kvPairsToCore(in []kvPairDTO) []collection.KVPair {
	if in == nil {
		return nil
	}
	out := make([]collection.KVPair, len(in))
	for i, d := range in {
		out[i] = d.toCore()
	}
	return out
}

// bodyDTO is the wire shape of SendRequestProxy's body{} object.
type bodyDTO struct {
	Type             collection.BodyType `json:"type"`
	Raw              string              `json:"raw"`
	FormData         []kvPairDTO         `json:"formData"`
	GraphQLQuery     string              `json:"graphqlQuery"`
	GraphQLVariables string              `json:"graphqlVariables"`
	BinaryFileName   string              `json:"binaryFileName"`
}

func (d *bodyDTO) toCore() *collection.Body {
	if d == nil || d.Type == "" || d.Type == collection.BodyNone {
		return nil
	}
	return &collection.Body{
		Type:             d.Type,
		Raw:              d.Raw,
		FormData:         kvPairsToCore(d.FormData),
		GraphQLQuery:     d.GraphQLQuery,
		GraphQLVariables: d.GraphQLVariables,
		BinaryFileName:   d.BinaryFileName,
	}
}

// authDTO is the wire shape of SendRequestProxy's auth{} object: the
// tagged union the Auth Resolver would otherwise compute from a stored
// Request/Folder/Collection chain, supplied directly since an ad-hoc
// send has no such chain.
type authDTO struct {
	Type   collection.AuthType `json:"type"`
	Config json.RawMessage     `json:"config"`
}

func (d authDTO) toCore() auth.EffectiveAuth {
	if d.Type == "" {
		return auth.EffectiveAuth{Type: collection.AuthNone}
	}
	return auth.EffectiveAuth{Type: d.Type, Config: d.Config}
}

// tlsDTO is the wire shape of a per-request mTLS override: client
// certificate/key, a custom CA bundle, or an explicit skip-verify
// opt-in for talking to a self-signed target. Optional on both
// SendRequestProxy and the runner's start body; omitted entirely means
// the platform default transport (no client cert, system CA pool).
type tlsDTO struct {
	CertFile           string `json:"certFile"`
	KeyFile            string `json:"keyFile"`
	CAFile             string `json:"caFile"`
	InsecureSkipVerify bool   `json:"insecureSkipVerify"`
}

func (d *tlsDTO) toCore() (*tls.Config, error) {
	if d == nil {
		return nil, nil
	}
	cfg := coretls.Config{
		CertFile: d.CertFile, KeyFile: d.KeyFile, CAFile: d.CAFile,
		InsecureSkipVerify: d.InsecureSkipVerify,
	}
	if cfg.IsEmpty() {
		return nil, nil
	}
	return cfg.BuildTLSConfig()
}

// sendRequestProxyDTO is spec.md §6's SendRequestProxy wire body.
type sendRequestProxyDTO struct {
	Method          collection.Method `json:"method"`
	URL             string            `json:"url"`
	Headers         []kvPairDTO       `json:"headers"`
	Params          []kvPairDTO       `json:"params"`
	Body            *bodyDTO          `json:"body"`
	Auth            authDTO           `json:"auth"`
	EnvironmentID   string            `json:"environmentId"`
	CollectionID    string            `json:"collectionId"`
	RequestID       string            `json:"requestId"`
	SaveToHistory   bool              `json:"saveToHistory"`
	TimeoutMs       int               `json:"timeoutMs"`
	FollowRedirects bool              `json:"followRedirects"`
	ProxyURL        string            `json:"proxyUrl"`
	TLS             *tlsDTO           `json:"tls"`

	// HistoryID, when supplied, makes a retried send idempotent against
	// the history entry the first attempt wrote (spec.md §4.F step 11).
	HistoryID string `json:"historyId"`
}

// proxyResponseDTO is the wire shape of a ProxyResponse.
type proxyResponseDTO struct {
	StatusCode        int                 `json:"statusCode"`
	StatusText        string              `json:"statusText"`
	ResponseHeaders   map[string][]string `json:"responseHeaders"`
	ResponseBody      string              `json:"responseBody"`
	ResponseTimeMs    int64               `json:"responseTimeMs"`
	ResponseSizeBytes int64               `json:"responseSizeBytes"`
	ContentType       string              `json:"contentType"`
	RedirectChain     []string            `json:"redirectChain"`
	Truncated         bool                `json:"truncated"`
	RedirectOverflow  bool                `json:"redirectOverflow"`
	Error             string              `json:"error,omitempty"`
	ErrorDetail       string              `json:"errorDetail,omitempty"`
	HistoryID         string              `json:"historyId,omitempty"`
}

func proxyResponseToDTO(resp *proxy.ProxyResponse) proxyResponseDTO {
	return proxyResponseDTO{
		StatusCode:        resp.StatusCode,
		StatusText:        resp.StatusText,
		ResponseHeaders:   map[string][]string(resp.ResponseHeaders),
		ResponseBody:      resp.ResponseBody,
		ResponseTimeMs:    resp.ResponseTimeMs,
		ResponseSizeBytes: resp.ResponseSizeBytes,
		ContentType:       resp.ContentType,
		RedirectChain:     resp.RedirectChain,
		Truncated:         resp.Truncated,
		RedirectOverflow:  resp.RedirectOverflow,
		Error:             string(resp.Error),
		ErrorDetail:       resp.ErrorDetail,
		HistoryID:         resp.HistoryID,
	}
}

// runnerStartDTO is spec.md §6's POST /runner/start body.
type runnerStartDTO struct {
	CollectionID           string `json:"collectionId"`
	EnvironmentID          string `json:"environmentId"`
	IterationCount         int    `json:"iterationCount"`
	DelayBetweenRequestsMs int    `json:"delayBetweenRequestsMs"`
	DataFilename           string `json:"dataFilename"`
	DataContent            string `json:"dataContent"` // raw CSV/JSON text, if dataFilename is set
	TimeoutMs              int    `json:"timeoutMs"`
	FollowRedirects        bool   `json:"followRedirects"`
	ProxyURL               string  `json:"proxyUrl"`
	RecordHistory          bool    `json:"recordHistory"`
	TLS                    *tlsDTO `json:"tls"`
}

type runnerStartResponseDTO struct {
	RunID string `json:"runId"`
}

// historyEntryDTO is the wire shape of one RequestHistory row.
type historyEntryDTO struct {
	ID              int64  `json:"id"`
	TeamID          string `json:"teamId"`
	ActorID         string `json:"actorId"`
	CollectionID    string `json:"collectionId"`
	RequestID       string `json:"requestId"`
	EnvironmentID   string `json:"environmentId"`
	Method          string `json:"method"`
	URL             string `json:"url"`
	StatusCode      int    `json:"statusCode"`
	ContentType     string `json:"contentType"`
	SizeBytes       int64  `json:"sizeBytes"`
	DurationMs      int64  `json:"durationMs"`
	Truncated       bool   `json:"truncated"`
	CreatedAtUnixMs int64  `json:"createdAtUnixMs"`
}

func historyEntryToDTO(e corehistory.Entry) historyEntryDTO {
	return historyEntryDTO{
		ID: e.ID, TeamID: e.TeamID, ActorID: e.ActorID, CollectionID: e.CollectionID,
		RequestID: e.RequestID, EnvironmentID: e.EnvironmentID, Method: e.Method, URL: e.URL,
		StatusCode: e.StatusCode, ContentType: e.ContentType, SizeBytes: e.SizeBytes,
		DurationMs: e.DurationMs, Truncated: e.Truncated,
		CreatedAtUnixMs: e.CreatedAt.UnixMilli(),
	}
}
