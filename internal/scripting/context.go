package scripting

import (
	"net/http"
	"net/url"

	"github.com/sadopc/courier/internal/core/cookies"
)

// ScriptRequest is the request view exposed to PRE_REQUEST scripts as
// pm.request; header mutations made there reach the dispatched request.
// POST_RESPONSE scripts are given no ScriptRequest, so pm.request is not
// defined in them.
type ScriptRequest struct {
	Method  string
	URL     string
	Headers map[string]string
	Body    string
}

// HeaderOps backs pm.request.headers.
type HeaderOps struct {
	req *ScriptRequest
}

func (h HeaderOps) Add(key, value string) {
	if h.req.Headers == nil {
		h.req.Headers = map[string]string{}
	}
	h.req.Headers[key] = value
}

func (h HeaderOps) Upsert(key, value string) { h.Add(key, value) }

func (h HeaderOps) Remove(key string) {
	delete(h.req.Headers, key)
}

func (h HeaderOps) Get(key string) string {
	return h.req.Headers[key]
}

// ScriptResponse is the read-only view exposed to scripts as
// pm.response, populated only for POST_RESPONSE execution.
type ScriptResponse struct {
	Code            int
	Status          string
	Body            string
	Headers         map[string]string
	ResponseTimeMs  float64
}

// HeaderGetter backs pm.response.headers.get.
type HeaderGetter struct {
	resp *ScriptResponse
}

func (h HeaderGetter) Get(key string) string {
	return h.resp.Headers[key]
}

// CookieOps backs pm.cookies.get/set. A nil jar makes both calls
// no-ops, so scripts running outside a collection run (e.g. a single
// ad-hoc send) degrade gracefully rather than panicking.
type CookieOps struct {
	jar *cookies.Jar
}

// Get returns the named cookie's value for urlStr, if the jar holds one.
func (c CookieOps) Get(urlStr, name string) (string, bool) {
	if c.jar == nil {
		return "", false
	}
	u, err := url.Parse(urlStr)
	if err != nil {
		return "", false
	}
	for _, ck := range c.jar.Cookies(u) {
		if ck.Name == name {
			return ck.Value, true
		}
	}
	return "", false
}

// Set stores a cookie for urlStr for the remainder of the collection run.
func (c CookieOps) Set(urlStr, name, value string) {
	if c.jar == nil {
		return
	}
	u, err := url.Parse(urlStr)
	if err != nil {
		return
	}
	c.jar.SetCookies(u, []*http.Cookie{{Name: name, Value: value}})
}
