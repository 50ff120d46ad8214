// Package proxy implements the HTTP Proxy Executor: the component that
// actually dispatches a resolved request, drives its own redirect loop,
// enforces body-size and timeout limits, and reports back a uniform
// ProxyResponse regardless of whether the round trip succeeded.
package proxy

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/sadopc/courier/internal/auth"
	"github.com/sadopc/courier/internal/auth/awsv4"
	"github.com/sadopc/courier/internal/core/collection"
	"github.com/sadopc/courier/internal/core/cookies"
	"github.com/sadopc/courier/internal/core/environment"
	"github.com/sadopc/courier/internal/metrics"
	"github.com/sadopc/courier/internal/template"
	"golang.org/x/net/proxy"
)

// ErrorCode identifies the class of failure reported in a failed
// ProxyResponse per spec.md §4.F's error table.
type ErrorCode string

const (
	ErrInvalidURL         ErrorCode = "INVALID_URL"
	ErrUpstreamUnreachable ErrorCode = "UPSTREAM_UNREACHABLE"
	ErrUpstreamTimeout    ErrorCode = "UPSTREAM_TIMEOUT"
	ErrUpstreamIO         ErrorCode = "UPSTREAM_IO"
)

const (
	maxRedirectHops  = 10
	maxResponseBytes = 10 << 20 // 10 MiB
	defaultTimeoutMs = 30_000
	minTimeoutMs     = 1_000
	maxTimeoutMs     = 300_000
	defaultUserAgent = "CodeOps-Courier/1.0"
)

// Input describes one resolved request dispatch, gathering everything
// the executor needs without re-touching a repository mid-flight.
type Input struct {
	Method          collection.Method
	URL             string
	Headers         []collection.KVPair
	Params          []collection.KVPair
	Body            *collection.Body
	Auth            auth.EffectiveAuth
	Store           *environment.Store
	TimeoutMs       int
	FollowRedirects bool
	ProxyURL        string
	TLSConfig       *tls.Config

	// CookieJar, when set, is reused across calls so cookies set by one
	// response are carried into later requests — the Collection Runner
	// shares one Jar across every iteration of a run. A nil CookieJar
	// gets a fresh, call-scoped jar (the prior single-request behavior).
	CookieJar *cookies.Jar

	// HistoryID, when supplied by the caller, is echoed onto
	// ProxyResponse.HistoryID and carried into the recorded history
	// entry so a retried send with the same id doesn't duplicate that
	// entry (spec.md §4.F step 11, §8's round-trip property). Left
	// empty, Execute generates one.
	HistoryID string
}

// ProxyResponse is the uniform result of Execute, win or lose. A failed
// dispatch (DNS, connection refused, timeout, mid-stream IO error) is
// represented as StatusCode 0 with Error set, not a Go error return —
// it still carries whatever timing was observed, and callers still
// decide whether to record it to history.
type ProxyResponse struct {
	StatusCode        int
	StatusText        string
	ResponseHeaders   http.Header
	ResponseBody      string
	ResponseTimeMs    int64
	ResponseSizeBytes int64
	ContentType       string
	RedirectChain     []string
	Truncated         bool
	RedirectOverflow  bool
	Error             ErrorCode
	ErrorDetail       string
	Timing            *TimingDetail

	// RequestSnapshot mirrors what was actually sent on the wire after
	// substitution and auth, for the caller's history entry.
	RequestHeaders http.Header
	RequestBody    string
	FinalURL       string

	// HistoryID is the id this dispatch was (or will be) recorded under
	// — in.HistoryID if the caller supplied one, otherwise one Execute
	// generated. Callers that want replay-safe history writes on retry
	// pass this value back in as the next Input.HistoryID.
	HistoryID string
}

// Executor dispatches requests. A fresh Executor is cheap; the
// underlying transport is rebuilt per call to honor per-request proxy/
// TLS overrides, matching the teacher's per-request transport pattern.
type Executor struct {
	// Metrics, when set, receives one RecordDispatch call per Execute.
	// A nil Metrics is a no-op, so a bare New() stays usable standalone.
	Metrics *metrics.Metrics
}

func New() *Executor { return &Executor{} }

// Execute runs the full procedure from spec.md §4.F: substitute, validate,
// clamp, authenticate, dispatch, follow redirects manually, cap the
// response read, and measure.
func (e *Executor) Execute(ctx context.Context, in Input) (out *ProxyResponse, err error) {
	dispatchStart := time.Now()
	defer func() {
		e.recordMetrics(in, out, time.Since(dispatchStart))
	}()

	historyID := in.HistoryID
	if historyID == "" {
		historyID = uuid.New().String()
	}
	defer func() {
		if out != nil {
			out.HistoryID = historyID
		}
	}()

	expandedURL, _ := template.Expand(in.URL, in.Store)
	headers, _ := template.ExpandKVPairs(in.Headers, in.Store)
	params, _ := template.ExpandKVPairs(in.Params, in.Store)
	bodyRaw := ""
	if in.Body != nil {
		bodyRaw, _ = template.Expand(in.Body.Raw, in.Store)
	}

	parsedURL, err := url.Parse(expandedURL)
	if err != nil || (parsedURL.Scheme != "http" && parsedURL.Scheme != "https") || parsedURL.Host == "" {
		return &ProxyResponse{Error: ErrInvalidURL, ErrorDetail: "request URL must be an absolute http(s) URL"}, nil
	}

	q := parsedURL.Query()
	for _, p := range params {
		q.Set(p.Key, p.Value)
	}
	parsedURL.RawQuery = q.Encode()

	timeoutMs := clampTimeout(in.TimeoutMs)
	client := e.buildClient(time.Duration(timeoutMs)*time.Millisecond, in.ProxyURL, in.TLSConfig, in.CookieJar)

	bodyBytes := []byte(bodyRaw)
	req, err := http.NewRequestWithContext(ctx, string(in.Method), parsedURL.String(), bytesReader(bodyBytes))
	if err != nil {
		return &ProxyResponse{Error: ErrInvalidURL, ErrorDetail: err.Error()}, nil
	}
	for _, h := range headers {
		req.Header.Set(h.Key, h.Value)
	}

	authQuery, err := auth.Apply(req, in.Auth, in.Store)
	if err != nil {
		return &ProxyResponse{Error: ErrInvalidURL, ErrorDetail: fmt.Sprintf("applying auth: %s", err)}, nil
	}
	if len(authQuery) > 0 {
		q := req.URL.Query()
		for k, vs := range authQuery {
			for _, v := range vs {
				q.Set(k, v)
			}
		}
		req.URL.RawQuery = q.Encode()
	}
	if in.Auth.Type == collection.AuthAWSSigV4 {
		if err := applyAWSSigV4(req, in.Auth, bodyBytes); err != nil {
			return &ProxyResponse{Error: ErrInvalidURL, ErrorDetail: fmt.Sprintf("signing aws sigv4: %s", err)}, nil
		}
	}

	if req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", defaultUserAgent)
	}

	requestHeaders := req.Header.Clone()
	finalURL := req.URL.String()

	resp, chain, dispatchErr := e.dispatch(ctx, client, req, bodyBytes, in)
	if dispatchErr != nil {
		code, detail := classifyDispatchError(dispatchErr)
		return &ProxyResponse{
			Error: code, ErrorDetail: detail,
			RequestHeaders: requestHeaders, RequestBody: bodyRaw, FinalURL: finalURL,
			RedirectChain: chain,
		}, nil
	}
	defer resp.httpResp.Body.Close()

	out = &ProxyResponse{
		StatusCode:      resp.httpResp.StatusCode,
		StatusText:      resp.httpResp.Status,
		ResponseHeaders: resp.httpResp.Header,
		ContentType:     resp.httpResp.Header.Get("Content-Type"),
		RedirectChain:   chain,
		RequestHeaders:  requestHeaders,
		RequestBody:     bodyRaw,
		FinalURL:        resp.finalURL,
		Timing:          resp.timing,
	}
	if len(chain) >= maxRedirectHops && isRedirectStatus(out.StatusCode) {
		out.RedirectOverflow = true
	}

	body, truncated, readErr := readCapped(resp.httpResp.Body, maxResponseBytes)
	out.ResponseBody = string(body)
	out.Truncated = truncated
	out.ResponseSizeBytes = int64(len(body))
	if resp.timing != nil {
		out.ResponseTimeMs = resp.timing.Total.Milliseconds()
	}
	if readErr != nil {
		out.Error = ErrUpstreamIO
		out.ErrorDetail = readErr.Error()
	}
	return out, nil
}

func bytesReader(b []byte) io.Reader {
	if len(b) == 0 {
		return nil
	}
	return bytes.NewReader(b)
}

func clampTimeout(ms int) int {
	if ms <= 0 {
		return defaultTimeoutMs
	}
	if ms < minTimeoutMs {
		return minTimeoutMs
	}
	if ms > maxTimeoutMs {
		return maxTimeoutMs
	}
	return ms
}

func applyAWSSigV4(req *http.Request, eff auth.EffectiveAuth, body []byte) error {
	var cfg auth.AWSSigV4Config
	if err := json.Unmarshal(eff.Config, &cfg); err != nil {
		return err
	}
	return awsv4.Sign(req, body, awsv4.AWSConfig{
		AccessKeyID:     cfg.AccessKeyID,
		SecretAccessKey: cfg.SecretAccessKey,
		SessionToken:    cfg.SessionToken,
		Region:          cfg.Region,
		Service:         cfg.Service,
	}, time.Now())
}

func classifyDispatchError(err error) (ErrorCode, string) {
	if netErr, ok := err.(net.Error); ok && netErr.Timeout() {
		return ErrUpstreamTimeout, err.Error()
	}
	var dnsErr *net.DNSError
	if asDNSError(err, &dnsErr) {
		return ErrUpstreamUnreachable, err.Error()
	}
	if strings.Contains(err.Error(), "connection refused") || strings.Contains(err.Error(), "no such host") {
		return ErrUpstreamUnreachable, err.Error()
	}
	return ErrUpstreamUnreachable, err.Error()
}

func asDNSError(err error, target **net.DNSError) bool {
	for err != nil {
		if de, ok := err.(*net.DNSError); ok {
			*target = de
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}

// readCapped reads at most limit bytes, reporting whether the stream had
// more left (truncated=true), per spec.md §4.F step 8.
func readCapped(r io.Reader, limit int64) ([]byte, bool, error) {
	limited := io.LimitReader(r, limit+1)
	data, err := io.ReadAll(limited)
	if err != nil {
		return data, false, fmt.Errorf("reading response body: %w", err)
	}
	if int64(len(data)) > limit {
		return data[:limit], true, nil
	}
	return data, false, nil
}

// buildClient constructs a per-call *http.Client honoring proxy/TLS
// overrides. CheckRedirect returns ErrUseLastResponse so dispatch() can
// drive the redirect loop itself instead of letting net/http auto-follow.
func (e *Executor) buildClient(timeout time.Duration, proxyURL string, tlsConfig *tls.Config, jar *cookies.Jar) *http.Client {
	transport := &http.Transport{
		MaxIdleConns:        100,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
		TLSClientConfig:     tlsConfig,
	}
	if proxyURL != "" {
		if rt, err := proxyTransport(transport, proxyURL); err == nil {
			transport = rt
		}
	}
	if jar == nil {
		jar = cookies.New()
	}
	return &http.Client{
		Timeout:       timeout,
		Transport:     transport,
		CheckRedirect: func(*http.Request, []*http.Request) error { return http.ErrUseLastResponse },
		Jar:           jar.GetJar(),
	}
}

func proxyTransport(transport *http.Transport, proxyURLStr string) (*http.Transport, error) {
	parsed, err := url.Parse(proxyURLStr)
	if err != nil {
		return transport, fmt.Errorf("parsing proxy URL: %w", err)
	}
	switch parsed.Scheme {
	case "socks5", "socks5h":
		var a *proxy.Auth
		if parsed.User != nil {
			password, _ := parsed.User.Password()
			a = &proxy.Auth{User: parsed.User.Username(), Password: password}
		}
		dialer, err := proxy.SOCKS5("tcp", parsed.Host, a, proxy.Direct)
		if err != nil {
			return transport, fmt.Errorf("creating SOCKS5 dialer: %w", err)
		}
		transport.DialContext = func(ctx context.Context, network, addr string) (net.Conn, error) {
			return dialer.Dial(network, addr)
		}
	case "http", "https":
		transport.Proxy = http.ProxyURL(parsed)
	default:
		return transport, fmt.Errorf("unsupported proxy scheme %q", parsed.Scheme)
	}
	return transport, nil
}

// recordMetrics reports one dispatch, win or lose, to e.Metrics. out is
// never nil by the time Execute's deferred call runs — every return
// path constructs at least a bare &ProxyResponse{}.
func (e *Executor) recordMetrics(in Input, out *ProxyResponse, elapsed time.Duration) {
	if e == nil || e.Metrics == nil || out == nil {
		return
	}
	outcome := "ok"
	if out.Error != "" {
		outcome = string(out.Error)
	}
	e.Metrics.RecordDispatch(string(in.Method), outcome, elapsed.Milliseconds(), len(out.RedirectChain), out.RedirectOverflow, out.Truncated)
}

