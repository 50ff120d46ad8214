package proxy

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"net/http"
	"net/http/httptrace"
	"strings"
	"time"

	"github.com/sadopc/courier/internal/auth"
	"github.com/sadopc/courier/internal/auth/digest"
	"github.com/sadopc/courier/internal/core/collection"
)

// TimingDetail breaks wall-clock duration into its DNS/connect/TLS/TTFB
// phases, plus the total, for the FINAL round trip of a (possibly redirected)
// dispatch, grounded on the httptrace instrumentation the teacher's HTTP
// client already carried.
type TimingDetail struct {
	DNSLookup    time.Duration
	TCPConnect   time.Duration
	TLSHandshake time.Duration
	TTFB         time.Duration
	Total        time.Duration
}

type dispatchResult struct {
	httpResp *http.Response
	finalURL string
	timing   *TimingDetail
}

func isRedirectStatus(code int) bool {
	switch code {
	case http.StatusMovedPermanently, http.StatusFound, http.StatusSeeOther,
		http.StatusTemporaryRedirect, http.StatusPermanentRedirect:
		return true
	default:
		return false
	}
}

// dispatch sends req, driving the manual redirect loop described in
// spec.md §4.F steps 6-7: no client-library auto-follow, hop cap of 10,
// 301/302/303 downgrade to GET with no body, 307/308 preserve method and
// body, auth re-applied on every hop. If the final response is a 401
// challenging Digest auth, one additional retry is made per RFC 7616.
func (e *Executor) dispatch(ctx context.Context, client *http.Client, req *http.Request, body []byte, in Input) (*dispatchResult, []string, error) {
	var chain []string
	currentReq := req
	currentBody := body
	var resp *http.Response
	var timing *TimingDetail

	for hop := 0; ; hop++ {
		r, t, err := doTraced(client, currentReq)
		if err != nil {
			return nil, chain, err
		}
		resp = r
		timing = t

		if !in.FollowRedirects || !isRedirectStatus(resp.StatusCode) || hop >= maxRedirectHops {
			break
		}
		location := resp.Header.Get("Location")
		if location == "" {
			break
		}
		nextURL, err := currentReq.URL.Parse(location)
		if err != nil {
			break
		}
		chain = append(chain, nextURL.String())

		nextMethod := currentReq.Method
		nextBody := currentBody
		if resp.StatusCode == http.StatusMovedPermanently || resp.StatusCode == http.StatusFound || resp.StatusCode == http.StatusSeeOther {
			nextMethod = http.MethodGet
			nextBody = nil
		}
		resp.Body.Close()

		nextReq, err := http.NewRequestWithContext(ctx, nextMethod, nextURL.String(), bytesReader(nextBody))
		if err != nil {
			return nil, chain, err
		}
		nextReq.Header = currentReq.Header.Clone()
		if nextMethod == http.MethodGet {
			nextReq.Header.Del("Content-Type")
			nextReq.Header.Del("Content-Length")
		}
		if _, err := auth.Apply(nextReq, in.Auth, in.Store); err != nil {
			return nil, chain, err
		}
		if in.Auth.Type == collection.AuthAWSSigV4 {
			if err := applyAWSSigV4(nextReq, in.Auth, nextBody); err != nil {
				return nil, chain, err
			}
		}

		currentReq = nextReq
		currentBody = nextBody
	}

	if resp.StatusCode == http.StatusUnauthorized && in.Auth.Type == collection.AuthDigest {
		if retried, retriedTiming := retryWithDigest(client, currentReq, currentBody, resp, in.Auth); retried != nil {
			resp = retried
			timing = retriedTiming
		}
	}

	return &dispatchResult{httpResp: resp, finalURL: currentReq.URL.String(), timing: timing}, chain, nil
}

// retryWithDigest parses the WWW-Authenticate challenge from a 401 and
// retries once with a computed Digest Authorization header. It returns
// nil if the challenge is absent, malformed, or credentials are missing
// — in which case the original 401 stands and the caller keeps it.
func retryWithDigest(client *http.Client, prevReq *http.Request, body []byte, prevResp *http.Response, eff auth.EffectiveAuth) (*http.Response, *TimingDetail) {
	wwwAuth := prevResp.Header.Get("WWW-Authenticate")
	if !strings.HasPrefix(strings.ToLower(wwwAuth), "digest ") {
		return nil, nil
	}
	challenge, err := digest.ParseChallenge(wwwAuth)
	if err != nil {
		return nil, nil
	}
	var cfg auth.DigestConfig
	if err := json.Unmarshal(eff.Config, &cfg); err != nil {
		return nil, nil
	}

	authHeader := digest.Authorize(cfg.Username, cfg.Password, prevReq.Method, prevReq.URL.RequestURI(), challenge)
	retryReq, err := http.NewRequestWithContext(prevReq.Context(), prevReq.Method, prevReq.URL.String(), bytesReader(body))
	if err != nil {
		return nil, nil
	}
	retryReq.Header = prevReq.Header.Clone()
	retryReq.Header.Set("Authorization", authHeader)

	prevResp.Body.Close()
	resp, timing, err := doTraced(client, retryReq)
	if err != nil {
		return nil, nil
	}
	return resp, timing
}

func doTraced(client *http.Client, req *http.Request) (*http.Response, *TimingDetail, error) {
	var dnsStart, connStart, tlsStart, gotConn, firstByte time.Time
	var dnsDur, connDur, tlsDur time.Duration

	trace := &httptrace.ClientTrace{
		DNSStart:             func(httptrace.DNSStartInfo) { dnsStart = time.Now() },
		DNSDone:              func(httptrace.DNSDoneInfo) { dnsDur = time.Since(dnsStart) },
		ConnectStart:         func(string, string) { connStart = time.Now() },
		ConnectDone:          func(string, string, error) { connDur = time.Since(connStart) },
		TLSHandshakeStart:    func() { tlsStart = time.Now() },
		TLSHandshakeDone:     func(tls.ConnectionState, error) { tlsDur = time.Since(tlsStart) },
		GotConn:              func(httptrace.GotConnInfo) { gotConn = time.Now() },
		GotFirstResponseByte: func() { firstByte = time.Now() },
	}
	traced := req.WithContext(httptrace.WithClientTrace(req.Context(), trace))

	start := time.Now()
	resp, err := client.Do(traced)
	total := time.Since(start)
	if err != nil {
		return nil, nil, err
	}
	var ttfb time.Duration
	if !gotConn.IsZero() && !firstByte.IsZero() {
		ttfb = firstByte.Sub(gotConn)
	}
	return resp, &TimingDetail{DNSLookup: dnsDur, TCPConnect: connDur, TLSHandshake: tlsDur, TTFB: ttfb, Total: total}, nil
}
