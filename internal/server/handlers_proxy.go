package server

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"net/http"
	"time"

	"github.com/sadopc/courier/internal/apierr"
	"github.com/sadopc/courier/internal/core/collection"
	"github.com/sadopc/courier/internal/core/environment"
	corehistory "github.com/sadopc/courier/internal/core/history"
	"github.com/sadopc/courier/internal/proxy"
)

// handleProxySend implements spec.md §4.F/§6's POST /proxy/send: build
// a Store from whatever scopes the caller referenced, dispatch through
// the Proxy Executor, optionally record history, and return the
// ProxyResponse verbatim — UpstreamError never becomes an HTTP error,
// per spec.md §7.
func (s *Server) handleProxySend(w http.ResponseWriter, r *http.Request) {
	id := identityFrom(r.Context())
	var in sendRequestProxyDTO
	if err := readJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	store, col, err := s.buildSendStore(r.Context(), id.TeamID, in.CollectionID, in.EnvironmentID)
	if err != nil {
		writeAPIErr(w, err)
		return
	}

	tlsConfig, err := in.TLS.toCore()
	if err != nil {
		writeAPIErr(w, apierr.Validation("invalid tls config", err))
		return
	}

	resp, execErr := s.Executor.Execute(r.Context(), buildProxyInput(in, store, tlsConfig))
	if execErr != nil {
		writeAPIErr(w, execErr)
		return
	}

	if in.SaveToHistory && s.History != nil {
		collectionID := in.CollectionID
		if col != nil {
			collectionID = col.ID
		}
		s.History.Record(r.Context(), corehistory.Entry{
			HistoryID: resp.HistoryID,
			TeamID:    id.TeamID, ActorID: id.UserID, CollectionID: collectionID,
			RequestID: in.RequestID, EnvironmentID: in.EnvironmentID,
			Method: string(in.Method), URL: resp.FinalURL,
			RequestHeaders: marshalHeaders(resp.RequestHeaders), RequestBody: resp.RequestBody,
			StatusCode:      resp.StatusCode,
			ResponseHeaders: marshalHeaders(resp.ResponseHeaders), ResponseBody: resp.ResponseBody,
			ContentType: resp.ContentType, SizeBytes: resp.ResponseSizeBytes,
			DurationMs: resp.ResponseTimeMs, Truncated: resp.Truncated,
			CreatedAt: time.Now(),
		})
	}

	writeJSON(w, http.StatusOK, proxyResponseToDTO(resp))
}

func buildProxyInput(in sendRequestProxyDTO, store *environment.Store, tlsConfig *tls.Config) proxy.Input {
	return proxy.Input{
		Method:          in.Method,
		URL:             in.URL,
		Headers:         kvPairsToCore(in.Headers),
		Params:          kvPairsToCore(in.Params),
		Body:            in.Body.toCore(),
		Auth:            in.Auth.toCore(),
		Store:           store,
		TimeoutMs:       in.TimeoutMs,
		FollowRedirects: in.FollowRedirects,
		ProxyURL:        in.ProxyURL,
		TLSConfig:       tlsConfig,
		HistoryID:       in.HistoryID,
	}
}

// buildSendStore assembles the variable Store an ad-hoc send needs:
// team globals always, plus Collection/Environment scopes when the
// caller referenced them. Unlike the Collection Runner, there is no
// folder chain here — auth and scripts are not part of §4.F.
func (s *Server) buildSendStore(ctx context.Context, teamID, collectionID, environmentID string) (*environment.Store, *collection.Collection, error) {
	globals, err := s.Globals.ListByTeam(ctx, teamID)
	if err != nil {
		return nil, nil, err
	}

	var col *collection.Collection
	collectionVars := map[string]string{}
	if collectionID != "" {
		col, err = s.Collections.Get(ctx, collectionID)
		if err != nil {
			return nil, nil, err
		}
		collectionVars = col.Variables
	}

	var envVars []environment.Variable
	if environmentID != "" {
		envs, err := s.Environments.ListByTeam(ctx, teamID)
		if err != nil {
			return nil, nil, err
		}
		for i := range envs {
			if envs[i].ID == environmentID {
				envVars = envs[i].Variables
				break
			}
		}
	}

	return environment.NewStore(globals, collectionVars, envVars), col, nil
}

func marshalHeaders(h map[string][]string) string {
	b, _ := json.Marshal(h)
	return string(b)
}
