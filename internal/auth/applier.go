package auth

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/sadopc/courier/internal/auth/jwtauth"
	"github.com/sadopc/courier/internal/core/collection"
	"github.com/sadopc/courier/internal/core/environment"
	"github.com/sadopc/courier/internal/template"
)

// APIKeyConfig is the AuthConfig shape for collection.AuthAPIKey.
type APIKeyConfig struct {
	Header string `json:"header"`
	Value  string `json:"value"`
	AddTo  string `json:"addTo"` // "header" or "query"
}

// BearerConfig is the AuthConfig shape for collection.AuthBearer.
type BearerConfig struct {
	Token string `json:"token"`
}

// BasicConfig is the AuthConfig shape for collection.AuthBasic.
type BasicConfig struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// JWTConfig is the AuthConfig shape for collection.AuthJWT.
type JWTConfig struct {
	Payload   json.RawMessage   `json:"payload"`
	Secret    string            `json:"secret"`
	Algorithm jwtauth.Algorithm `json:"algorithm"`
}

// OAuth2Config is the AuthConfig shape for collection.AuthOAuth2. The
// core never performs the token exchange (spec.md 4.D); AccessToken must
// already be populated by whatever obtained it.
type OAuth2Config struct {
	AccessToken string `json:"accessToken"`
}

// DigestConfig is the AuthConfig shape for collection.AuthDigest. Digest
// is a two-round-trip scheme: Apply is a no-op here, since the
// Authorization header can only be built after the server's first 401
// WWW-Authenticate challenge is observed. The proxy executor owns that
// retry using these credentials and internal/auth/digest.
type DigestConfig struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// AWSSigV4Config is the AuthConfig shape for collection.AuthAWSSigV4.
type AWSSigV4Config struct {
	AccessKeyID     string `json:"accessKeyId"`
	SecretAccessKey string `json:"secretAccessKey"`
	SessionToken    string `json:"sessionToken"`
	Region          string `json:"region"`
	Service         string `json:"service"`
}

// Apply mutates req in place per the Auth Applier table (spec.md 4.D).
// Every credential string is Template-expanded against store before use.
// AWS_SIGV4 and DIGEST are excluded: the former needs the full request
// including body and is applied by the proxy executor via awsv4.Sign,
// the latter needs a server challenge first. query is returned non-nil
// only when API_KEY's addTo is "query", for the caller to merge into the
// request URL (the request may not have its final URL assembled yet).
func Apply(req *http.Request, eff EffectiveAuth, store *environment.Store) (query url.Values, err error) {
	switch eff.Type {
	case collection.AuthNone, collection.AuthDigest, collection.AuthAWSSigV4:
		return nil, nil

	case collection.AuthAPIKey:
		var cfg APIKeyConfig
		if err := json.Unmarshal(eff.Config, &cfg); err != nil {
			return nil, fmt.Errorf("parsing api key auth config: %w", err)
		}
		value, _ := template.Expand(cfg.Value, store)
		if cfg.AddTo == "query" {
			q := url.Values{}
			q.Set(cfg.Header, value)
			return q, nil
		}
		req.Header.Set(cfg.Header, value)
		return nil, nil

	case collection.AuthBearer:
		var cfg BearerConfig
		if err := json.Unmarshal(eff.Config, &cfg); err != nil {
			return nil, fmt.Errorf("parsing bearer auth config: %w", err)
		}
		token, _ := template.Expand(cfg.Token, store)
		req.Header.Set("Authorization", "Bearer "+token)
		return nil, nil

	case collection.AuthBasic:
		var cfg BasicConfig
		if err := json.Unmarshal(eff.Config, &cfg); err != nil {
			return nil, fmt.Errorf("parsing basic auth config: %w", err)
		}
		user, _ := template.Expand(cfg.Username, store)
		pass, _ := template.Expand(cfg.Password, store)
		encoded := base64.StdEncoding.EncodeToString([]byte(user + ":" + pass))
		req.Header.Set("Authorization", "Basic "+encoded)
		return nil, nil

	case collection.AuthJWT:
		var cfg JWTConfig
		if err := json.Unmarshal(eff.Config, &cfg); err != nil {
			return nil, fmt.Errorf("parsing jwt auth config: %w", err)
		}
		secret, _ := template.Expand(cfg.Secret, store)
		token, err := jwtauth.Sign(cfg.Payload, secret, cfg.Algorithm)
		if err != nil {
			return nil, fmt.Errorf("signing jwt: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+token)
		return nil, nil

	case collection.AuthOAuth2:
		var cfg OAuth2Config
		if err := json.Unmarshal(eff.Config, &cfg); err != nil {
			return nil, fmt.Errorf("parsing oauth2 auth config: %w", err)
		}
		token, _ := template.Expand(cfg.AccessToken, store)
		req.Header.Set("Authorization", "Bearer "+token)
		return nil, nil

	default:
		return nil, fmt.Errorf("unsupported auth type %q", eff.Type)
	}
}
