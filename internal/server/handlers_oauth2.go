package server

import (
	"net/http"

	"github.com/sadopc/courier/internal/apierr"
	"github.com/sadopc/courier/internal/auth/oauth2"
)

// oauth2TokenDTO is the wire body of POST /oauth2/token: a caller-driven
// token exchange helper, distinct from OAUTH2_* auth application
// (internal/auth's Applier, spec.md §4.D) which only ever attaches an
// already-obtained access token — the core never performs the exchange
// itself as part of dispatching a request. This endpoint exists so a
// caller can obtain that access token in the first place (to paste into
// an Environment/GlobalVariable as a secret, or into a Request's
// OAUTH2_* auth config) without the courier-server process reaching out
// to an authorization server mid-proxy-send.
type oauth2TokenDTO struct {
	GrantType    string `json:"grantType"` // client_credentials, password, authorization_code, refresh_token
	TokenURL     string `json:"tokenUrl"`
	ClientID     string `json:"clientId"`
	ClientSecret string `json:"clientSecret"`
	Scope        string `json:"scope"`
	Username     string `json:"username"`     // password grant
	Password     string `json:"password"`     // password grant
	Code         string `json:"code"`         // authorization_code grant
	CodeVerifier string `json:"codeVerifier"` // authorization_code + PKCE
	RedirectURI  string `json:"redirectUri"`  // authorization_code grant
	RefreshToken string `json:"refreshToken"` // refresh_token grant
}

type oauth2TokenResponseDTO struct {
	AccessToken  string `json:"accessToken"`
	TokenType    string `json:"tokenType"`
	ExpiresIn    int    `json:"expiresIn"`
	RefreshToken string `json:"refreshToken,omitempty"`
	Scope        string `json:"scope,omitempty"`
}

// handleOAuth2Token implements POST /oauth2/token: perform the grant
// exchange the caller asked for and hand back the resulting token.
// Nothing here is persisted — the caller is responsible for storing the
// access token as a secret variable if they want it reused.
func (s *Server) handleOAuth2Token(w http.ResponseWriter, r *http.Request) {
	var in oauth2TokenDTO
	if err := readJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	cfg := oauth2.OAuth2Config{
		GrantType: in.GrantType, TokenURL: in.TokenURL,
		ClientID: in.ClientID, ClientSecret: in.ClientSecret, Scope: in.Scope,
		Username: in.Username, Password: in.Password, RedirectURI: in.RedirectURI,
	}

	var (
		token *oauth2.TokenResponse
		err   error
	)
	switch in.GrantType {
	case "client_credentials":
		token, err = oauth2.ClientCredentials(r.Context(), cfg)
	case "password":
		token, err = oauth2.PasswordGrant(r.Context(), cfg)
	case "authorization_code":
		token, err = oauth2.ExchangeAuthCode(r.Context(), cfg, in.Code, in.CodeVerifier)
	case "refresh_token":
		token, err = oauth2.RefreshAccessToken(r.Context(), in.TokenURL, in.ClientID, in.ClientSecret, in.RefreshToken)
	default:
		writeAPIErr(w, apierr.Validation("grantType must be one of client_credentials, password, authorization_code, refresh_token", nil))
		return
	}
	if err != nil {
		writeAPIErr(w, apierr.Validation("oauth2 token exchange failed", err))
		return
	}

	writeJSON(w, http.StatusOK, oauth2TokenResponseDTO{
		AccessToken: token.AccessToken, TokenType: token.TokenType, ExpiresIn: token.ExpiresIn,
		RefreshToken: token.RefreshToken, Scope: token.Scope,
	})
}

// authorizeURLDTO is the wire body of POST /oauth2/authorize-url:
// builds the authorization_code-grant redirect URL (plus a PKCE pair,
// when requested) a caller's browser should be sent to. The actual
// callback — receiving `code` back from the authorization server — is
// the caller's concern, not this process's: spawning a local-loopback
// listener to catch it (as a desktop client would) has no equivalent in
// a headless, multi-tenant server.
type authorizeURLDTO struct {
	AuthURL     string `json:"authUrl"`
	ClientID    string `json:"clientId"`
	RedirectURI string `json:"redirectUri"`
	Scope       string `json:"scope"`
	State       string `json:"state"`
	UsePKCE     bool   `json:"usePkce"`
}

type authorizeURLResponseDTO struct {
	URL          string `json:"url"`
	CodeVerifier string `json:"codeVerifier,omitempty"`
}

func (s *Server) handleOAuth2AuthorizeURL(w http.ResponseWriter, r *http.Request) {
	var in authorizeURLDTO
	if err := readJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	var verifier, challenge string
	if in.UsePKCE {
		var err error
		verifier, err = oauth2.GenerateCodeVerifier()
		if err != nil {
			writeAPIErr(w, apierr.Internal("generating PKCE code verifier", err))
			return
		}
		challenge = oauth2.GenerateCodeChallenge(verifier)
	}

	url := oauth2.BuildAuthURL(oauth2.OAuth2Config{
		AuthURL: in.AuthURL, ClientID: in.ClientID, RedirectURI: in.RedirectURI,
		Scope: in.Scope, UsePKCE: in.UsePKCE,
	}, in.State, challenge)

	writeJSON(w, http.StatusOK, authorizeURLResponseDTO{URL: url, CodeVerifier: verifier})
}
