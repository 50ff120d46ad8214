// Package jwtauth signs a caller-supplied claims payload into a compact
// JWS, for the JWT_BEARER auth type (spec.md 4.D).
package jwtauth

import (
	"encoding/json"
	"fmt"

	jose "github.com/go-jose/go-jose/v4"
)

// Algorithm is one of the HMAC signing algorithms spec.md allows for
// JWT_BEARER.
type Algorithm string

const (
	HS256 Algorithm = "HS256"
	HS384 Algorithm = "HS384"
	HS512 Algorithm = "HS512"
)

func (a Algorithm) joseAlgorithm() jose.SignatureAlgorithm {
	switch a {
	case HS384:
		return jose.HS384
	case HS512:
		return jose.HS512
	default:
		return jose.HS256
	}
}

// Sign produces a compact JWS over payload, HMAC-signed with secret
// under algorithm. payload is caller-supplied claims JSON, not
// reinterpreted or defaulted here.
func Sign(payload json.RawMessage, secret string, algorithm Algorithm) (string, error) {
	signer, err := jose.NewSigner(jose.SigningKey{
		Algorithm: algorithm.joseAlgorithm(),
		Key:       []byte(secret),
	}, nil)
	if err != nil {
		return "", fmt.Errorf("constructing jwt signer: %w", err)
	}
	sig, err := signer.Sign(payload)
	if err != nil {
		return "", fmt.Errorf("signing jwt payload: %w", err)
	}
	return sig.CompactSerialize()
}
