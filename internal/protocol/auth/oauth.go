package auth

import (
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
)

// TokenCredentials carries an OAuth2 bearer token and, for the
// signed-header variant, the RSA private key used to sign the
// HTTP-style `date\n(request-target)\nhost` header.
type TokenCredentials struct {
	Token      string
	SigningKey *rsa.PrivateKey
	Date       string // RFC1123 date header value, supplied by the caller so this package stays deterministic
	Host       string
}

// TokenResponse is the KV pair set for the token authentication
// variant of phase two.
type TokenResponse struct {
	Token     string // AUTH_TOKEN
	Signature string // AUTH_SIGNATURE, present only when SigningKey is set
}

// ComputeToken builds the phase-two response for OAuth2 token
// authentication, optionally signing the canonical header block with
// RSA-SHA256 when a private key was supplied.
func ComputeToken(cred TokenCredentials) (TokenResponse, error) {
	resp := TokenResponse{Token: cred.Token}
	if cred.SigningKey == nil {
		return resp, nil
	}
	header := fmt.Sprintf("date: %s\n(request-target): post /\nhost: %s", cred.Date, cred.Host)
	digest := sha256.Sum256([]byte(header))
	sig, err := rsa.SignPKCS1v15(rand.Reader, cred.SigningKey, crypto.SHA256, digest[:])
	if err != nil {
		return TokenResponse{}, fmt.Errorf("tnscore: signing auth header: %w", err)
	}
	resp.Signature = base64.StdEncoding.EncodeToString(sig)
	return resp, nil
}
