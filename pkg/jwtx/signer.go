package jwtx

import (
	"crypto/ed25519"
	"crypto/rand"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// Signer signs access-token claims. EdDSA (Ed25519) is the only
// algorithm the service issues.
type Signer interface {
	Alg() string
	KID() string
	Sign(Claims) (string, error)
	PublicJWK() JWK
}

type eddsaSigner struct {
	kid string
	key ed25519.PrivateKey
	pub ed25519.PublicKey
}

// NewEphemeralSigner generates a fresh Ed25519 signing key. Tokens stop
// verifying across restarts; use NewSignerFromPEM with a persisted key
// when that matters.
func NewEphemeralSigner() (Signer, error) {
	pub, key, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("jwtx: generate ed25519 key: %w", err)
	}

	var kidRaw [8]byte
	if _, err := rand.Read(kidRaw[:]); err != nil {
		return nil, fmt.Errorf("jwtx: generate kid: %w", err)
	}

	return &eddsaSigner{
		kid: base64.RawURLEncoding.EncodeToString(kidRaw[:]),
		key: key,
		pub: pub,
	}, nil
}

// NewSignerFromPEM loads an Ed25519 private key in PKCS8 PEM form.
func NewSignerFromPEM(kid string, pemKey []byte) (Signer, error) {
	block, _ := pem.Decode(pemKey)
	if block == nil {
		return nil, errors.New("jwtx: invalid PEM for Ed25519 key")
	}
	if block.Type != "PRIVATE KEY" {
		return nil, fmt.Errorf("jwtx: expected PRIVATE KEY, got %q (Ed25519 requires PKCS8)", block.Type)
	}

	priv, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("jwtx: parse PKCS8: %w", err)
	}

	key, ok := priv.(ed25519.PrivateKey)
	if !ok {
		return nil, errors.New("jwtx: not an Ed25519 private key")
	}

	return &eddsaSigner{
		kid: kid,
		key: key,
		pub: key.Public().(ed25519.PublicKey),
	}, nil
}

func (s *eddsaSigner) Alg() string { return jwt.SigningMethodEdDSA.Alg() }
func (s *eddsaSigner) KID() string { return s.kid }

func (s *eddsaSigner) Sign(claims Claims) (string, error) {
	t := jwt.NewWithClaims(jwt.SigningMethodEdDSA, claims)
	t.Header["kid"] = s.kid
	return t.SignedString(s.key)
}

func (s *eddsaSigner) PublicJWK() JWK {
	return NewEd25519JWK(s.kid, "sig", s.Alg(), s.pub)
}
