// Package identity keeps reporter and anonymous author identities out of
// moderator-facing views while still letting enforcement reach the real author.
package identity

import (
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"

	"candor/internal/models"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/hkdf"
)

// Placeholders shown in place of a protected identity.
const (
	AnonymousAuthor   = "Anonymous"
	AnonymousReporter = "Anonymous Reporter"
)

const keyInfo = "candor/author-token/v1"

var (
	// ErrMissingSecret is returned when the guard is built without a secret.
	ErrMissingSecret = errors.New("identity secret is required")
	// ErrInvalidToken is returned for tokens that fail to decode or authenticate.
	ErrInvalidToken = errors.New("invalid author token")
)

// Config carries the process-wide anonymity secret. It is loaded once at
// startup and never logged.
type Config struct {
	Secret string
}

// AuthorRef is what the guard needs to know about a piece of content's author.
type AuthorRef struct {
	AuthorID    string
	IsAnonymous bool
}

// Guard resolves display identities and seals anonymous authors into tokens.
type Guard struct {
	aead cipher.AEAD
}

// NewGuard derives the token key from cfg.Secret with HKDF-SHA256.
func NewGuard(cfg Config) (*Guard, error) {
	if cfg.Secret == "" {
		return nil, ErrMissingSecret
	}
	key := make([]byte, chacha20poly1305.KeySize)
	if _, err := io.ReadFull(hkdf.New(sha256.New, []byte(cfg.Secret), nil, []byte(keyInfo)), key); err != nil {
		return nil, fmt.Errorf("derive identity key: %w", err)
	}
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, fmt.Errorf("init identity cipher: %w", err)
	}
	return &Guard{aead: aead}, nil
}

// SealAuthor encrypts authorID into an opaque url-safe token.
func (g *Guard) SealAuthor(authorID string) (string, error) {
	nonce := make([]byte, g.aead.NonceSize(), g.aead.NonceSize()+len(authorID)+g.aead.Overhead())
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("author token nonce: %w", err)
	}
	sealed := g.aead.Seal(nonce, nonce, []byte(authorID), []byte(keyInfo))
	return base64.RawURLEncoding.EncodeToString(sealed), nil
}

// RevealAuthor decrypts a token produced by SealAuthor.
func (g *Guard) RevealAuthor(token string) (string, error) {
	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return "", ErrInvalidToken
	}
	if len(raw) < g.aead.NonceSize()+g.aead.Overhead() {
		return "", ErrInvalidToken
	}
	nonce, ciphertext := raw[:g.aead.NonceSize()], raw[g.aead.NonceSize():]
	plain, err := g.aead.Open(nil, nonce, ciphertext, []byte(keyInfo))
	if err != nil {
		return "", ErrInvalidToken
	}
	return string(plain), nil
}

// ResolveAuthor returns the identity a moderator may see for content.
func (g *Guard) ResolveAuthor(ref AuthorRef) string {
	if ref.IsAnonymous {
		return AnonymousAuthor
	}
	return ref.AuthorID
}

// ResolveReporter never reveals who filed a report.
func (g *Guard) ResolveReporter(_ *models.ContentReport) string {
	return AnonymousReporter
}

// ProtectReport prepares the author fields stored on a new report. Anonymous
// content keeps only a sealed token; the plain author id is left empty.
func (g *Guard) ProtectReport(report *models.ContentReport, ref AuthorRef) error {
	report.AuthorIsAnonymous = ref.IsAnonymous
	if !ref.IsAnonymous {
		report.ContentAuthorID = ref.AuthorID
		report.ContentAuthorToken = ""
		return nil
	}
	token, err := g.SealAuthor(ref.AuthorID)
	if err != nil {
		return err
	}
	report.ContentAuthorID = ""
	report.ContentAuthorToken = token
	return nil
}

// EnforcementTarget returns the real author of the reported content so a
// strike or suspension can be applied.
func (g *Guard) EnforcementTarget(report *models.ContentReport) (string, error) {
	if !report.AuthorIsAnonymous {
		if report.ContentAuthorID == "" {
			return "", ErrInvalidToken
		}
		return report.ContentAuthorID, nil
	}
	return g.RevealAuthor(report.ContentAuthorToken)
}
