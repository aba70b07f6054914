package storage

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

var (
	// ErrTokenInvalid reports a malformed or tampered download token.
	ErrTokenInvalid = errors.New("invalid download token")
	// ErrTokenExpired reports a well-signed token past its expiry.
	ErrTokenExpired = errors.New("download token expired")
)

// DownloadClaims is what a verified download token grants access to.
type DownloadClaims struct {
	RelPath   string
	ExpiresAt time.Time
}

// RunID is the first path segment; exports are stored per run.
func (c DownloadClaims) RunID() string {
	runID, _, _ := strings.Cut(c.RelPath, "/")
	return runID
}

// SignedURLSigner creates and validates signed download tokens for stored
// timetable exports. Tokens have the form path.expiry.mac, all URL safe.
type SignedURLSigner struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewSignedURLSigner constructs a signer with the provided secret and TTL.
func NewSignedURLSigner(secret string, ttl time.Duration) *SignedURLSigner {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &SignedURLSigner{
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
	}
}

// Sign returns a token granting access to relPath until the signer TTL elapses.
func (s *SignedURLSigner) Sign(relPath string) (string, time.Time, error) {
	if relPath == "" {
		return "", time.Time{}, fmt.Errorf("relPath required")
	}
	if len(s.secret) == 0 {
		return "", time.Time{}, fmt.Errorf("signing secret missing")
	}
	expiresAt := s.now().Add(s.ttl).Truncate(time.Second)
	body := base64.RawURLEncoding.EncodeToString([]byte(relPath)) + "." + strconv.FormatInt(expiresAt.Unix(), 36)
	return body + "." + s.mac(body), expiresAt, nil
}

// Verify checks the signature first and the expiry second, so a forged token
// never reports ErrTokenExpired.
func (s *SignedURLSigner) Verify(token string) (DownloadClaims, error) {
	idx := strings.LastIndexByte(token, '.')
	if idx <= 0 || len(s.secret) == 0 {
		return DownloadClaims{}, ErrTokenInvalid
	}
	body, sig := token[:idx], token[idx+1:]
	if !hmac.Equal([]byte(s.mac(body)), []byte(sig)) {
		return DownloadClaims{}, ErrTokenInvalid
	}

	encodedPath, rawExpiry, ok := strings.Cut(body, ".")
	if !ok {
		return DownloadClaims{}, ErrTokenInvalid
	}
	rawPath, err := base64.RawURLEncoding.DecodeString(encodedPath)
	if err != nil || len(rawPath) == 0 {
		return DownloadClaims{}, ErrTokenInvalid
	}
	expUnix, err := strconv.ParseInt(rawExpiry, 36, 64)
	if err != nil {
		return DownloadClaims{}, ErrTokenInvalid
	}

	claims := DownloadClaims{RelPath: string(rawPath), ExpiresAt: time.Unix(expUnix, 0)}
	if s.now().After(claims.ExpiresAt) {
		return claims, ErrTokenExpired
	}
	return claims, nil
}

// TTL returns how long generated tokens stay valid.
func (s *SignedURLSigner) TTL() time.Duration {
	return s.ttl
}

func (s *SignedURLSigner) mac(body string) string {
	m := hmac.New(sha256.New, s.secret)
	_, _ = m.Write([]byte(body))
	return base64.RawURLEncoding.EncodeToString(m.Sum(nil)[:20])
}
