package storage

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"strconv"
	"strings"
	"time"
)

var (
	ErrLinkMalformed = errors.New("storage: malformed download token")
	ErrLinkSignature = errors.New("storage: download token signature mismatch")
	ErrLinkExpired   = errors.New("storage: download token expired")
)

// LinkSigner issues short-lived HMAC tokens granting download access to one blob key.
type LinkSigner struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewLinkSigner returns a signer; ttl defaults to 15 minutes.
func NewLinkSigner(secret string, ttl time.Duration) *LinkSigner {
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	return &LinkSigner{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// Sign encodes key and an expiry into "<b64 key>.<unix>.<hex mac>".
func (s *LinkSigner) Sign(key string) (string, time.Time, error) {
	if key == "" {
		return "", time.Time{}, errors.New("storage: key required")
	}
	if len(s.secret) == 0 {
		return "", time.Time{}, errors.New("storage: signing secret missing")
	}
	expiresAt := s.now().Add(s.ttl).UTC().Truncate(time.Second)
	encoded := base64.RawURLEncoding.EncodeToString([]byte(key))
	exp := strconv.FormatInt(expiresAt.Unix(), 10)
	return encoded + "." + exp + "." + s.mac(encoded, exp), expiresAt, nil
}

// Verify returns the key embedded in a valid, unexpired token.
func (s *LinkSigner) Verify(token string) (string, error) {
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return "", ErrLinkMalformed
	}
	encoded, exp, sig := parts[0], parts[1], parts[2]
	if !hmac.Equal([]byte(s.mac(encoded, exp)), []byte(sig)) {
		return "", ErrLinkSignature
	}
	unix, err := strconv.ParseInt(exp, 10, 64)
	if err != nil {
		return "", ErrLinkMalformed
	}
	if s.now().After(time.Unix(unix, 0)) {
		return "", ErrLinkExpired
	}
	raw, err := base64.RawURLEncoding.DecodeString(encoded)
	if err != nil {
		return "", ErrLinkMalformed
	}
	return string(raw), nil
}

func (s *LinkSigner) mac(encoded, exp string) string {
	h := hmac.New(sha256.New, s.secret)
	_, _ = h.Write([]byte(encoded + "|" + exp))
	return hex.EncodeToString(h.Sum(nil))
}
