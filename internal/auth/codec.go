package auth

import (
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwe"
	"github.com/lestrrat-go/jwx/v2/jws"
	"golang.org/x/crypto/hkdf"
)

// RefreshAccessTokenError marks a record whose last token refresh failed.
const RefreshAccessTokenError = "RefreshAccessTokenError"

// User is the identity carried by a session.
type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

// SessionRecord is the payload of the session cookie.
type SessionRecord struct {
	User        User      `json:"user"`
	AccessToken string    `json:"accessToken"`
	IssuedAt    time.Time `json:"issuedAt"`
	Error       string    `json:"error,omitempty"`

	// RefreshAttemptAt is when the last failed refresh was tried.
	RefreshAttemptAt time.Time `json:"refreshAttemptAt,omitzero"`
}

// RefreshFailed reports whether the last refresh attempt failed.
func (r *SessionRecord) RefreshFailed() bool {
	return r.Error == RefreshAccessTokenError
}

// codec turns records into cookie values: JSON, signed with HS256, then
// encrypted with a direct A256GCM key.
type codec struct {
	signKey []byte
	encKey  []byte
}

func newCodec(secret string) (*codec, error) {
	if secret == "" {
		return nil, errors.New("session secret is empty")
	}
	signKey, err := deriveKey(secret, "tomhasit session signing")
	if err != nil {
		return nil, err
	}
	encKey, err := deriveKey(secret, "tomhasit session encryption")
	if err != nil {
		return nil, err
	}
	return &codec{signKey: signKey, encKey: encKey}, nil
}

func deriveKey(secret, info string) ([]byte, error) {
	key := make([]byte, 32)
	if _, err := io.ReadFull(hkdf.New(sha256.New, []byte(secret), nil, []byte(info)), key); err != nil {
		return nil, fmt.Errorf("derive %s key: %w", info, err)
	}
	return key, nil
}

func (c *codec) encode(rec *SessionRecord) (string, error) {
	payload, err := json.Marshal(rec)
	if err != nil {
		return "", fmt.Errorf("marshal session: %w", err)
	}
	signed, err := jws.Sign(payload, jws.WithKey(jwa.HS256, c.signKey))
	if err != nil {
		return "", fmt.Errorf("sign session: %w", err)
	}
	encrypted, err := jwe.Encrypt(signed, jwe.WithKey(jwa.DIRECT, c.encKey), jwe.WithContentEncryption(jwa.A256GCM))
	if err != nil {
		return "", fmt.Errorf("encrypt session: %w", err)
	}
	return string(encrypted), nil
}

func (c *codec) decode(value string) (*SessionRecord, error) {
	signed, err := jwe.Decrypt([]byte(value), jwe.WithKey(jwa.DIRECT, c.encKey))
	if err != nil {
		return nil, fmt.Errorf("decrypt session: %w", err)
	}
	payload, err := jws.Verify(signed, jws.WithKey(jwa.HS256, c.signKey))
	if err != nil {
		return nil, fmt.Errorf("verify session: %w", err)
	}
	var rec SessionRecord
	if err := json.Unmarshal(payload, &rec); err != nil {
		return nil, fmt.Errorf("unmarshal session: %w", err)
	}
	if rec.AccessToken == "" || rec.User.ID == "" {
		return nil, errors.New("session record is incomplete")
	}
	return &rec, nil
}
