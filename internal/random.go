package internal

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"errors"
)

// SessionID identifies one provider-side session.
type SessionID [16]byte

// RefreshSecret is the random part of a refresh token.
type RefreshSecret [32]byte

const refreshTokenRawSize = len(SessionID{}) + len(RefreshSecret{})

// ErrMalformedRefreshToken is returned for tokens that do not decode.
var ErrMalformedRefreshToken = errors.New("malformed refresh token")

func NewSessionID() (SessionID, error) {
	var sid SessionID
	_, err := rand.Read(sid[:])
	return sid, err
}

func (s SessionID) String() string {
	return base64.RawURLEncoding.EncodeToString(s[:])
}

func NewRefreshSecret() (RefreshSecret, error) {
	var secret RefreshSecret
	_, err := rand.Read(secret[:])
	return secret, err
}

func (s RefreshSecret) Hash() [32]byte {
	return sha256.Sum256(s[:])
}

// HashesEqual compares two secret hashes in constant time.
func HashesEqual(a, b [32]byte) bool {
	return subtle.ConstantTimeCompare(a[:], b[:]) == 1
}

func EncodeRefreshToken(sid SessionID, secret RefreshSecret) string {
	var raw [refreshTokenRawSize]byte
	copy(raw[:len(sid)], sid[:])
	copy(raw[len(sid):], secret[:])
	return base64.RawURLEncoding.EncodeToString(raw[:])
}

func DecodeRefreshToken(token string) (SessionID, RefreshSecret, error) {
	var (
		sid    SessionID
		secret RefreshSecret
	)

	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil || len(raw) != refreshTokenRawSize {
		return sid, secret, ErrMalformedRefreshToken
	}

	copy(sid[:], raw[:len(sid)])
	copy(secret[:], raw[len(sid):])
	return sid, secret, nil
}

// IssueRefreshToken creates a fresh secret for sid and returns the encoded
// token and the hash to retain.
func IssueRefreshToken(sid SessionID) (string, [32]byte, error) {
	secret, err := NewRefreshSecret()
	if err != nil {
		return "", [32]byte{}, err
	}
	return EncodeRefreshToken(sid, secret), secret.Hash(), nil
}
