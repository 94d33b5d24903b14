// internal/session/token.go
//
// Formstate – stateless submit tokens.
//
// Context
//   A client proves it opened a session before it may submit it.  Create
//   hands out a token bound to the session ID; the submit endpoint checks it
//   from the X-Form-Token header.  The token carries everything needed to
//   verify it:
//
//      base64url( nonce | unixMicro | HMAC_SHA256(key, sessionID | nonce | unixMicro) )
//
//   •  nonce      16 random bytes, so two tokens for one session differ.
//   •  unixMicro  8 bytes, big-endian.  Checked against MaxAge.
//   •  HMAC       binds the token to the session and the server key.
//
//------------------------------------------------------------------------------

package session

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/binary"
	"errors"
	"time"

	"go.uber.org/zap"
)

const (
	nonceBytes = 16
	tokenBytes = nonceBytes + 8 + sha256.Size

	// MaxAge bounds how long a token stays valid.
	MaxAge = 24 * time.Hour

	// clockSkew tolerates tokens issued slightly in the future.
	clockSkew = time.Minute
)

// Signer issues and verifies submit tokens.
type Signer struct {
	key []byte
}

// NewSigner returns a Signer keyed by secret.  An empty secret generates a
// random key, so tokens do not survive a restart.
func NewSigner(secret string) (*Signer, error) {
	if secret != "" {
		return &Signer{key: []byte(secret)}, nil
	}
	key := make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		return nil, err
	}
	zap.S().Warnw("http.token_secret not set, using an ephemeral token key")
	return &Signer{key: key}, nil
}

// Issue creates a token for sessionID.
func (s *Signer) Issue(sessionID string, now time.Time) (string, error) {
	if sessionID == "" {
		return "", errors.New("session: empty session id")
	}

	buf := make([]byte, nonceBytes+8, tokenBytes)
	if _, err := rand.Read(buf[:nonceBytes]); err != nil {
		return "", err
	}
	binary.BigEndian.PutUint64(buf[nonceBytes:], uint64(now.UnixMicro()))
	buf = append(buf, s.sign(sessionID, buf)...)

	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// Verify returns true if tok was issued for sessionID and is neither older
// than MaxAge nor from the future.
func (s *Signer) Verify(sessionID, tok string, now time.Time) bool {
	raw, err := base64.RawURLEncoding.DecodeString(tok)
	if err != nil || len(raw) != tokenBytes {
		return false
	}

	head, sig := raw[:nonceBytes+8], raw[nonceBytes+8:]
	issued := time.UnixMicro(int64(binary.BigEndian.Uint64(head[nonceBytes:])))
	if now.Sub(issued) > MaxAge || issued.Sub(now) > clockSkew {
		return false
	}

	return hmac.Equal(sig, s.sign(sessionID, head))
}

func (s *Signer) sign(sessionID string, head []byte) []byte {
	mac := hmac.New(sha256.New, s.key)
	mac.Write([]byte(sessionID))
	mac.Write(head)
	return mac.Sum(nil)
}
