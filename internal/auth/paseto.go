package auth

import (
	"errors"
	"fmt"
	"time"

	"aidanwoods.dev/go-paseto"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token has expired")
)

const sessionIDClaim = "sid"

// PasetoService seals session tokens into PASETO v4.local envelopes
// (symmetric encryption with XChaCha20-Poly1305). The envelope holds only the
// random session id.
type PasetoService struct {
	symmetricKey paseto.V4SymmetricKey
}

func NewPasetoService(symmetricKey []byte) (*PasetoService, error) {
	if len(symmetricKey) != 32 {
		return nil, fmt.Errorf("symmetric key must be exactly 32 bytes, got %d", len(symmetricKey))
	}

	key, err := paseto.V4SymmetricKeyFromBytes(symmetricKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create symmetric key: %w", err)
	}

	return &PasetoService{
		symmetricKey: key,
	}, nil
}

// Seal encrypts sessionToken into an envelope that expires with the session
func (s *PasetoService) Seal(sessionToken string, expiresAt time.Time) (string, error) {
	if sessionToken == "" {
		return "", ErrInvalidToken
	}

	token := paseto.NewToken()
	token.SetIssuedAt(time.Now())
	token.SetExpiration(expiresAt)
	token.SetString(sessionIDClaim, sessionToken)

	return token.V4Encrypt(s.symmetricKey, nil), nil
}

// Open decrypts an envelope and returns the session token inside it
func (s *PasetoService) Open(sealed string) (string, error) {
	parser := paseto.NewParser()

	token, err := parser.ParseV4Local(s.symmetricKey, sealed, nil)
	if err != nil {
		// The parser checks expiration by default; distinguish expired from invalid
		if errors.Is(err, &paseto.RuleError{}) {
			return "", ErrExpiredToken
		}
		return "", ErrInvalidToken
	}

	sessionToken, err := token.GetString(sessionIDClaim)
	if err != nil || sessionToken == "" {
		return "", ErrInvalidToken
	}

	return sessionToken, nil
}
