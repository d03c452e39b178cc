package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	ErrNonceSecretMissing = errors.New("NONCE_SECRET_KEY not configured")
	ErrNonceInvalid       = errors.New("invalid or expired nonce")
	ErrNonceAction        = errors.New("nonce issued for another action")
)

// NonceClaims represents the claims in a form/AJAX nonce.
type NonceClaims struct {
	Action       string   `json:"action"`
	Capabilities []string `json:"caps"`
	jwt.RegisteredClaims
}

func (c *NonceClaims) Can(capability string) bool {
	for _, cap := range c.Capabilities {
		if cap == capability {
			return true
		}
	}
	return false
}

type Nonces struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewNonces(secret []byte, ttl time.Duration) *Nonces {
	if ttl <= 0 {
		ttl = 12 * time.Hour
	}
	return &Nonces{secret: secret, ttl: ttl, now: time.Now}
}

// Issue signs a nonce bound to user and action.
func (n *Nonces) Issue(user string, action string, capabilities ...string) (string, error) {
	if len(n.secret) == 0 {
		return "", ErrNonceSecretMissing
	}

	now := n.now()
	claims := NonceClaims{
		Action:       action,
		Capabilities: capabilities,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   user,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(n.ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(n.secret)
}

// Verify checks signature, expiry, action and subject.
func (n *Nonces) Verify(tokenString string, user string, action string) (*NonceClaims, error) {
	if len(n.secret) == 0 {
		return nil, ErrNonceSecretMissing
	}

	token, err := jwt.ParseWithClaims(tokenString, &NonceClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("invalid signing method")
		}
		return n.secret, nil
	}, jwt.WithTimeFunc(n.now), jwt.WithSubject(user))
	if err != nil {
		return nil, ErrNonceInvalid
	}

	claims, ok := token.Claims.(*NonceClaims)
	if !ok || !token.Valid {
		return nil, ErrNonceInvalid
	}
	if claims.Action != action {
		return nil, ErrNonceAction
	}
	return claims, nil
}
