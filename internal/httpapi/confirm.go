package httpapi

import (
	"crypto/rand"
	"errors"
	"fmt"
	"sync"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"

	"salesjournal/internal/xid"
)

const (
	ActionClearTransactions = "transactions.clear"
	confirmIssuer           = "salesjournal"
)

var ErrConfirmationRequired = errors.New("confirmation required")

// Confirmations issues single-use, short-lived tokens that destructive
// endpoints require in the X-Confirm-Token header.
type Confirmations struct {
	mu     sync.Mutex
	secret []byte
	ttl    time.Duration
	now    func() time.Time
	used   map[string]time.Time
}

type confirmClaims struct {
	jwtlib.RegisteredClaims
	Action string `json:"action"`
}

// NewConfirmations signs with secret, or with a random per-process key when
// secret is empty.
func NewConfirmations(secret string, ttl time.Duration) (*Confirmations, error) {
	key := []byte(secret)
	if len(key) == 0 {
		key = make([]byte, 32)
		if _, err := rand.Read(key); err != nil {
			return nil, fmt.Errorf("generate confirmation key: %w", err)
		}
	}
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &Confirmations{
		secret: key,
		ttl:    ttl,
		now:    time.Now,
		used:   make(map[string]time.Time),
	}, nil
}

func (c *Confirmations) Issue(action string) (string, time.Time, error) {
	now := c.now().UTC()
	expiresAt := now.Add(c.ttl)
	claims := confirmClaims{
		RegisteredClaims: jwtlib.RegisteredClaims{
			ID:        xid.New("confirm"),
			Issuer:    confirmIssuer,
			IssuedAt:  jwtlib.NewNumericDate(now),
			ExpiresAt: jwtlib.NewNumericDate(expiresAt),
		},
		Action: action,
	}
	token, err := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims).SignedString(c.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return token, expiresAt, nil
}

// Verify accepts a token issued for action exactly once.
func (c *Confirmations) Verify(tokenStr string, action string) error {
	if tokenStr == "" {
		return fmt.Errorf("%w: missing X-Confirm-Token header", ErrConfirmationRequired)
	}

	claims := &confirmClaims{}
	token, err := jwtlib.ParseWithClaims(tokenStr, claims, func(t *jwtlib.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwtlib.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return c.secret, nil
	},
		jwtlib.WithValidMethods([]string{"HS256"}),
		jwtlib.WithIssuer(confirmIssuer),
		jwtlib.WithExpirationRequired(),
		jwtlib.WithTimeFunc(c.now),
	)
	if err != nil || !token.Valid {
		return fmt.Errorf("%w: invalid or expired token", ErrConfirmationRequired)
	}
	if claims.Action != action {
		return fmt.Errorf("%w: token was issued for %q", ErrConfirmationRequired, claims.Action)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	for id, expiry := range c.used {
		if now.After(expiry) {
			delete(c.used, id)
		}
	}
	if _, seen := c.used[claims.ID]; seen {
		return fmt.Errorf("%w: token already used", ErrConfirmationRequired)
	}
	c.used[claims.ID] = claims.ExpiresAt.Time
	return nil
}
