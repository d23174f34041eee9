package token

import (
	"errors"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"

	"github.com/lazytech/jjc-console/internal/domain"
)

// Lifetime classes accepted by Issue. The short aliases exist because
// callers historically passed raw duration labels instead of class names.
const (
	ClassShort  = "short"
	ClassMedium = "medium"
	ClassLong   = "long"
)

// Codec issues and decodes session tokens. The wire shape is the compact
// three-part header.payload.signature form with an HS256 signature over
// header+payload and the process-wide secret.
type Codec struct {
	secret []byte
	now    func() time.Time
}

// NewCodec builds a codec around the shared signing secret.
func NewCodec(secret string) *Codec {
	return &Codec{secret: []byte(secret), now: time.Now}
}

// Lifetime maps a lifetime class to its duration. Unrecognized classes
// fall back to short rather than failing the login that asked for them.
func Lifetime(class string) time.Duration {
	switch class {
	case ClassShort, "1h":
		return time.Hour
	case ClassMedium, "24h", "1d":
		return 24 * time.Hour
	case ClassLong, "7d":
		return 7 * 24 * time.Hour
	default:
		return time.Hour
	}
}

// Issue stamps issued-at and expiry onto the claims and signs the result.
// The input claims are not mutated; a token is always a fresh string.
func (c *Codec) Issue(claims domain.Claims, class string) (string, error) {
	now := c.now()
	payload := make(jwt.MapClaims, len(claims)+2)
	for k, v := range claims {
		payload[k] = v
	}
	payload["iat"] = now.Unix()
	payload["exp"] = now.Add(Lifetime(class)).Unix()

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, payload).SignedString(c.secret)
	if err != nil {
		return "", err
	}
	return signed, nil
}

// Decode verifies a token and returns its claims. It returns nil for a
// malformed structure, a bad signature, or an expiry at or before now;
// callers cannot (and must not) tell those cases apart. This is the only
// place expiry is enforced.
func (c *Codec) Decode(tok string) domain.Claims {
	parsed, err := jwt.ParseWithClaims(tok, jwt.MapClaims{}, func(t *jwt.Token) (interface{}, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("unexpected signing method")
		}
		return c.secret, nil
	}, jwt.WithTimeFunc(c.now))
	if err != nil || !parsed.Valid {
		return nil
	}

	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return nil
	}
	return domain.Claims(claims)
}
