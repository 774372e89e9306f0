package gate

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"outpass-backend/internal/model"
)

// TokenOptions configures a TokenCodec.
type TokenOptions struct {
	Secret string
	Issuer string
	// Grace extends a token's validity past the end of the pass window so a
	// late holder can still be checked back in.
	Grace time.Duration
	// AcceptPlainJSON also accepts unsigned {"id": "..."} payloads.
	AcceptPlainJSON bool
	Now             func() time.Time
}

// PassClaims are the claims carried by a pass token.
type PassClaims struct {
	Unit string `json:"unit,omitempty"`
	jwt.RegisteredClaims
}

// TokenCodec issues and verifies the payload rendered as the pass QR code.
type TokenCodec struct {
	secret      []byte
	issuer      string
	grace       time.Duration
	acceptPlain bool
	now         func() time.Time
}

func NewTokenCodec(opts TokenOptions) (*TokenCodec, error) {
	if strings.TrimSpace(opts.Secret) == "" {
		return nil, errors.New("token secret is not configured")
	}
	if opts.Issuer == "" {
		opts.Issuer = "outpass"
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &TokenCodec{
		secret:      []byte(opts.Secret),
		issuer:      opts.Issuer,
		grace:       opts.Grace,
		acceptPlain: opts.AcceptPlainJSON,
		now:         opts.Now,
	}, nil
}

// Issue signs a token for an approved pass whose holder has not returned.
// The token nominally expires at the end of the window plus the grace period;
// a holder who is still out past that gets a token valid for another grace
// period so they can be checked back in.
func (c *TokenCodec) Issue(p model.PassRequest) (string, time.Time, error) {
	if p.FinalStatus != model.DecisionApproved {
		return "", time.Time{}, fmt.Errorf("%w: pass %s is %s", ErrNotApproved, p.ID, p.FinalStatus)
	}
	if p.Presence() == model.PresenceReturned {
		return "", time.Time{}, fmt.Errorf("%w: pass %s", ErrAlreadyEntered, p.ID)
	}

	now := c.now().UTC()
	expires := p.WindowTo.Add(c.grace).UTC()
	if !expires.After(now) {
		if p.Presence() != model.PresenceOut {
			return "", time.Time{}, fmt.Errorf("%w: pass %s window has ended", ErrInvalidToken, p.ID)
		}
		expires = now.Add(c.grace)
	}
	claims := PassClaims{
		Unit: p.Unit,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    c.issuer,
			Subject:   p.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
			ID:        uuid.NewString(),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, expires, nil
}

// Scan extracts the pass id from a scanned payload. Only the signature and
// issuer are checked; expiry is informational for the holder's app, and the
// ledger decides whether the crossing is allowed.
func (c *TokenCodec) Scan(payload string) (string, error) {
	payload = strings.TrimSpace(payload)
	if payload == "" {
		return "", ErrInvalidToken
	}
	if strings.HasPrefix(payload, "{") {
		return c.scanPlain(payload)
	}

	claims := &PassClaims{}
	parsed, err := jwt.ParseWithClaims(payload, claims, func(*jwt.Token) (any, error) {
		return c.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithoutClaimsValidation(),
	)
	if err != nil || !parsed.Valid {
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.Issuer != c.issuer {
		return "", fmt.Errorf("%w: unexpected issuer %q", ErrInvalidToken, claims.Issuer)
	}
	if strings.TrimSpace(claims.Subject) == "" {
		return "", fmt.Errorf("%w: subject missing", ErrInvalidToken)
	}
	return claims.Subject, nil
}

func (c *TokenCodec) scanPlain(payload string) (string, error) {
	if !c.acceptPlain {
		return "", fmt.Errorf("%w: unsigned payloads are not accepted", ErrInvalidToken)
	}
	var body struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal([]byte(payload), &body); err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if strings.TrimSpace(body.ID) == "" {
		return "", fmt.Errorf("%w: id missing", ErrInvalidToken)
	}
	return strings.TrimSpace(body.ID), nil
}
