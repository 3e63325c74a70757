package session

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/sidilemine/InsightSprint-sub001/pkg/errorsx"
)

// Claims binds an access token to one session of one interview.
type Claims struct {
	SessionID   string `json:"session_id"`
	InterviewID string `json:"interview_id"`
	Email       string `json:"email"`
	jwt.RegisteredClaims
}

// TokenIssuer mints and verifies respondent access tokens.
type TokenIssuer struct {
	secret []byte
	ttl    time.Duration
}

func NewTokenIssuer(secret string, ttl time.Duration) *TokenIssuer {
	if ttl == 0 {
		ttl = 7 * 24 * time.Hour
	}
	return &TokenIssuer{secret: []byte(secret), ttl: ttl}
}

// Issue mints a signed token scoped to the given session.
func (ti *TokenIssuer) Issue(sessionID, interviewID, email string) (string, error) {
	now := time.Now()
	claims := Claims{
		SessionID:   sessionID,
		InterviewID: interviewID,
		Email:       email,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ti.ttl)),
			Subject:   email,
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(ti.secret)
	if err != nil {
		return "", errorsx.Wrap(fmt.Errorf("sign access token: %w", err), errorsx.ReasonSessionInvalidToken)
	}
	return signed, nil
}

// Verify parses and validates a token, returning its claims.
func (ti *TokenIssuer) Verify(tokenString string) (Claims, error) {
	var claims Claims
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return ti.secret, nil
	})
	if err != nil || !token.Valid {
		if err == nil {
			err = fmt.Errorf("token invalid")
		}
		return Claims{}, errorsx.Wrap(fmt.Errorf("verify access token: %w", err), errorsx.ReasonSessionInvalidToken)
	}
	if claims.SessionID == "" || claims.InterviewID == "" {
		return Claims{}, errorsx.Wrap(fmt.Errorf("token missing session binding"), errorsx.ReasonSessionInvalidToken)
	}
	return claims, nil
}
