package identity

import (
	"context"
	"crypto/rsa"
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"

	"echo-service/internal/apperrors"
)

// Verifier turns a bearer credential into the provider's subject id.
type Verifier interface {
	ValidateToken(ctx context.Context, token string) (string, error)
}

// JWTVerifier validates provider-issued session tokens signed with either a
// shared HMAC secret or an RSA key.
type JWTVerifier struct {
	hmacSecret []byte
	rsaKey     *rsa.PublicKey
	parser     *jwt.Parser
}

type VerifierConfig struct {
	HMACSecret      string
	RSAPublicKeyPEM string
	Issuer          string
	Audience        string
}

func NewJWTVerifier(cfg VerifierConfig) (*JWTVerifier, error) {
	v := &JWTVerifier{}
	switch {
	case cfg.RSAPublicKeyPEM != "":
		key, err := jwt.ParseRSAPublicKeyFromPEM([]byte(cfg.RSAPublicKeyPEM))
		if err != nil {
			return nil, fmt.Errorf("parse rsa public key: %w", err)
		}
		v.rsaKey = key
	case cfg.HMACSecret != "":
		v.hmacSecret = []byte(cfg.HMACSecret)
	default:
		return nil, errors.New("no token verification key configured")
	}

	opts := []jwt.ParserOption{jwt.WithExpirationRequired()}
	if cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(cfg.Issuer))
	}
	if cfg.Audience != "" {
		opts = append(opts, jwt.WithAudience(cfg.Audience))
	}
	v.parser = jwt.NewParser(opts...)
	return v, nil
}

// ValidateToken verifies the signature and registered claims and returns the
// subject. Every failure is Unauthenticated.
func (v *JWTVerifier) ValidateToken(ctx context.Context, token string) (string, error) {
	if token == "" {
		return "", apperrors.Unauthenticated("missing token")
	}

	claims := &jwt.RegisteredClaims{}
	parsed, err := v.parser.ParseWithClaims(token, claims, v.keyFunc)
	if err != nil || !parsed.Valid {
		return "", apperrors.Wrap(apperrors.KindUnauthenticated, "invalid or expired token", err)
	}
	if claims.Subject == "" {
		return "", apperrors.Unauthenticated("token has no subject")
	}
	return claims.Subject, nil
}

func (v *JWTVerifier) keyFunc(token *jwt.Token) (interface{}, error) {
	if v.rsaKey != nil {
		if _, ok := token.Method.(*jwt.SigningMethodRSA); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return v.rsaKey, nil
	}
	if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
		return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
	}
	return v.hmacSecret, nil
}
