// Package secrets generates the placeholder credentials printed for the
// Hospital Management System .env files.
package secrets

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"

	apperrors "github.com/deploymenttheory/hms-setup/internal/common/errors"
)

const (
	// JWTSecretBytes is the number of random bytes in a JWT secret
	JWTSecretBytes = 64

	// DefaultMongoURI is the connection string template for a local MongoDB
	DefaultMongoURI = "mongodb://localhost:27017/hospital_db"
)

// Bundle holds one set of generated values
type Bundle struct {
	SecretKey string
	JWTSecret string
	MongoURI  string
	Strategy  string
}

// Generator produces Bundles. Zero values fall back to the fallback
// strategy, crypto/rand and DefaultMongoURI.
type Generator struct {
	Strategy Strategy
	Random   io.Reader
	MongoURI string
}

// Generate returns freshly generated values. Every call yields a new
// SecretKey and JWTSecret; MongoURI is constant.
func (g *Generator) Generate(ctx context.Context) (*Bundle, error) {
	strategy := g.Strategy
	if strategy == nil {
		strategy = FallbackStrategy{Random: g.Random}
	}

	secretKey, err := strategy.Generate(ctx)
	if err != nil {
		return nil, err
	}

	jwtSecret, err := JWTSecret(g.Random)
	if err != nil {
		return nil, err
	}

	mongoURI := g.MongoURI
	if mongoURI == "" {
		mongoURI = DefaultMongoURI
	}

	return &Bundle{
		SecretKey: secretKey,
		JWTSecret: jwtSecret,
		MongoURI:  mongoURI,
		Strategy:  strategy.Name(),
	}, nil
}

// JWTSecret returns JWTSecretBytes random bytes, hex encoded
func JWTSecret(random io.Reader) (string, error) {
	if random == nil {
		random = rand.Reader
	}

	buf := make([]byte, JWTSecretBytes)
	if _, err := io.ReadFull(random, buf); err != nil {
		return "", fmt.Errorf("%w: %v", apperrors.ErrEntropyUnavailable, err)
	}
	return hex.EncodeToString(buf), nil
}
