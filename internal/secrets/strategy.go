package secrets

import (
	"context"
	"crypto/rand"
	"fmt"
	"io"
	"math/big"
	"strings"

	apperrors "github.com/deploymenttheory/hms-setup/internal/common/errors"
	"github.com/deploymenttheory/hms-setup/internal/logger"
	"github.com/deploymenttheory/hms-setup/internal/runner"
)

const (
	// SecretKeyLength is the length of a generated application secret
	SecretKeyLength = 50

	// FallbackAlphabet is ASCII letters, digits and punctuation
	FallbackAlphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ" +
		"0123456789" +
		"!\"#$%&'()*+,-./:;<=>?@[\\]^_`{|}~"

	djangoModule  = "django.core.management.utils"
	djangoProgram = "from " + djangoModule + " import get_random_secret_key; print(get_random_secret_key())"
)

// Strategy produces an application secret
type Strategy interface {
	Name() string
	Generate(ctx context.Context) (string, error)
}

// DjangoStrategy delegates to Django's own secret key routine through an
// external interpreter.
type DjangoStrategy struct {
	Interpreter string
}

func (DjangoStrategy) Name() string { return "django" }

// Available reports whether the interpreter can import Django's key routine
func (d DjangoStrategy) Available(ctx context.Context) bool {
	_, _, err := runner.Capture(ctx, runner.Command{
		Args: []string{d.Interpreter, "-c", "import " + djangoModule},
	})
	return err == nil
}

func (d DjangoStrategy) Generate(ctx context.Context) (string, error) {
	stdout, stderr, err := runner.Capture(ctx, runner.Command{
		Args: []string{d.Interpreter, "-c", djangoProgram},
	})
	if err != nil {
		return "", fmt.Errorf("%w: django: %v: %s", apperrors.ErrSecretGeneration, err, stderr)
	}

	key := strings.TrimSpace(stdout)
	if len(key) < SecretKeyLength || strings.ContainsAny(key, " \t\r\n") {
		return "", fmt.Errorf("%w: django returned an unusable key", apperrors.ErrSecretGeneration)
	}
	return key, nil
}

// FallbackStrategy draws SecretKeyLength characters uniformly from
// FallbackAlphabet. Random defaults to crypto/rand.
type FallbackStrategy struct {
	Random io.Reader
}

func (FallbackStrategy) Name() string { return "fallback" }

func (f FallbackStrategy) Generate(context.Context) (string, error) {
	return randomString(f.Random, FallbackAlphabet, SecretKeyLength)
}

// SelectStrategy runs the capability check once and returns the Django
// strategy when it is usable, the fallback otherwise.
func SelectStrategy(ctx context.Context, interpreter string) Strategy {
	if interpreter != "" {
		preferred := DjangoStrategy{Interpreter: interpreter}
		if preferred.Available(ctx) {
			logger.LogDebug("Using Django secret key routine", map[string]interface{}{
				"interpreter": interpreter,
			})
			return preferred
		}
	}

	logger.LogDebug("Django unavailable, using fallback secret generator", map[string]interface{}{
		"interpreter": interpreter,
	})
	return FallbackStrategy{}
}

func randomString(random io.Reader, alphabet string, length int) (string, error) {
	if random == nil {
		random = rand.Reader
	}

	limit := big.NewInt(int64(len(alphabet)))
	var b strings.Builder
	b.Grow(length)
	for i := 0; i < length; i++ {
		n, err := rand.Int(random, limit)
		if err != nil {
			return "", fmt.Errorf("%w: %v", apperrors.ErrEntropyUnavailable, err)
		}
		b.WriteByte(alphabet[n.Int64()])
	}
	return b.String(), nil
}
