package secrets

import (
	"bytes"
	"context"
	"encoding/hex"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/deploymenttheory/hms-setup/internal/common/cryptoutil"
	apperrors "github.com/deploymenttheory/hms-setup/internal/common/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeInterpreter writes an executable that answers every invocation with
// the given key, standing in for a Python with Django installed.
func fakeInterpreter(t *testing.T, key string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "fake-python")
	script := "#!/bin/sh\necho '" + key + "'\n"
	require.NoError(t, os.WriteFile(path, []byte(script), 0o755))
	return path
}

func TestGenerate_FreshValuesEachCall(t *testing.T) {
	g := &Generator{}

	first, err := g.Generate(context.Background())
	require.NoError(t, err)
	second, err := g.Generate(context.Background())
	require.NoError(t, err)

	assert.NotEqual(t, first.SecretKey, second.SecretKey)
	assert.NotEqual(t, first.JWTSecret, second.JWTSecret)
	assert.Equal(t, first.MongoURI, second.MongoURI)
	assert.Equal(t, DefaultMongoURI, first.MongoURI)
	assert.Equal(t, "fallback", first.Strategy)
}

func TestGenerate_CustomMongoURI(t *testing.T) {
	g := &Generator{MongoURI: "mongodb://db:27017/hms"}

	b, err := g.Generate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "mongodb://db:27017/hms", b.MongoURI)
}

func TestFallbackStrategy_Alphabet(t *testing.T) {
	key, err := FallbackStrategy{}.Generate(context.Background())
	require.NoError(t, err)

	assert.Len(t, key, SecretKeyLength)
	for _, r := range key {
		assert.True(t, strings.ContainsRune(FallbackAlphabet, r), "unexpected rune %q", r)
	}
}

func TestFallbackStrategy_EntropyFailure(t *testing.T) {
	_, err := FallbackStrategy{Random: bytes.NewReader(nil)}.Generate(context.Background())
	assert.ErrorIs(t, err, apperrors.ErrEntropyUnavailable)
}

func TestJWTSecret(t *testing.T) {
	token, err := JWTSecret(nil)
	require.NoError(t, err)

	assert.Len(t, token, JWTSecretBytes*2)
	decoded, err := hex.DecodeString(token)
	require.NoError(t, err)
	assert.Len(t, decoded, JWTSecretBytes)

	_, err = JWTSecret(bytes.NewReader(make([]byte, JWTSecretBytes-1)))
	assert.ErrorIs(t, err, apperrors.ErrEntropyUnavailable)
}

func TestSelectStrategy_FallsBackWithoutDjango(t *testing.T) {
	s := SelectStrategy(context.Background(), "definitely-not-a-real-python-hms")
	assert.IsType(t, FallbackStrategy{}, s)

	s = SelectStrategy(context.Background(), "")
	assert.IsType(t, FallbackStrategy{}, s)
}

func TestSelectStrategy_PrefersDjango(t *testing.T) {
	key := strings.Repeat("k", SecretKeyLength)
	interpreter := fakeInterpreter(t, key)

	s := SelectStrategy(context.Background(), interpreter)
	require.IsType(t, DjangoStrategy{}, s)

	got, err := s.Generate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, key, got)
	assert.Equal(t, "django", s.Name())
}

func TestSelectStrategy_InterpreterPathWithSpaces(t *testing.T) {
	key := strings.Repeat("v", SecretKeyLength)
	dir := filepath.Join(t.TempDir(), "My Projects", "venv", "bin")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	interpreter := filepath.Join(dir, "python")
	require.NoError(t, os.Rename(fakeInterpreter(t, key), interpreter))

	s := SelectStrategy(context.Background(), interpreter)
	require.IsType(t, DjangoStrategy{}, s)

	got, err := s.Generate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, key, got)
}

func TestDjangoStrategy_RejectsShortKey(t *testing.T) {
	s := DjangoStrategy{Interpreter: fakeInterpreter(t, "short")}

	_, err := s.Generate(context.Background())
	assert.ErrorIs(t, err, apperrors.ErrSecretGeneration)
}

func TestReport(t *testing.T) {
	b := &Bundle{
		SecretKey: strings.Repeat("s", SecretKeyLength),
		JWTSecret: strings.Repeat("ab", JWTSecretBytes),
		MongoURI:  DefaultMongoURI,
		Strategy:  "fallback",
	}
	var out bytes.Buffer

	Report(&out, b, ReportOptions{})

	report := out.String()
	assert.Contains(t, report, "SECRET_KEY="+b.SecretKey)
	assert.Contains(t, report, "JWT_SECRET="+b.JWTSecret)
	assert.Contains(t, report, "MONGODB_URI=mongodb://localhost:27017/hospital_db")
	assert.Contains(t, report, "GEMINI_API_KEY="+GeminiPlaceholder)
	assert.Contains(t, report, "ml_services/.env:")
	assert.Contains(t, report, "backend/.env:")
	assert.Contains(t, report, "frontend/.env:\nVITE_API_BASE_URL=http://localhost:8000/api")
	assert.Contains(t, report, cryptoutil.Fingerprint(b.SecretKey))
	assert.Contains(t, report, "🎯 All secret keys generated successfully!")
}

func TestEnvFiles_CustomAPIURL(t *testing.T) {
	files := EnvFiles(&Bundle{}, ReportOptions{FrontendAPIURL: "https://hms.example/api"})

	require.Len(t, files, 3)
	assert.Equal(t, "frontend/.env", files[2].Path)
	assert.Equal(t, []string{"VITE_API_BASE_URL=https://hms.example/api"}, files[2].Lines)
}
