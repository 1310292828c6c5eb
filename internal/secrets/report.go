package secrets

import (
	"fmt"
	"io"
	"strings"

	"github.com/deploymenttheory/hms-setup/internal/common/cryptoutil"
)

const (
	// GeminiPlaceholder stands in for the Gemini API key, which must be requested manually
	GeminiPlaceholder = "your-actual-gemini-api-key-here"

	geminiKeyURL = "https://makersuite.google.com/app/apikey"
)

// ReportOptions controls the parts of the report that are not generated
type ReportOptions struct {
	FrontendAPIURL string
}

// Report writes the human-readable secrets report, including the blocks to
// copy into each service's .env file.
func Report(w io.Writer, b *Bundle, opts ReportOptions) {
	rule := strings.Repeat("=", 60)

	fmt.Fprintln(w, "🔐 Generating Secret Keys for Hospital Management System")
	fmt.Fprintln(w, rule)

	fmt.Fprintln(w, "\n📋 Django Secret Key:")
	fmt.Fprintf(w, "SECRET_KEY=%s\n", b.SecretKey)

	fmt.Fprintln(w, "\n🔑 JWT Secret Key:")
	fmt.Fprintf(w, "JWT_SECRET=%s\n", b.JWTSecret)

	fmt.Fprintln(w, "\n🗄️  MongoDB Connection:")
	fmt.Fprintf(w, "MONGODB_URI=%s\n", b.MongoURI)

	fmt.Fprintln(w, "\n🤖 Gemini API Key:")
	fmt.Fprintf(w, "GEMINI_API_KEY=%s\n", GeminiPlaceholder)
	fmt.Fprintf(w, "(Get this from: %s)\n", geminiKeyURL)

	fmt.Fprintln(w, "\n"+rule)
	fmt.Fprintln(w, "📝 Copy these keys to your .env files:")

	for _, block := range EnvFiles(b, opts) {
		fmt.Fprintf(w, "\n%s:\n", block.Path)
		for _, line := range block.Lines {
			fmt.Fprintln(w, line)
		}
	}

	fmt.Fprintln(w, "\n🔎 Fingerprints (to verify copied values):")
	fmt.Fprintf(w, "SECRET_KEY %s (%s)\n", cryptoutil.Fingerprint(b.SecretKey), b.Strategy)
	fmt.Fprintf(w, "JWT_SECRET %s\n", cryptoutil.Fingerprint(b.JWTSecret))

	fmt.Fprintln(w, "\n🎯 All secret keys generated successfully!")
	fmt.Fprintln(w, "⚠️  Keep these keys secure and never commit them to version control!")
}

// EnvFile is the content destined for one service's .env file
type EnvFile struct {
	Path  string
	Lines []string
}

// EnvFiles lists the .env blocks for the ML service, the backend and the frontend
func EnvFiles(b *Bundle, opts ReportOptions) []EnvFile {
	apiURL := opts.FrontendAPIURL
	if apiURL == "" {
		apiURL = "http://localhost:8000/api"
	}

	return []EnvFile{
		{
			Path: "ml_services/.env",
			Lines: []string{
				"SECRET_KEY=" + b.SecretKey,
				"GEMINI_API_KEY=" + GeminiPlaceholder,
			},
		},
		{
			Path: "backend/.env",
			Lines: []string{
				"JWT_SECRET=" + b.JWTSecret,
				"MONGODB_URI=" + b.MongoURI,
			},
		},
		{
			Path: "frontend/.env",
			Lines: []string{
				"VITE_API_BASE_URL=" + apiURL,
			},
		},
	}
}
