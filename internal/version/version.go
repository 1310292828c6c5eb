package version

// Version is the release version, overridden at build time with
// -ldflags "-X github.com/deploymenttheory/hms-setup/internal/version.Version=..."
var Version = "0.1.0"
