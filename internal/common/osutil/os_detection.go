package osutil

import (
	"os"
	"runtime"
)

// Windows is the GOOS value for Windows
const Windows = "windows"

// GetOSType returns the current operating system type
func GetOSType() string {
	return runtime.GOOS
}

// IsWindows returns true if running on Windows
func IsWindows() bool {
	return GetOSType() == Windows
}

// IsDevEnvironment checks if the application is running in a development environment
// based on environment variables
func IsDevEnvironment() bool {
	return os.Getenv("HMS_SETUP_ENV") == "development" ||
		os.Getenv("HMS_SETUP_DEV") == "true" ||
		os.Getenv("DEV") == "true"
}

// IsRunningInPipeline returns true if running in a CI/CD pipeline environment
func IsRunningInPipeline() bool {
	return os.Getenv("CI") == "true" ||
		os.Getenv("PIPELINE") == "true" ||
		os.Getenv("GITHUB_ACTIONS") == "true" ||
		os.Getenv("JENKINS_URL") != ""
}

// GoVersion returns the version of the Go runtime the binary was built with, e.g. "go1.24.1"
func GoVersion() string {
	return runtime.Version()
}
