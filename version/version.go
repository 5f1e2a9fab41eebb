package version

var (
	// Version is set at build time via -ldflags.
	Version = "dev"
	// GitHash is set at build time via -ldflags.
	GitHash = "unknown"
)

// Get returns the full version string.
func Get() string {
	return Version + " (" + GitHash + ")"
}
