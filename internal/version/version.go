package version

// Version is the current version of the classroom client.
// This value can be overridden at build time using:
//   go build -ldflags="-X 'github.com/ishaan-arora-1/classroom-live/internal/version.Version=v1.0.0'"
var Version = "dev"
