// Package biblia holds build metadata shared by the binaries.
package biblia

// Version is the release version. Release builds override it with
// -ldflags "-X github.com/mesh-intelligence/biblia/pkg/biblia.Version=...".
var Version = "0.1.0"

// ModulePath is the Go module path.
const ModulePath = "github.com/mesh-intelligence/biblia"
