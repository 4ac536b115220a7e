package version

// Version is the running application version, overridden at build time via
// -ldflags "-X rollcall/internal/version.Version=...".
var Version = "0.1.0"

// Info reports the running version and whether an update is available.
type Info struct {
	Version         string `json:"version"`
	UpdateAvailable bool   `json:"update_available"`
}

// Current returns the version info. No update channel is wired, so
// UpdateAvailable is always false.
func Current() Info {
	return Info{Version: Version, UpdateAvailable: checkForUpdates()}
}

func checkForUpdates() bool {
	return false
}
