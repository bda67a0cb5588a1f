package proc

import (
	"path/filepath"
	"strings"
)

// electronHostNames are executable names of known embedding host processes.
// Matching is on the short name so packaged apps (VS Code, Slack, generic
// electron binaries) are recognized regardless of install location.
var electronHostNames = []string{
	"electron",
	"code",
	"code-oss",
	"code - oss",
	"vscodium",
	"code helper",
	"code helper (renderer)",
}

// IsElectronHost reports whether a process looks like an Electron embedding
// host. The flag affects display and attach affordances only; it plays no
// part in tree reconciliation.
func IsElectronHost(name, command string) bool {
	short := strings.ToLower(name)
	if short == "" {
		fields := strings.Fields(command)
		if len(fields) > 0 {
			short = strings.ToLower(filepath.Base(fields[0]))
		}
	}
	short = strings.TrimSuffix(short, ".exe")

	// Forked electron children (renderer, gpu, utility) identify themselves
	// with --type=...; they are workers, not hosts.
	if strings.Contains(command, "--type=") {
		return false
	}

	for _, host := range electronHostNames {
		if short == host {
			return true
		}
	}
	return false
}
