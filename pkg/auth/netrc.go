package auth

import (
	"os"
	"path/filepath"

	"github.com/bgentry/go-netrc/netrc"
)

// netrcLookup finds machine credentials for host in the netrc file at
// path (default ~/.netrc). Missing or unreadable files are treated as
// no credentials, not as errors.
func netrcLookup(path, host string) (username, password string, ok bool) {
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", "", false
		}
		path = filepath.Join(home, ".netrc")
	}

	n, err := netrc.ParseFile(path)
	if err != nil {
		return "", "", false
	}
	m := n.FindMachine(host)
	if m == nil || m.IsDefault() {
		return "", "", false
	}
	if m.Login == "" || m.Password == "" {
		return "", "", false
	}
	return m.Login, m.Password, true
}
