package cryptox

import (
	"os"
	"strings"
	"sync"
)

var (
	pepperMu   sync.RWMutex
	pepperPath string
	pepperOnce sync.Once
	pepper     string
)

// SetPepperPath configures the file the pepper is read from. Call this once
// during startup, before any password is hashed or verified.
func SetPepperPath(path string) {
	pepperMu.Lock()
	defer pepperMu.Unlock()
	pepperPath = path
}

// GetPepper returns the process-wide pepper mixed into password hashes.
// The pepper file is read once; a missing or unreadable file yields an empty
// pepper, which keeps dev setups working without one.
func GetPepper() string {
	pepperOnce.Do(func() {
		pepperMu.RLock()
		path := pepperPath
		pepperMu.RUnlock()

		if path == "" {
			return
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return
		}
		pepper = strings.TrimSpace(string(data))
	})
	return pepper
}
