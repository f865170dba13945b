package watcher

import (
	"path/filepath"
	"strings"
	"time"
)

// Options configures drop-folder watching behavior.
type Options struct {
	// SettleDelay is how long a file must stay unchanged (size and mtime)
	// before it is considered fully written and emitted.
	SettleDelay time.Duration

	// IgnoreHidden skips dotfiles.
	IgnoreHidden bool

	// IgnorePatterns are glob patterns matched against the base name.
	IgnorePatterns []string
}

func (o *Options) setDefaults() {
	if o.SettleDelay == 0 {
		o.SettleDelay = 500 * time.Millisecond
	}
	if o.IgnorePatterns == nil {
		o.IgnoreHidden = true
		o.IgnorePatterns = []string{".DS_Store", "*.tmp", "*.part", "*.crdownload", "*.swp"}
	}
}

// shouldIgnore reports whether a path is excluded from ingestion.
func (o *Options) shouldIgnore(path string) bool {
	base := filepath.Base(path)

	if o.IgnoreHidden && strings.HasPrefix(base, ".") {
		return true
	}
	for _, pattern := range o.IgnorePatterns {
		if matched, _ := filepath.Match(pattern, base); matched {
			return true
		}
	}
	return false
}
