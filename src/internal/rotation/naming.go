// FILE: mavlog/src/internal/rotation/naming.go
package rotation

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// TimestampedPath embeds t into basePath ahead of the extension, with
// millisecond precision and no colons, so base names stay unique across
// process restarts: "flight.mav" becomes
// "flight-2026-01-02T15-04-05.000.mav". The rotation logic itself does not
// depend on this.
func TimestampedPath(basePath string, t time.Time) string {
	ext := filepath.Ext(basePath)
	stem := strings.TrimSuffix(basePath, ext)
	return fmt.Sprintf("%s-%s%s", stem, t.Format("2006-01-02T15-04-05.000"), ext)
}

// Sequence lists the on-disk files for basePath ordered oldest to newest:
// highest suffix first, the unsuffixed active file last. Suffixes are
// probed upward from 0 until a gap, mirroring how rotation numbers them.
func Sequence(basePath string) ([]string, error) {
	var retired []string
	for i := 0; ; i++ {
		p := fmt.Sprintf("%s.%d", basePath, i)
		if _, err := os.Stat(p); err != nil {
			if os.IsNotExist(err) {
				break
			}
			return nil, fmt.Errorf("stat %s: %w", p, err)
		}
		retired = append(retired, p)
	}

	out := make([]string, 0, len(retired)+1)
	for i := len(retired) - 1; i >= 0; i-- {
		out = append(out, retired[i])
	}
	if _, err := os.Stat(basePath); err == nil {
		out = append(out, basePath)
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("stat %s: %w", basePath, err)
	}
	return out, nil
}
