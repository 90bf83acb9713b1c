// Package caremap parses the care-map file left behind by an A/B OTA: the
// list of block devices and block ranges the post-boot verifier must read
// through before the slot can be marked successful.
package caremap

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	ota_errors "github.com/otacore/recovery/pkg/errors"
)

// DefaultPath is where the update writer leaves the care map.
const DefaultPath = "/data/ota_package/care_map.txt"

// ErrMalformed is returned when the care map exists but, once surrounding
// whitespace is trimmed, does not hold exactly 2 or 4 lines. Blank lines
// between other lines are counted, not rejected.
var ErrMalformed = errors.New("caremap: malformed care map")

// Entry pairs a block-device prefix (slot suffix not yet applied) with its
// unparsed range specification.
type Entry struct {
	DevicePrefix string
	RangeSpec    string
}

// Read parses the care map at path. A missing file is not a failure: the
// device may have been flashed rather than updated, so there is nothing to
// verify and Read returns no entries.
func Read(path string) ([]Entry, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			slog.Warn("care_map_missing", "path", path)
			return nil, nil
		}
		return nil, ota_errors.Wrap(err, "failed to read care map")
	}

	lines := strings.Split(strings.TrimSpace(string(raw)), "\n")
	if len(lines) != 2 && len(lines) != 4 {
		slog.Error("care_map_invalid_line_count", "path", path, "lines", len(lines))
		return nil, fmt.Errorf("%w: found %d lines, expecting 2 or 4", ErrMalformed, len(lines))
	}

	entries := make([]Entry, 0, len(lines)/2)
	for i := 0; i < len(lines); i += 2 {
		entries = append(entries, Entry{
			DevicePrefix: strings.TrimSpace(lines[i]),
			RangeSpec:    strings.TrimSpace(lines[i+1]),
		})
	}

	slog.Info("care_map_loaded", "path", path, "partitions", len(entries))
	return entries, nil
}
