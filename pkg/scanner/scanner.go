// Package scanner reads every block listed in a care-map range spec off a
// block device. The reads themselves are the verification: the dm-verity
// layer under the device fails any read of a corrupted block, so touching
// every listed block proves the partition intact.
package scanner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	ota_errors "github.com/otacore/recovery/pkg/errors"
)

// BlockSize is the verity block granularity in bytes.
const BlockSize = 4096

// readChunk bounds the scratch buffer for large ranges.
const readChunk = 1 << 20

// ErrInvalidRangeSpec is returned for a range spec whose count header or
// pair list violates the care-map contract.
var ErrInvalidRangeSpec = errors.New("scanner: invalid range spec")

// Range is one half-open block interval [Start, End).
type Range struct {
	Start int64
	End   int64
}

// ParseRangeSpec parses a comma-separated range spec: a leading count N
// (even, non-zero, equal to the number of integers that follow) and then
// N integers forming [start, end) pairs with start < end.
func ParseRangeSpec(spec string) ([]Range, error) {
	parts := strings.Split(spec, ",")
	count, err := strconv.ParseUint(strings.TrimSpace(parts[0]), 10, 32)
	if err != nil {
		return nil, fmt.Errorf("%w: bad count %q", ErrInvalidRangeSpec, parts[0])
	}
	if count == 0 || count%2 != 0 || int(count) != len(parts)-1 {
		return nil, fmt.Errorf("%w: count %d does not match %d values", ErrInvalidRangeSpec, count, len(parts)-1)
	}

	ranges := make([]Range, 0, count/2)
	for i := 1; i < len(parts); i += 2 {
		start, errS := strconv.ParseInt(strings.TrimSpace(parts[i]), 10, 64)
		end, errE := strconv.ParseInt(strings.TrimSpace(parts[i+1]), 10, 64)
		if errS != nil || errE != nil || start < 0 || start >= end {
			return nil, fmt.Errorf("%w: bad pair (%s, %s)", ErrInvalidRangeSpec, parts[i], parts[i+1])
		}
		ranges = append(ranges, Range{Start: start, End: end})
	}
	return ranges, nil
}

// Scan opens devicePath and reads every block of every range fully,
// discarding the data. Returns the number of blocks read. Any open, seek,
// or short read is a failure.
func Scan(ctx context.Context, devicePath string, ranges []Range) (uint64, error) {
	f, err := os.Open(devicePath)
	if err != nil {
		slog.Error("scan_open_failed", "device", devicePath, "error", err)
		return 0, ota_errors.Wrap(err, "failed to open block device")
	}
	defer f.Close()

	buf := make([]byte, readChunk)
	var blocks uint64
	for _, r := range ranges {
		if err := ctx.Err(); err != nil {
			return blocks, err
		}
		if _, err := f.Seek(r.Start*BlockSize, io.SeekStart); err != nil {
			slog.Error("scan_seek_failed", "device", devicePath, "block", r.Start, "error", err)
			return blocks, ota_errors.Wrap(err, "seek failed")
		}

		remaining := (r.End - r.Start) * BlockSize
		for remaining > 0 {
			n := int64(len(buf))
			if remaining < n {
				n = remaining
			}
			if _, err := io.ReadFull(f, buf[:n]); err != nil {
				slog.Error("scan_read_failed", "device", devicePath,
					"range_start", r.Start, "range_end", r.End, "error", err)
				return blocks, ota_errors.Wrap(err, "block read failed")
			}
			remaining -= n
		}
		blocks += uint64(r.End - r.Start)
	}

	slog.Info("scan_complete", "device", devicePath, "blocks", blocks)
	return blocks, nil
}
