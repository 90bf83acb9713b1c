package gate

import (
	"log/slog"
	"math"
	"strconv"

	"github.com/otacore/recovery/pkg/props"
)

// IdentityFromStore snapshots the runtime properties the gate compares
// against. A missing or unparsable build timestamp becomes the maximum
// signed 64-bit value, so every finite package timestamp reads as a
// downgrade until the device can prove otherwise.
func IdentityFromStore(s *props.Store) RuntimeIdentity {
	timestamp := int64(math.MaxInt64)
	if raw := s.Get(props.BuildDateUTC); raw != "" {
		parsed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			slog.Warn("gate_build_timestamp_unparsable", "value", raw)
		} else {
			timestamp = parsed
		}
	}

	return RuntimeIdentity{
		Device:           s.Get(props.Device),
		SerialNo:         s.Get(props.SerialNo),
		BuildIncremental: s.Get(props.BuildIncremental),
		BuildFingerprint: s.Get(props.BuildFingerprint),
		BuildDateUTC:     timestamp,
	}
}
