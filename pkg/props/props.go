// Package props reads the runtime device properties the installer and
// verifier gate their decisions on (device identifier, build fingerprint,
// slot suffix, verity mode, ...). On a real device these come from the
// Android property store; here they are loaded from a flat key=value file
// (the same format build.prop uses) with OTACORE_PROP_* environment
// overrides, via viper.
package props

import (
	"os"
	"strings"

	"github.com/spf13/viper"

	"github.com/otacore/recovery/pkg/errors"
)

// Well-known property keys consumed by the gate and verifier.
const (
	Device             = "ro.product.device"
	SerialNo           = "ro.serialno"
	BuildIncremental   = "ro.build.version.incremental"
	BuildFingerprint   = "ro.build.fingerprint"
	BuildDateUTC       = "ro.build.date.utc"
	SlotSuffix         = "ro.boot.slot_suffix"
	VerityMode         = "ro.boot.veritymode"
)

// Store is a read-only snapshot of runtime properties.
type Store struct {
	v *viper.Viper
}

// Load reads properties from path (build.prop-style "key=value" lines,
// blank lines and "#"-prefixed lines ignored) plus OTACORE_PROP_<KEY>
// environment overrides. A missing path is not an error: Get simply
// returns "" for every key, same as an unset Android property.
func Load(path string) (*Store, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("properties")
	v.SetEnvPrefix("OTACORE_PROP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if !isMissingConfigErr(err) {
			return nil, errors.Wrap(err, "failed to read properties file")
		}
	}

	return &Store{v: v}, nil
}

// Get returns the value for key, or "" if unset.
func (s *Store) Get(key string) string {
	return s.v.GetString(key)
}

// isMissingConfigErr matches both viper's not-found error (config search
// paths) and the plain PathError SetConfigFile produces.
func isMissingConfigErr(err error) bool {
	if _, ok := err.(viper.ConfigFileNotFoundError); ok {
		return true
	}
	return os.IsNotExist(err)
}
