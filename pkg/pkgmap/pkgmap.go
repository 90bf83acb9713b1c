// Package pkgmap maps an OTA package file into memory so the signature
// verifier and archive reader can work over one shared region without
// copying the package.
package pkgmap

import (
	"log/slog"
	"os"

	"golang.org/x/sys/unix"

	"github.com/otacore/recovery/pkg/errors"
)

// Mapping is a read-only memory mapping of a package file. Release must
// be called exactly once per successful Map; extra calls are harmless.
type Mapping struct {
	data     []byte
	released bool
}

// Map opens path and maps its full contents read-only. The file
// descriptor is closed before returning; the mapping keeps the pages
// alive.
func Map(path string) (*Mapping, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open package")
	}
	defer f.Close()

	st, err := f.Stat()
	if err != nil {
		return nil, errors.Wrap(err, "failed to stat package")
	}
	size := st.Size()
	if size == 0 {
		slog.Warn("package_empty", "path", path)
		return &Mapping{}, nil
	}

	data, err := unix.Mmap(int(f.Fd()), 0, int(size), unix.PROT_READ, unix.MAP_PRIVATE)
	if err != nil {
		slog.Error("package_map_failed", "path", path, "size", size, "error", err)
		return nil, errors.Wrap(err, "failed to map package")
	}

	slog.Info("package_mapped", "path", path, "size", size)
	return &Mapping{data: data}, nil
}

// Bytes returns the mapped region. Invalid after Release.
func (m *Mapping) Bytes() []byte {
	return m.data
}

// Len returns the mapped length in bytes.
func (m *Mapping) Len() int {
	return len(m.data)
}

// Release unmaps the region. Safe to call more than once, and on a
// zero-length mapping.
func (m *Mapping) Release() error {
	if m.released || m.data == nil {
		m.released = true
		return nil
	}
	m.released = true
	data := m.data
	m.data = nil
	if err := unix.Munmap(data); err != nil {
		return errors.Wrap(err, "failed to unmap package")
	}
	return nil
}
