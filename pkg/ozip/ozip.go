// Package ozip is the zip archive reader the installer depends on as an
// external collaborator. It opens an OTA package's zip structure, locates
// named entries, and extracts them to memory or to disk. The zip format
// parsing itself is stdlib archive/zip.
package ozip

import (
	"bytes"
	"errors"
	"io"
	"os"

	ozip "archive/zip"

	ota_errors "github.com/otacore/recovery/pkg/errors"
)

// ErrEntryNotFound is returned by ExtractToMemory and ExtractToFile when the
// entry is not in the archive. Find reports absence through its bool.
var ErrEntryNotFound = errors.New("ozip: entry not found")

// Entry is a single file within the archive.
type Entry struct {
	Name               string
	UncompressedLength int64
	// Offset is the entry's data start offset within the containing
	// file. Always 64-bit; large packages overflow a 32-bit offset.
	Offset int64
}

// Archive is the contract the installer core depends on; OpenFile and
// OpenBytes below return its only concrete implementation.
type Archive interface {
	Find(name string) (Entry, bool)
	ExtractToMemory(e Entry) ([]byte, error)
	ExtractToFile(e Entry, dst string, mode os.FileMode) error
	Close() error
}

type fileArchive struct {
	r      *ozip.Reader
	closer io.Closer
}

// OpenFile opens the zip archive at path. A failure here is always a
// CORRUPT-class failure in the caller's terms.
func OpenFile(path string) (Archive, error) {
	rc, err := ozip.OpenReader(path)
	if err != nil {
		return nil, ota_errors.Wrap(err, "failed to open archive")
	}
	return &fileArchive{r: &rc.Reader, closer: rc}, nil
}

// OpenBytes opens a zip archive from an in-memory region, typically the
// installer's mapping of the package file. The caller keeps ownership of
// data for the lifetime of the archive.
func OpenBytes(data []byte) (Archive, error) {
	r, err := ozip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, ota_errors.Wrap(err, "failed to open archive from memory")
	}
	return &fileArchive{r: r}, nil
}

func (a *fileArchive) Find(name string) (Entry, bool) {
	for _, f := range a.r.File {
		if f.Name == name {
			offset, err := dataOffset(f)
			if err != nil {
				return Entry{}, false
			}
			return Entry{
				Name:               f.Name,
				UncompressedLength: int64(f.UncompressedSize64),
				Offset:             offset,
			}, true
		}
	}
	return Entry{}, false
}

func (a *fileArchive) ExtractToMemory(e Entry) ([]byte, error) {
	f := a.lookup(e.Name)
	if f == nil {
		return nil, ErrEntryNotFound
	}
	rc, err := f.Open()
	if err != nil {
		return nil, ota_errors.Wrap(err, "failed to open entry")
	}
	defer rc.Close()

	buf := make([]byte, 0, e.UncompressedLength)
	w := &sliceWriter{buf: buf}
	if _, err := io.Copy(w, rc); err != nil {
		return nil, ota_errors.Wrap(err, "failed to read entry")
	}
	return w.buf, nil
}

func (a *fileArchive) ExtractToFile(e Entry, dst string, mode os.FileMode) error {
	f := a.lookup(e.Name)
	if f == nil {
		return ErrEntryNotFound
	}
	rc, err := f.Open()
	if err != nil {
		return ota_errors.Wrap(err, "failed to open entry")
	}
	defer rc.Close()

	_ = os.Remove(dst)
	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode)
	if err != nil {
		return ota_errors.Wrap(err, "failed to create destination file")
	}
	defer out.Close()

	if _, err := io.Copy(out, rc); err != nil {
		return ota_errors.Wrap(err, "failed to write entry")
	}
	return nil
}

func (a *fileArchive) Close() error {
	if a.closer == nil {
		return nil
	}
	return a.closer.Close()
}

func (a *fileArchive) lookup(name string) *ozip.File {
	for _, f := range a.r.File {
		if f.Name == name {
			return f
		}
	}
	return nil
}

// dataOffset returns the 64-bit offset of an entry's data within the zip
// file, used by the A/B command builder to tell the update-applier where
// the uncompressed payload.bin payload begins.
func dataOffset(f *ozip.File) (int64, error) {
	offset, err := f.DataOffset()
	if err != nil {
		return 0, err
	}
	return offset, nil
}

type sliceWriter struct {
	buf []byte
}

func (w *sliceWriter) Write(p []byte) (int, error) {
	w.buf = append(w.buf, p...)
	return len(p), nil
}
