package file

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"
)

// ErrEmptyPath indicates a missing local file path.
var ErrEmptyPath = errors.New("empty file path")

// ErrNotRegularFile indicates that a source path names a directory or device.
var ErrNotRegularFile = errors.New("not a regular file")

// ErrOffsetBeyondEOF indicates a resume offset larger than the source file.
var ErrOffsetBeyondEOF = errors.New("resume offset beyond end of file")

// TimeProvider abstracts time operations for deterministic testing.
type TimeProvider interface {
	Now() time.Time
	Since(t time.Time) time.Duration
}

// DefaultTimeProvider uses the standard library time functions.
type DefaultTimeProvider struct{}

// Now returns the current time.
func (DefaultTimeProvider) Now() time.Time { return time.Now() }

// Since returns the duration since t.
func (DefaultTimeProvider) Since(t time.Time) time.Duration { return time.Since(t) }

// CleanPath cleans a locally chosen path. Relative paths, including ones
// that start with "..", are kept relative to the working directory; names
// received from a peer are checked separately by ValidateName.
func CleanPath(path string) (string, error) {
	if path == "" {
		return "", ErrEmptyPath
	}
	return filepath.Clean(path), nil
}

// Destination is a receiver-side file opened for resumable append.
type Destination struct {
	Path string
	// Offset is the number of bytes already present when the file was opened.
	Offset uint64

	f *os.File
}

// OpenDestination opens path for a transfer of size bytes. A missing file is
// created. An existing file no longer than size is kept and writes continue at
// its end; a longer one cannot belong to this transfer and is truncated.
func OpenDestination(path string, size uint64) (*Destination, error) {
	safePath, err := CleanPath(path)
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"function": "OpenDestination",
			"path":     path,
			"error":    err.Error(),
		}).Error("Invalid destination path")
		return nil, err
	}

	f, err := os.OpenFile(safePath, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"function": "OpenDestination",
			"path":     safePath,
			"error":    err.Error(),
		}).Error("Failed to open destination file")
		return nil, err
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}

	existing := uint64(info.Size())
	if existing > size {
		logrus.WithFields(logrus.Fields{
			"function":      "OpenDestination",
			"path":          safePath,
			"existing_size": existing,
			"declared_size": size,
		}).Warn("Existing file larger than incoming transfer, truncating")
		if err := f.Truncate(0); err != nil {
			f.Close()
			return nil, err
		}
		existing = 0
	}

	if _, err := f.Seek(int64(existing), io.SeekStart); err != nil {
		f.Close()
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"function": "OpenDestination",
		"path":     safePath,
		"offset":   existing,
		"size":     size,
	}).Debug("Destination file ready")

	return &Destination{Path: safePath, Offset: existing, f: f}, nil
}

// Write appends p at the current write position.
func (d *Destination) Write(p []byte) (int, error) {
	return d.f.Write(p)
}

// Close syncs and closes the file.
func (d *Destination) Close() error {
	syncErr := d.f.Sync()
	if err := d.f.Close(); err != nil {
		return err
	}
	return syncErr
}

// Source is a sender-side file opened read-only.
type Source struct {
	Path string
	// Name is the final path element, the name announced to the receiver.
	Name string
	Size uint64

	f *os.File
}

// OpenSource opens a regular file for sending.
func OpenSource(path string) (*Source, error) {
	safePath, err := CleanPath(path)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(safePath)
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"function": "OpenSource",
			"path":     safePath,
			"error":    err.Error(),
		}).Error("Failed to open source file")
		return nil, err
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}
	if !info.Mode().IsRegular() {
		f.Close()
		return nil, fmt.Errorf("%w: %s", ErrNotRegularFile, safePath)
	}

	return &Source{
		Path: safePath,
		Name: filepath.Base(safePath),
		Size: uint64(info.Size()),
		f:    f,
	}, nil
}

// Seek positions the read cursor at offset.
func (s *Source) Seek(offset uint64) error {
	if offset > s.Size {
		return fmt.Errorf("%w: offset %d, size %d", ErrOffsetBeyondEOF, offset, s.Size)
	}
	_, err := s.f.Seek(int64(offset), io.SeekStart)
	return err
}

// Read reads from the current position.
func (s *Source) Read(p []byte) (int, error) {
	return s.f.Read(p)
}

// Close closes the file.
func (s *Source) Close() error {
	return s.f.Close()
}
