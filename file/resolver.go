package file

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/sirupsen/logrus"

	"github.com/opd-ai/swiftshare/limits"
)

// ErrInvalidFileName indicates a received name that cannot be used as a single path element.
var ErrInvalidFileName = errors.New("invalid file name")

// PathResolver turns the file name announced by a sender into a writable
// local path. An empty result rejects the transfer.
//
// The receiver calls Resolve synchronously from its own goroutine, so
// implementations must be safe for use from any goroutine. Implementations
// bound to a particular thread must hand the call over themselves.
type PathResolver interface {
	Resolve(fileName string) string
}

// PathResolverFunc is a function type that implements PathResolver.
type PathResolverFunc func(fileName string) string

// Resolve implements PathResolver for PathResolverFunc.
func (f PathResolverFunc) Resolve(fileName string) string {
	return f(fileName)
}

// ValidateName checks that a received name is a single, non-special path element.
func ValidateName(name string) error {
	if err := limits.ValidateNameLength(len(name)); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidFileName, err)
	}
	if !utf8.ValidString(name) {
		return fmt.Errorf("%w: not UTF-8", ErrInvalidFileName)
	}
	if name == "." || name == ".." {
		return fmt.Errorf("%w: %q", ErrInvalidFileName, name)
	}
	if strings.ContainsAny(name, `/\`) || strings.ContainsRune(name, 0) {
		return fmt.Errorf("%w: %q contains a separator", ErrInvalidFileName, name)
	}
	return nil
}

// DirResolver stores every incoming file directly inside Dir.
type DirResolver struct {
	Dir string
}

// NewDirResolver returns a resolver writing into dir.
func NewDirResolver(dir string) *DirResolver {
	return &DirResolver{Dir: dir}
}

// Resolve creates Dir if needed and returns Dir/fileName, or "" when the
// name is unsafe or the directory cannot be created.
func (r *DirResolver) Resolve(fileName string) string {
	if err := ValidateName(fileName); err != nil {
		logrus.WithFields(logrus.Fields{
			"function":  "DirResolver.Resolve",
			"file_name": fileName,
			"error":     err.Error(),
		}).Warn("Rejecting unsafe file name")
		return ""
	}

	if err := os.MkdirAll(r.Dir, 0o755); err != nil {
		logrus.WithFields(logrus.Fields{
			"function": "DirResolver.Resolve",
			"dir":      r.Dir,
			"error":    err.Error(),
		}).Error("Failed to create download directory")
		return ""
	}

	return filepath.Join(r.Dir, fileName)
}
