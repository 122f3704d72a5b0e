// Package file implements the local file side of a transfer: resolving
// incoming names to destination paths, and opening source and destination
// files with resume semantics.
//
// # Overview
//
// The file package provides three primary components:
//
//   - PathResolver: the capability a receiver uses to map an announced file
//     name onto a local path; DirResolver is the stock implementation
//   - Destination: a receiver-side file opened for resumable append
//   - Source: a sender-side file opened read-only, with its announced name
//     and size
//
// # Path Resolution
//
// The receiver never trusts the announced name as a path. It asks a
// PathResolver, and an empty answer rejects the transfer:
//
//	resolver := file.NewDirResolver("/home/user/Downloads/SwiftShare")
//	path := resolver.Resolve("report.pdf") // ".../SwiftShare/report.pdf"
//
// Any function can serve as a resolver:
//
//	var r file.PathResolver = file.PathResolverFunc(func(name string) string {
//	    if strings.HasSuffix(name, ".exe") {
//	        return ""
//	    }
//	    return filepath.Join(inbox, name)
//	})
//
// Resolve is called synchronously on the receiver goroutine.
//
// # Resume
//
// OpenDestination reports in Offset how many bytes of the file already exist.
// The receiver sends that offset to the sender, which seeks its Source past
// the bytes the receiver already holds:
//
//	dst, err := file.OpenDestination(path, meta.FileSize)
//	// dst.Offset == 0 for a new file, the existing length otherwise
//
// A destination longer than the incoming file is truncated, since it cannot
// be a prefix of it.
//
// # Security
//
// Local paths chosen by the caller are only cleaned. Names announced by a
// peer go through ValidateName, so DirResolver never writes outside its
// directory.
package file
