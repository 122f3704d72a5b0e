// Package main provides C API bindings for the swiftshare engine, so that
// host applications written in other languages can drive transfers through
// a small flat function surface.
//
// # Build Instructions
//
// The package uses cgo. To build as a C shared library and header:
//
//	CGO_ENABLED=1 go build -buildmode=c-shared -o libswiftshare.so ./capi/
//
// The export check builds the library and inspects its symbols:
//
//	go test -tags cshared ./capi/
//
// # C API Usage
//
//	#include "libswiftshare.h"
//
//	const char *dir = "/sdcard/Download/SwiftShare";
//	swft_handle engine = swft_new((char *)dir, strlen(dir));
//	if (engine == 0) {
//	    return 1;
//	}
//
//	if (swft_start_receiver(engine, 8765) != SWFT_STATUS_OK) {
//	    fprintf(stderr, "port busy\n");
//	}
//
//	while (running) {
//	    char name[256];
//	    int n = swft_get_current_file_name(engine, name, sizeof(name));
//	    double p = swft_get_progress(engine);
//	    ...
//	}
//
//	swft_kill(engine);
//
// # Instance Management
//
// Engines are represented by integer handles that map to Go objects held in
// an internal registry. No Go pointer crosses the boundary. A handle stays
// valid until swft_kill and is never reissued. Passing 0 or a killed handle
// is harmless: queries return zero values and commands return
// SWFT_STATUS_ERROR.
//
// # Strings
//
// Strings cross the boundary as pointer and byte length pairs and need not
// be NUL-terminated. Nothing returned by this package needs to be freed by
// the caller; file names are copied into a caller-supplied buffer.
//
// # Status Codes
//
// Commands return 0 (SWFT_STATUS_OK) on success and 1 (SWFT_STATUS_ERROR)
// otherwise, matching the status byte used by the HTTP API.
package main
