// Command swiftshare sends and receives files over the SWFT protocol, and can
// expose an engine through an HTTP control API.
//
//	swiftshare receive --port 8765 --dir ~/Downloads/SwiftShare
//	swiftshare send report.pdf --ip 192.168.1.20 --port 8765
//	swiftshare serve --listen 127.0.0.1:8766
package main

import (
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
