package main

import (
	"sync"
	"unsafe"

	"github.com/sirupsen/logrus"

	"github.com/opd-ai/swiftshare"
	"github.com/opd-ai/swiftshare/protocol"
)

func main() {} // Required for c-shared build mode

// Engines by handle. Handle 0 is never issued.
var (
	engines      = make(map[int]*swiftshare.Engine)
	nextEngineID = 1
	engineMutex  sync.RWMutex
)

// goString copies n bytes at p into a Go string.
func goString(p *byte, n int) string {
	if p == nil || n <= 0 {
		return ""
	}
	return string(unsafe.Slice(p, n))
}

func status(ok bool) int {
	if ok {
		return int(protocol.StatusOK)
	}
	return int(protocol.StatusError)
}

func lookup(handle int) (*swiftshare.Engine, bool) {
	engineMutex.RLock()
	defer engineMutex.RUnlock()
	e, ok := engines[handle]
	return e, ok
}

// newEngine creates an engine receiving into downloadDir and returns its
// handle, or 0 on failure.
func newEngine(downloadDir string) int {
	opts := swiftshare.NewOptions()
	opts.DownloadDir = downloadDir

	engine, err := swiftshare.New(opts)
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"function": "newEngine",
			"error":    err.Error(),
		}).Error("Failed to create engine")
		return 0
	}

	engineMutex.Lock()
	defer engineMutex.Unlock()

	id := nextEngineID
	nextEngineID++
	engines[id] = engine
	return id
}

func killEngine(handle int) {
	engineMutex.Lock()
	engine, exists := engines[handle]
	delete(engines, handle)
	engineMutex.Unlock()

	if exists {
		engine.Kill()
	}
}

func startReceiver(handle int, port uint16) int {
	engine, ok := lookup(handle)
	if !ok {
		return status(false)
	}
	return status(engine.StartReceiver(port))
}

func startSender(handle int, path, ip string, port uint16) int {
	engine, ok := lookup(handle)
	if !ok {
		return status(false)
	}
	return status(engine.StartSender(path, ip, port))
}

func progress(handle int) float64 {
	if engine, ok := lookup(handle); ok {
		return engine.GetProgress()
	}
	return 0
}

func fileSize(handle int) uint64 {
	if engine, ok := lookup(handle); ok {
		return engine.GetCurrentFileSize()
	}
	return 0
}

// copyFileName copies the current file name into out and returns its
// length, 0 when idle, or -1 if out is too small.
func copyFileName(handle int, out []byte) int {
	engine, ok := lookup(handle)
	if !ok {
		return 0
	}
	name := engine.GetCurrentFileName()
	if len(name) == 0 {
		return 0
	}
	if len(name) > len(out) {
		return -1
	}
	return copy(out, name)
}

func cancel(handle int) {
	if engine, ok := lookup(handle); ok {
		engine.Cancel()
	}
}
