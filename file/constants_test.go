package file

// Common test file size constants.
const (
	testFileSize1KB = 1024
	testFileSize2KB = 2048
)

const (
	testFileName  = "report.pdf"
	testSubdir    = "SwiftShareX"
	testFileMode  = 0o644
	testLongNameN = 300
)
