package main

/*
#include <stdint.h>

#define SWFT_STATUS_OK 0
#define SWFT_STATUS_ERROR 1

// Engine handle. 0 is never a valid handle.
typedef int swft_handle;
*/
import "C"

import "unsafe"

//export swft_new
func swft_new(downloadDir *C.char, dirLen C.int) C.swft_handle {
	return C.swft_handle(newEngine(goString((*byte)(unsafe.Pointer(downloadDir)), int(dirLen))))
}

//export swft_kill
func swft_kill(handle C.swft_handle) {
	killEngine(int(handle))
}

//export swft_start_receiver
func swft_start_receiver(handle C.swft_handle, port C.uint16_t) C.int {
	return C.int(startReceiver(int(handle), uint16(port)))
}

//export swft_start_sender
func swft_start_sender(handle C.swft_handle, path *C.char, pathLen C.int, ip *C.char, ipLen C.int, port C.uint16_t) C.int {
	return C.int(startSender(int(handle),
		goString((*byte)(unsafe.Pointer(path)), int(pathLen)),
		goString((*byte)(unsafe.Pointer(ip)), int(ipLen)),
		uint16(port)))
}

//export swft_get_progress
func swft_get_progress(handle C.swft_handle) C.double {
	return C.double(progress(int(handle)))
}

//export swft_get_current_file_size
func swft_get_current_file_size(handle C.swft_handle) C.uint64_t {
	return C.uint64_t(fileSize(int(handle)))
}

// swft_get_current_file_name copies the current file name into out and
// returns its length, 0 when idle, or -1 if out is too small.
//
//export swft_get_current_file_name
func swft_get_current_file_name(handle C.swft_handle, out *C.char, outLen C.int) C.int {
	var buf []byte
	if out != nil && outLen > 0 {
		buf = unsafe.Slice((*byte)(unsafe.Pointer(out)), int(outLen))
	}
	return C.int(copyFileName(int(handle), buf))
}

//export swft_cancel
func swft_cancel(handle C.swft_handle) {
	cancel(int(handle))
}
