package main

/*
#include <stdlib.h>

typedef void (*signal_callback)(const char *);

static void call_signal_callback(void *cb, const char *data) {
	((signal_callback)cb)(data);
}
*/
import "C"
import (
	"unsafe"

	"github.com/btsledger/ledger-bts-go/signal"
)

// setSignalCallback forwards every signal to the C function cb. A nil cb
// removes the handler.
func setSignalCallback(cb unsafe.Pointer) {
	if cb == nil {
		signal.ResetSignalHandler()
		return
	}

	signal.SetSignalHandler(func(data []byte) {
		str := C.CString(string(data))
		defer C.free(unsafe.Pointer(str))
		C.call_signal_callback(cb, str)
	})
}
