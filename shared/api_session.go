package main

// #cgo LDFLAGS: -shared
// #include <stdlib.h>
import "C"
import (
	"bytes"
	"io"
	"net/http/httptest"
	"sync"
	"unsafe"

	"github.com/gorilla/rpc"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/btsledger/ledger-bts-go/pkg/session"
)

var (
	globalRPCServerLock sync.RWMutex
	globalRPCServer     *rpc.Server
)

//export LedgerInitializeRPC
func LedgerInitializeRPC() *C.char {
	defer logPanic()

	globalRPCServerLock.Lock()
	defer globalRPCServerLock.Unlock()

	if globalRPCServer != nil {
		return marshalError(nil)
	}

	rpcServer, err := session.CreateRPCServer()
	if err != nil {
		return marshalError(err)
	}
	globalRPCServer = rpcServer

	zap.L().Info("RPC server initialized")
	return marshalError(nil)
}

//export LedgerCallRPC
func LedgerCallRPC(payload *C.char) *C.char {
	defer logPanic()

	globalRPCServerLock.RLock()
	rpcServer := globalRPCServer
	globalRPCServerLock.RUnlock()

	if rpcServer == nil {
		return marshalError(errors.New("RPC server not initialized"))
	}

	payloadBytes := []byte(C.GoString(payload))
	zap.L().Debug("calling RPC", zap.ByteString("payload", payloadBytes))

	req := httptest.NewRequest("POST", "/rpc", bytes.NewBuffer(payloadBytes))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()

	rpcServer.ServeHTTP(rr, req)

	resp := rr.Result()
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return marshalError(errors.Wrap(err, "internal error reading response body"))
	}

	return C.CString(string(body))
}

//export LedgerSetSignalEventCallback
func LedgerSetSignalEventCallback(cb unsafe.Pointer) {
	setSignalCallback(cb)
}

//export Free
func Free(param unsafe.Pointer) {
	C.free(param)
}
