package session

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	gorillajson "github.com/gorilla/rpc/json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/btsledger/ledger-bts-go/internal"
	"github.com/btsledger/ledger-bts-go/pkg/ledger"
)

const samplePayloadHex = "0420999999999999999999999999999999999999999999999999999999999999999904045b30dc9a04023ca8040495ae4f7104010004010004010004010004010104085530ea000000000004089ab864229a9e400004010104085530ea000000000004083232eda80000000004016604660000000000ea305500fc7566d15cfd4501000000010002ed0a3156276d5116973957e1cecf39034b0175f8ec897c0b562349a3b9f8e56a0100000001000000010002ed0a3156276d5116973957e1cecf39034b0175f8ec897c0b562349a3b9f8e56a0100000004010004200000000000000000000000000000000000000000000000000000000000000000"

func newTestServer(t *testing.T) *httptest.Server {
	rpcServer, err := CreateRPCServer()
	require.NoError(t, err)

	server := httptest.NewServer(rpcServer)
	t.Cleanup(func() {
		server.Close()
		require.NoError(t, globalLedgerService.Stop(nil, nil))
	})
	return server
}

func call(t *testing.T, server *httptest.Server, method string, args, reply interface{}) error {
	body, err := gorillajson.EncodeClientRequest(ServiceName+"."+method, args)
	require.NoError(t, err)

	resp, err := http.Post(server.URL, "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()

	return gorillajson.DecodeClientResponse(resp.Body, reply)
}

func startEmulator(t *testing.T, server *httptest.Server) {
	err := call(t, server, "Start", &StartRequest{
		Transport:    "emulator",
		EmulatorSeed: "session test",
		KeyCacheFile: filepath.Join(t.TempDir(), "keys.cbor"),
	}, &struct{}{})
	require.NoError(t, err)
}

func TestNotStarted(t *testing.T) {
	server := newTestServer(t)

	var status internal.Status
	err := call(t, server, "GetStatus", &struct{}{}, &status)
	require.Error(t, err)
	assert.Contains(t, err.Error(), errLedgerServiceNotStarted.Error())
}

func TestStartValidation(t *testing.T) {
	server := newTestServer(t)

	err := call(t, server, "Start", &StartRequest{Transport: "bluetooth"}, &struct{}{})
	assert.Error(t, err)
}

func TestGetPublicKeyAndSign(t *testing.T) {
	server := newTestServer(t)
	startEmulator(t, server)

	err := call(t, server, "Start", &StartRequest{Transport: "emulator"}, &struct{}{})
	assert.Error(t, err)

	var key ledger.PublicKeyResult
	require.NoError(t, call(t, server, "GetPublicKey", &GetPublicKeyRequest{}, &key))
	assert.Equal(t, ledger.DefaultPublicKeyPath, key.Path)
	assert.Equal(t, key.Computed, key.Address)
	assert.Nil(t, key.Warning)

	var status internal.Status
	require.NoError(t, call(t, server, "GetStatus", &struct{}{}, &status))
	assert.Equal(t, internal.Ready, status.State)
	assert.Equal(t, key.Address, status.Address)

	payload, _ := hex.DecodeString(samplePayloadHex)
	var sig SignResponse
	require.NoError(t, call(t, server, "Sign", &SignRequest{Payload: payload}, &sig))
	assert.Len(t, sig.Signature, ledger.SignatureLength)
	assert.Equal(t, sig.V, sig.Signature[0])

	var known KnownAddressesResponse
	require.NoError(t, call(t, server, "KnownAddresses", &struct{}{}, &known))
	require.Len(t, known.Keys, 1)
	assert.Equal(t, key.Address, known.Keys[0].Address)
}

func TestGetPublicKeyInvalidPath(t *testing.T) {
	server := newTestServer(t)
	startEmulator(t, server)

	var key ledger.PublicKeyResult
	err := call(t, server, "GetPublicKey", &GetPublicKeyRequest{Path: "44'/-1"}, &key)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "derivationpath")
}

func TestDigest(t *testing.T) {
	server := newTestServer(t)

	payload, _ := hex.DecodeString(samplePayloadHex)
	var reply DigestResponse
	require.NoError(t, call(t, server, "Digest", &DigestRequest{Payload: payload}, &reply))
	assert.Equal(t, "50965bc67e0de527edf3d03314c83498d5cdf01c9e9eb9f4a877d9213ccf71e5", hex.EncodeToString(reply.Digest))

	// The payload travels as a hex string.
	raw, err := json.Marshal(DigestRequest{Payload: payload[:2]})
	require.NoError(t, err)
	assert.JSONEq(t, `{"payload":"0420"}`, string(raw))
}
