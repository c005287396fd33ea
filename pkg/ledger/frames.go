package ledger

import (
	"fmt"

	"github.com/status-im/keycard-go/apdu"

	"github.com/btsledger/ledger-bts-go/pkg/derivationpath"
)

func pathData(path []byte, extra int) ([]byte, error) {
	if len(path)%4 != 0 {
		return nil, &derivationpath.MalformedPathError{
			Path:   fmt.Sprintf("%x", path),
			Reason: "binary path length is not a multiple of 4",
		}
	}

	size := 1 + len(path) + extra
	if size > MaxFrameData {
		return nil, &PayloadTooLargeError{Size: size, Max: MaxFrameData}
	}

	data := make([]byte, 0, size)
	data = append(data, byte(len(path)/4))
	return append(data, path...), nil
}

// BuildGetPublicKeyFrames returns the single public key request for path.
// selector is P1Silent or P1Display.
func BuildGetPublicKeyFrames(selector byte, path []byte) ([]*apdu.Command, error) {
	data, err := pathData(path, 0)
	if err != nil {
		return nil, err
	}

	return []*apdu.Command{
		apdu.NewCommand(ClaGetPublicKey, InsGetPublicKey, selector, P2Address, data),
	}, nil
}

// BuildSignFrames splits payload into ChunkSize chunks. The first frame
// carries the path and the first chunk, the following ones a chunk each.
// An empty payload still produces one frame carrying the path.
func BuildSignFrames(path []byte, payload []byte) ([]*apdu.Command, error) {
	first := payload
	if len(first) > ChunkSize {
		first = first[:ChunkSize]
	}

	data, err := pathData(path, len(first))
	if err != nil {
		return nil, err
	}
	data = append(data, first...)

	frames := make([]*apdu.Command, 0, 1+(len(payload)-len(first)+ChunkSize-1)/ChunkSize)
	frames = append(frames, apdu.NewCommand(ClaSign, InsSign, P1FirstChunk, P2Sign, data))

	for offset := len(first); offset < len(payload); offset += ChunkSize {
		end := offset + ChunkSize
		if end > len(payload) {
			end = len(payload)
		}

		chunk := make([]byte, end-offset)
		copy(chunk, payload[offset:end])
		frames = append(frames, apdu.NewCommand(ClaSign, InsSign, P1NextChunk, P2Sign, chunk))
	}

	return frames, nil
}
