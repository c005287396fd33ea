// Package hid talks to a Ledger device over USB HID.
package hid

import (
	"encoding/binary"
	"io"
	"sync"

	"github.com/karalabe/hid"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

const (
	VendorID = 0x2c97

	usageID    = 0xffa0
	endpointID = 0

	packetSize = 64
	channel    = 0x0101
	tagAPDU    = 0x05
	headerSize = 5
)

// ProductIDs are the device models known to run the application, in both
// legacy and WebUSB enumerations.
var ProductIDs = []uint16{
	0x0000, // Ledger Blue
	0x0001, // Ledger Nano S
	0x0004, // Ledger Nano X
	0x0005, // Ledger Nano S Plus
	0x0006, // Ledger Nano FTS
	0x0015, // Ledger Blue WebUSB
	0x1015, // Ledger Nano S WebUSB
	0x4015, // Ledger Nano X WebUSB
	0x5015, // Ledger Nano S Plus WebUSB
	0x6015, // Ledger Nano FTS WebUSB
	0x0011, // Ledger Blue HID
	0x1011, // Ledger Nano S HID
	0x4011, // Ledger Nano X HID
	0x5011, // Ledger Nano S Plus HID
	0x6011, // Ledger Nano FTS HID
}

var (
	ErrNotSupported       = errors.New("USB HID not supported on this platform")
	ErrNoDevice           = errors.New("no device found")
	ErrInvalidReplyHeader = errors.New("invalid reply header")
	ErrInvalidSequence    = errors.New("unexpected reply sequence")
	ErrCommandTooLong     = errors.New("command too long")
)

// Enumerate lists the connected devices.
func Enumerate() ([]hid.DeviceInfo, error) {
	if !hid.Supported() {
		return nil, ErrNotSupported
	}

	infos, err := hid.Enumerate(VendorID, 0)
	if err != nil {
		return nil, errors.Wrap(err, "failed to enumerate USB devices")
	}

	devices := make([]hid.DeviceInfo, 0, len(infos))
	for _, info := range infos {
		for _, id := range ProductIDs {
			// Windows and macOS match on usage page, Linux on interface
			if info.ProductID == id && (info.UsagePage == usageID || info.Interface == endpointID) {
				devices = append(devices, info)
				break
			}
		}
	}

	return devices, nil
}

type Device struct {
	mu     sync.Mutex
	rw     io.ReadWriteCloser
	logger *zap.Logger
}

// Open connects to the first device found.
func Open(logger *zap.Logger) (*Device, error) {
	devices, err := Enumerate()
	if err != nil {
		return nil, err
	}

	if len(devices) == 0 {
		return nil, ErrNoDevice
	}

	return OpenInfo(devices[0], logger)
}

func OpenInfo(info hid.DeviceInfo, logger *zap.Logger) (*Device, error) {
	dev, err := info.Open()
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open %s", info.Path)
	}

	logger.Debug("device opened",
		zap.String("path", info.Path),
		zap.String("product", info.Product),
		zap.Uint16("productID", info.ProductID))

	return NewDevice(dev, logger), nil
}

// NewDevice frames exchanges over an already opened HID handle.
func NewDevice(rw io.ReadWriteCloser, logger *zap.Logger) *Device {
	return &Device{rw: rw, logger: logger}
}

func (d *Device) Exchange(command []byte) ([]byte, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	packets, err := Wrap(command)
	if err != nil {
		return nil, err
	}

	for _, packet := range packets {
		if _, err := d.rw.Write(packet); err != nil {
			return nil, errors.Wrap(err, "failed to write packet")
		}
	}

	return Unwrap(d.rw)
}

func (d *Device) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.rw.Close()
}

func header(seq uint16) []byte {
	h := make([]byte, headerSize, packetSize)
	binary.BigEndian.PutUint16(h, channel)
	h[2] = tagAPDU
	binary.BigEndian.PutUint16(h[3:], seq)
	return h
}

// Wrap splits a command into 64 byte packets. The first packet carries the
// command length, the last one is zero padded.
func Wrap(command []byte) ([][]byte, error) {
	if len(command) > 0xffff {
		return nil, ErrCommandTooLong
	}

	data := make([]byte, 2, 2+len(command))
	binary.BigEndian.PutUint16(data, uint16(len(command)))
	data = append(data, command...)

	var packets [][]byte
	for seq := 0; len(data) > 0; seq++ {
		packet := header(uint16(seq))

		n := packetSize - headerSize
		if n > len(data) {
			n = len(data)
		}

		packet = append(packet, data[:n]...)
		data = data[n:]

		packets = append(packets, packet[:packetSize])
	}

	return packets, nil
}

// Unwrap reads reply packets from r and returns the reassembled reply,
// status word included.
func Unwrap(r io.Reader) ([]byte, error) {
	var reply []byte
	var total int

	packet := make([]byte, packetSize)
	for seq := uint16(0); ; seq++ {
		if _, err := io.ReadFull(r, packet); err != nil {
			return nil, errors.Wrap(err, "failed to read packet")
		}

		if binary.BigEndian.Uint16(packet) != channel || packet[2] != tagAPDU {
			return nil, ErrInvalidReplyHeader
		}

		if binary.BigEndian.Uint16(packet[3:]) != seq {
			return nil, ErrInvalidSequence
		}

		payload := packet[headerSize:]
		if seq == 0 {
			total = int(binary.BigEndian.Uint16(payload))
			reply = make([]byte, 0, total)
			payload = payload[2:]
		}

		if left := total - len(reply); left > len(payload) {
			reply = append(reply, payload...)
		} else {
			return append(reply, payload[:left]...), nil
		}
	}
}
