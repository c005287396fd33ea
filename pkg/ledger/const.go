package ledger

const (
	ClaGetPublicKey = 0xB5
	InsGetPublicKey = 0x02

	P1Silent  = 0x00
	P1Display = 0x01
	P2Address = 0x01

	ClaSign = 0xE0
	InsSign = 0x04

	P1FirstChunk = 0x00
	P1NextChunk  = 0x80
	P2Sign       = 0x00
)

const (
	DefaultPublicKeyPath = "48'/1'/1'/0'/0'"
	DefaultSignPath      = "44'/194'/0'/0/1"
)

const (
	// ChunkSize is the largest slice of signing payload carried per frame.
	ChunkSize = 64
	// MaxFrameData is the largest value of the single byte length field.
	MaxFrameData = 255

	SignatureLength = 65
)

const (
	SwOK                = 0x9000
	SwConditionsNotMet  = 0x6985
	SwUserRejected      = 0x6986
	SwWrongData         = 0x6A80
	SwInsNotSupported   = 0x6D00
	SwClaNotSupported   = 0x6E00
	SwWrongLength       = 0x6700
	SwInvalidParameters = 0x6B00
)
