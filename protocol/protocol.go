// Package protocol implements the framed trace stream a board sends to the host
package protocol

// Version is the trace stream format version
const Version = "0.1.0"

// Frame layout: len, seq, payload..., crc_hi, crc_lo, sync
const (
	MessageMax         = 512 // scratch buffer size (several frames)
	MessageHeaderSize  = 2
	MessageTrailerSize = 3
	MessageLengthMin   = MessageHeaderSize + MessageTrailerSize
	MessageLengthMax   = 64
	MessagePositionLen = 0
	MessagePositionSeq = 1
	MessageTrailerCRC  = 3
	MessageTrailerSync = 1
	MessageValueSync   = 0x7E
	MessageDest        = 0x10

	// Message sequence masks
	MessageSeqMask = 0x0F

	// MessagePayloadMax is the largest payload that fits in one frame
	MessagePayloadMax = MessageLengthMax - MessageLengthMin
)

// Frame is one decoded message block
type Frame struct {
	Sequence uint8
	Data     []byte
}
