package protocol

import "errors"

var ErrFrameTooLarge = errors.New("payload too large for one frame")

// EncodeFrame appends one frame carrying payload to output
func EncodeFrame(output OutputBuffer, seq uint8, payload []byte) error {
	msgLen := len(payload) + MessageLengthMin
	if msgLen > MessageLengthMax {
		return ErrFrameTooLarge
	}

	start := output.CurPosition()
	output.Output([]byte{uint8(msgLen), MessageDest | (seq & MessageSeqMask)})
	output.Output(payload)

	crc := CRC16(output.DataSince(start))
	output.Output([]byte{
		uint8((crc & 0xFF00) >> 8),
		uint8(crc & 0xFF),
		MessageValueSync,
	})
	return nil
}

// FrameDecoder splits a byte stream into frames, resynchronising on the
// sync byte after corruption
type FrameDecoder struct {
	unsynced bool
	dropped  uint32
}

// NewFrameDecoder creates a decoder that starts synchronised
func NewFrameDecoder() *FrameDecoder {
	return &FrameDecoder{}
}

// Dropped returns the number of times the decoder lost synchronisation
func (d *FrameDecoder) Dropped() uint32 { return d.dropped }

func (d *FrameDecoder) desync() {
	d.unsynced = true
	d.dropped++
}

// Receive consumes complete frames from input and returns them.
// A trailing partial frame is left in input for the next call.
func (d *FrameDecoder) Receive(input InputBuffer) []Frame {
	data := input.Data()
	var frames []Frame

	for len(data) > 0 {
		if d.unsynced {
			// Look for sync byte to resynchronize
			syncPos := -1
			for i, b := range data {
				if b == MessageValueSync {
					syncPos = i
					break
				}
			}
			if syncPos < 0 {
				data = nil
				break
			}
			data = data[syncPos+1:]
			d.unsynced = false
			continue
		}

		// Skip leading sync bytes
		if data[0] == MessageValueSync {
			data = data[1:]
			continue
		}

		if len(data) < MessageLengthMin {
			break
		}

		msgLen := int(data[MessagePositionLen])
		if msgLen < MessageLengthMin || msgLen > MessageLengthMax {
			d.desync()
			continue
		}

		seq := data[MessagePositionSeq]
		if seq&^MessageSeqMask != MessageDest {
			d.desync()
			continue
		}

		// Wait for full message
		if len(data) < msgLen {
			break
		}

		if data[msgLen-MessageTrailerSync] != MessageValueSync {
			d.desync()
			continue
		}

		frameCRC := uint16(data[msgLen-MessageTrailerCRC])<<8 |
			uint16(data[msgLen-MessageTrailerCRC+1])
		if frameCRC != CRC16(data[:msgLen-MessageTrailerSize]) {
			d.desync()
			continue
		}

		payload := data[MessageHeaderSize : msgLen-MessageTrailerSize]
		frames = append(frames, Frame{
			Sequence: seq & MessageSeqMask,
			Data:     append([]byte(nil), payload...),
		})
		data = data[msgLen:]
	}

	consumed := input.Available() - len(data)
	if consumed > 0 {
		input.Pop(consumed)
	}
	return frames
}
