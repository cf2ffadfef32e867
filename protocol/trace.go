package protocol

// TraceRecord is one subsystem trace event on the wire.
// Each field is VLQ encoded in declaration order.
type TraceRecord struct {
	Seq     uint32
	Type    uint8
	Timer   uint8
	Channel uint8
	Value   uint32
}

// EncodeTraceRecord appends r to output
func EncodeTraceRecord(output OutputBuffer, r TraceRecord) {
	EncodeVLQUint(output, r.Seq)
	EncodeVLQUint(output, uint32(r.Type))
	EncodeVLQUint(output, uint32(r.Timer))
	EncodeVLQUint(output, uint32(r.Channel))
	EncodeVLQUint(output, r.Value)
}

// DecodeTraceRecord decodes one record and advances data past it
func DecodeTraceRecord(data *[]byte) (TraceRecord, error) {
	var r TraceRecord
	var fields [5]uint32
	for i := range fields {
		v, err := DecodeVLQUint(data)
		if err != nil {
			return TraceRecord{}, err
		}
		fields[i] = v
	}
	r.Seq = fields[0]
	r.Type = uint8(fields[1])
	r.Timer = uint8(fields[2])
	r.Channel = uint8(fields[3])
	r.Value = fields[4]
	return r, nil
}

// DecodeTraceRecords decodes every record in a frame payload
func DecodeTraceRecords(payload []byte) ([]TraceRecord, error) {
	var out []TraceRecord
	for len(payload) > 0 {
		r, err := DecodeTraceRecord(&payload)
		if err != nil {
			return out, err
		}
		out = append(out, r)
	}
	return out, nil
}

// EncodeTraceFrames packs records into as few frames as fit, starting at
// sequence seq, and returns the next sequence number
func EncodeTraceFrames(output OutputBuffer, seq uint8, records []TraceRecord) (uint8, error) {
	payload := NewScratchOutput()
	record := NewScratchOutput()

	flush := func() error {
		if payload.CurPosition() == 0 {
			return nil
		}
		if err := EncodeFrame(output, seq, payload.Result()); err != nil {
			return err
		}
		seq = (seq + 1) & MessageSeqMask
		payload.Reset()
		return nil
	}

	for _, r := range records {
		record.Reset()
		EncodeTraceRecord(record, r)
		if payload.CurPosition()+record.CurPosition() > MessagePayloadMax {
			if err := flush(); err != nil {
				return seq, err
			}
		}
		payload.Output(record.Result())
	}
	if err := flush(); err != nil {
		return seq, err
	}
	return seq, nil
}
