package captouch

import "encoding/binary"

// RecordSize is the encoded size of a Record.
const RecordSize = 6

// Record is one processed high-frequency sample.
type Record struct {
	Raw         uint16
	Filtered    uint16
	Transformed uint16
}

// Bytes encodes the record as three little-endian 16-bit fields in
// raw, filtered, transformed order.
func (r Record) Bytes() []byte {
	b := make([]byte, 0, RecordSize)
	b = binary.LittleEndian.AppendUint16(b, r.Raw)
	b = binary.LittleEndian.AppendUint16(b, r.Filtered)
	b = binary.LittleEndian.AppendUint16(b, r.Transformed)
	return b
}
