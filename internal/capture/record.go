package capture

import (
	"encoding/binary"
	"hash/crc32"
	"time"
)

// Record is one captured message.
type Record struct {
	Topic    string
	Payload  []byte
	QoS      byte
	Retained bool
	At       time.Time
}

// Stored encoding: varint headerLen | header | payload | crc32c(header|payload)
// Header: [8 bytes ms timestamp][1 byte flags][topic bytes]
// Flags: bits 0-1 QoS, bit 2 retained.

const headerFixed = 9

var castagnoli = crc32.MakeTable(crc32.Castagnoli)

func encodeRecord(r Record) []byte {
	header := make([]byte, 0, headerFixed+len(r.Topic))
	header = appendBE8(header, uint64(r.At.UnixMilli()))
	flags := r.QoS & 0x03
	if r.Retained {
		flags |= 0x04
	}
	header = append(header, flags)
	header = append(header, r.Topic...)

	out := make([]byte, 0, 10+len(header)+len(r.Payload)+4)
	var tmp [10]byte
	n := binary.PutUvarint(tmp[:], uint64(len(header)))
	out = append(out, tmp[:n]...)
	out = append(out, header...)
	out = append(out, r.Payload...)

	crc := crc32.Update(0, castagnoli, header)
	crc = crc32.Update(crc, castagnoli, r.Payload)
	var crcb [4]byte
	binary.BigEndian.PutUint32(crcb[:], crc)
	out = append(out, crcb[:]...)
	return out
}

func decodeRecord(b []byte) (Record, bool) {
	if len(b) < 1+headerFixed+4 {
		return Record{}, false
	}
	hlen, n := binary.Uvarint(b)
	if n <= 0 || hlen < headerFixed {
		return Record{}, false
	}
	if n+int(hlen)+4 > len(b) {
		return Record{}, false
	}
	header := b[n : n+int(hlen)]
	payload := b[n+int(hlen) : len(b)-4]
	expect := binary.BigEndian.Uint32(b[len(b)-4:])
	crc := crc32.Update(0, castagnoli, header)
	crc = crc32.Update(crc, castagnoli, payload)
	if crc != expect {
		return Record{}, false
	}

	ms := int64(binary.BigEndian.Uint64(header[:8]))
	flags := header[8]
	return Record{
		Topic:    string(header[headerFixed:]),
		Payload:  append([]byte(nil), payload...),
		QoS:      flags & 0x03,
		Retained: flags&0x04 != 0,
		At:       time.UnixMilli(ms),
	}, true
}

// recordTimestampMs reads the header timestamp without decoding the whole
// record. Used by age-based trimming.
func recordTimestampMs(b []byte) (int64, bool) {
	hlen, n := binary.Uvarint(b)
	if n <= 0 || hlen < headerFixed || n+8 > len(b) {
		return 0, false
	}
	return int64(binary.BigEndian.Uint64(b[n : n+8])), true
}
