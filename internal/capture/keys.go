package capture

import "encoding/binary"

// Keyspace, byte-wise sortable:
// - cap/{session}/m
// - cap/{session}/e/{seq_be8}

var (
	capPrefix  = []byte("cap/")
	metaSuffix = []byte("/m")
	entrySeg   = []byte("/e/")
)

func appendBE8(dst []byte, v uint64) []byte {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], v)
	return append(dst, b[:]...)
}

// keyMeta builds the session metadata key holding the last sequence.
func keyMeta(session string) []byte {
	k := make([]byte, 0, len(capPrefix)+len(session)+len(metaSuffix))
	k = append(k, capPrefix...)
	k = append(k, session...)
	k = append(k, metaSuffix...)
	return k
}

// keyEntry builds the record key; the big-endian sequence keeps iteration
// in append order.
func keyEntry(session string, seq uint64) []byte {
	k := make([]byte, 0, len(capPrefix)+len(session)+len(entrySeg)+8)
	k = append(k, capPrefix...)
	k = append(k, session...)
	k = append(k, entrySeg...)
	k = appendBE8(k, seq)
	return k
}

// keySessionPrefix bounds all keys belonging to one session.
func keySessionPrefix(session string) []byte {
	k := make([]byte, 0, len(capPrefix)+len(session)+1)
	k = append(k, capPrefix...)
	k = append(k, session...)
	k = append(k, '/')
	return k
}

// prefixUpperBound returns the smallest key greater than every key with
// the given prefix.
func prefixUpperBound(prefix []byte) []byte {
	end := append([]byte(nil), prefix...)
	for i := len(end) - 1; i >= 0; i-- {
		if end[i] < 0xff {
			end[i]++
			return end[:i+1]
		}
	}
	return nil
}
