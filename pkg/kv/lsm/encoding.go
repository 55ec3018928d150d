package lsm

import "encoding/binary"

func beUint64(b []byte) uint64       { return binary.BigEndian.Uint64(b) }
func putBeUint64(b []byte, v uint64) { binary.BigEndian.PutUint64(b, v) }

// encodeBlobIDs packs a BLOB reference identifier list as consecutive
// big-endian uint64s.
func encodeBlobIDs(ids []uint64) []byte {
	out := make([]byte, 8*len(ids))
	for i, id := range ids {
		putBeUint64(out[i*8:i*8+8], id)
	}
	return out
}

func decodeBlobIDs(raw []byte) []uint64 {
	if len(raw) == 0 {
		return nil
	}
	ids := make([]uint64, len(raw)/8)
	for i := range ids {
		ids[i] = beUint64(raw[i*8 : i*8+8])
	}
	return ids
}
