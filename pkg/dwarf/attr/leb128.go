package attr

// maxLEB128Bytes caps LEB128 decoding so a corrupt, never-terminating
// continuation-bit stream cannot spin forever over a malformed location
// expression: 10 bytes covers every value up to 64 bits plus continuation
// overhead, matching the "MALFORMED_EXPRESSION" ceiling spec §7 expects a
// diagnostic for rather than a hang.
const maxLEB128Bytes = 10

// decodeULEB128 decodes an unsigned LEB128 value from the front of data,
// per the teacher's llvm.decodeULEB128, generalized to 64 bits and bounded
// so malformed input returns ok=false instead of looping.
func decodeULEB128(data []byte) (value uint64, n int, ok bool) {
	var shift uint
	for i := 0; i < len(data) && i < maxLEB128Bytes; i++ {
		b := data[i]
		value |= uint64(b&0x7f) << shift
		shift += 7
		if b&0x80 == 0 {
			return value, i + 1, true
		}
	}
	return 0, 0, false
}

// decodeSLEB128 decodes a signed LEB128 value from the front of data, per
// the teacher's llvm.decodeSLEB128, generalized to 64 bits and bounded.
func decodeSLEB128(data []byte) (value int64, n int, ok bool) {
	var shift uint
	var b byte
	for i := 0; i < len(data) && i < maxLEB128Bytes; i++ {
		b = data[i]
		value |= int64(b&0x7f) << shift
		shift += 7
		if b&0x80 == 0 {
			if shift < 64 && b&0x40 != 0 {
				value |= -1 << shift
			}
			return value, i + 1, true
		}
	}
	return 0, 0, false
}
