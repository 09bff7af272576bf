package midi

import "fmt"

// largest value a 4 byte variable-length quantity can hold
const MaxVLQ = 0x0FFFFFFF

// AppendVLQ appends v as a MIDI variable-length quantity: 7 bits per byte,
// most significant group first, high bit set on all but the last byte.
func AppendVLQ(dst []byte, v uint32) ([]byte, error) {
	if v > MaxVLQ {
		return dst, fmt.Errorf("%w: %d exceeds %d", ErrTickOverflow, v, MaxVLQ)
	}

	var groups [4]byte
	n := 0
	for {
		groups[n] = byte(v & 0x7F)
		n++
		v >>= 7
		if v == 0 {
			break
		}
	}
	for i := n - 1; i >= 0; i-- {
		b := groups[i]
		if i > 0 {
			b |= 0x80
		}
		dst = append(dst, b)
	}
	return dst, nil
}
