package midi

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAppendVLQ(t *testing.T) {
	cases := []struct {
		value    uint32
		expected []byte
	}{
		{0, []byte{0x00}},
		{0x40, []byte{0x40}},
		{0x7F, []byte{0x7F}},
		{0x80, []byte{0x81, 0x00}},
		{480, []byte{0x83, 0x60}},
		{960, []byte{0x87, 0x40}},
		{0x2000, []byte{0xC0, 0x00}},
		{0x3FFF, []byte{0xFF, 0x7F}},
		{0x4000, []byte{0x81, 0x80, 0x00}},
		{0x1FFFFF, []byte{0xFF, 0xFF, 0x7F}},
		{0x200000, []byte{0x81, 0x80, 0x80, 0x00}},
		{MaxVLQ, []byte{0xFF, 0xFF, 0xFF, 0x7F}},
	}

	for _, c := range cases {
		t.Run(fmt.Sprintf("%#x", c.value), func(t *testing.T) {
			res, err := AppendVLQ(nil, c.value)
			assert.NoError(t, err)
			assert.Equal(t, c.expected, res)
		})
	}
}

func TestAppendVLQKeepsPrefix(t *testing.T) {
	res, err := AppendVLQ([]byte{0xAA}, 0x80)
	assert.NoError(t, err)
	assert.Equal(t, []byte{0xAA, 0x81, 0x00}, res)
}

func TestAppendVLQOverflow(t *testing.T) {
	_, err := AppendVLQ(nil, MaxVLQ+1)
	assert.ErrorIs(t, err, ErrTickOverflow)
}
