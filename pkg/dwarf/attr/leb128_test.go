package attr

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDecodeULEB128(t *testing.T) {
	tests := []struct {
		name    string
		in      []byte
		want    uint64
		wantN   int
		wantOK  bool
	}{
		{"zero", []byte{0x00}, 0, 1, true},
		{"single byte", []byte{0x7f}, 127, 1, true},
		{"three bytes", []byte{0xe5, 0x8e, 0x26}, 624485, 3, true},
		{"unterminated", []byte{0x80, 0x80, 0x80, 0x80, 0x80, 0x80, 0x80, 0x80, 0x80, 0x80}, 0, 0, false},
		{"empty", nil, 0, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, n, ok := decodeULEB128(tt.in)
			assert.Equal(t, tt.wantOK, ok)
			if ok {
				assert.Equal(t, tt.want, got)
				assert.Equal(t, tt.wantN, n)
			}
		})
	}
}

func TestDecodeSLEB128(t *testing.T) {
	tests := []struct {
		name   string
		in     []byte
		want   int64
		wantOK bool
	}{
		{"zero", []byte{0x00}, 0, true},
		{"positive small", []byte{0x02}, 2, true},
		{"negative small", []byte{0x7e}, -2, true},
		{"negative three bytes", []byte{0x9b, 0xf1, 0x59}, -624485, true},
		{"unterminated", []byte{0x80, 0x80, 0x80, 0x80, 0x80, 0x80, 0x80, 0x80, 0x80, 0x80}, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, _, ok := decodeSLEB128(tt.in)
			assert.Equal(t, tt.wantOK, ok)
			if ok {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}
