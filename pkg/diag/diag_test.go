package diag

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWarnRateLimitsPerKindAndKey(t *testing.T) {
	sink := New(false)

	sink.Warn(KindUnsupportedTag, "DW_TAG_foo", "unsupported tag")
	sink.Warn(KindUnsupportedTag, "DW_TAG_foo", "unsupported tag")
	sink.Warn(KindUnsupportedTag, "DW_TAG_foo", "unsupported tag")
	sink.Warn(KindUnsupportedTag, "DW_TAG_bar", "unsupported tag")

	counts := sink.Counts()
	assert.Equal(t, 3, counts[string(KindUnsupportedTag)+"\x00DW_TAG_foo"])
	assert.Equal(t, 1, counts[string(KindUnsupportedTag)+"\x00DW_TAG_bar"])

	lines := sink.Dump()
	assert.Len(t, lines, 2, "only the first occurrence of each distinct key should reach the ring buffer")
}

func TestStrictFlagIsRecorded(t *testing.T) {
	assert.False(t, New(false).Strict())
	assert.True(t, New(true).Strict())
}
