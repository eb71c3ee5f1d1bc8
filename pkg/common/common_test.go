package common

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUUIDint64_Unique(t *testing.T) {
	seen := make(map[int64]struct{}, 1000)
	for i := 0; i < 1000; i++ {
		id := UUIDint64()
		_, dup := seen[id]
		assert.False(t, dup)
		seen[id] = struct{}{}
	}
	assert.NotEmpty(t, UUID())
}

func TestStringHelpers(t *testing.T) {
	assert.True(t, IsEmptyOrNA("  "))
	assert.True(t, IsEmptyOrNA("n/a"))
	assert.False(t, IsEmptyOrNA("x"))
	assert.Equal(t, "def", IfEmptyStr(" ", "def"))
	assert.Equal(t, "v", IfEmptyStr("v", "def"))
	assert.Equal(t, "****cret", MaskSecret("opsecret"))
	assert.Equal(t, "***", MaskSecret("abc"))
}
