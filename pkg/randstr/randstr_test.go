package randstr

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGenerateRandomString(t *testing.T) {
	charset := []byte("ABC123")
	g := New(charset)

	for range 100 {
		s := g.GenerateRandomString(8)
		assert.Len(t, s, 8)
		for _, r := range s {
			assert.True(t, strings.ContainsRune(string(charset), r), "unexpected character %q", r)
		}
	}
}

func TestGenerateRandomStringEmpty(t *testing.T) {
	g := New([]byte("X"))
	assert.Equal(t, "", g.GenerateRandomString(0))
}
