package pkg

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestContains(t *testing.T) {
	assert.True(t, Contains([]string{"a", "b"}, "b"))
	assert.False(t, Contains(nil, "a"))
}

func TestHasAnyPrefix(t *testing.T) {
	allowed := []string{"image/", "video/", "application/pdf"}
	assert.True(t, HasAnyPrefix("image/png", allowed))
	assert.True(t, HasAnyPrefix("application/pdf", allowed))
	assert.False(t, HasAnyPrefix("application/zip", allowed))
	assert.False(t, HasAnyPrefix("image/png", nil))
}
