package postgres

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPlaceholders(t *testing.T) {
	assert.Equal(t, "$1", placeholder(1))
	assert.Equal(t, "$1, $2, $3", placeholders(3))
	assert.Equal(t, "", placeholders(0))
}
