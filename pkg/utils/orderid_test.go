package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGenerateOrderID_Format(t *testing.T) {
	for i := 0; i < 100; i++ {
		id := GenerateOrderID()
		assert.Regexp(t, `^ORD-\d{6}-\d{4}$`, id)
	}
}

func TestGenerateOrderID_MostlyUnique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		seen[GenerateOrderID()] = true
	}
	// Random 10-digit space; collisions in 1000 draws should be rare.
	assert.Greater(t, len(seen), 990)
}
