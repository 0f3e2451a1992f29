package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTruncate(t *testing.T) {
	assert.Equal(t, "héll", Truncate("héllo", 4))
	assert.Equal(t, "abc", Truncate("abc", 10))
	assert.Equal(t, "", Truncate("abc", 0))
}

func TestCollapseWhitespace(t *testing.T) {
	assert.Equal(t, "Build AI agents", CollapseWhitespace("  Build\n\tAI   agents \n"))
}

func TestFingerprintStable(t *testing.T) {
	assert.Equal(t, Fingerprint("acme"), Fingerprint("acme"))
	assert.NotEqual(t, Fingerprint("acme"), Fingerprint("beta"))
	assert.Len(t, Fingerprint("acme"), 16)
}
