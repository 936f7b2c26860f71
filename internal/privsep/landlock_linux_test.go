//go:build linux

package privsep

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAllowRules(t *testing.T) {
	assert.Len(t, allowRules(Options{}), 1)
	assert.Len(t, allowRules(Options{AllowDNS: true}), 2)
}
