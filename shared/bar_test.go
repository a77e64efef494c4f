package shared

import (
	"testing"

	"github.com/peterldowns/testy/assert"
)

func TestIsOrdered(t *testing.T) {
	assert.True(t, IsOrdered(nil))
	assert.True(t, IsOrdered([]Bar{{Time: 1}}))
	assert.True(t, IsOrdered([]Bar{{Time: 1}, {Time: 2}, {Time: 5}}))
	assert.False(t, IsOrdered([]Bar{{Time: 1}, {Time: 1}}))
	assert.False(t, IsOrdered([]Bar{{Time: 3}, {Time: 2}}))
}
