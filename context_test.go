package compass

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVerboseContext(t *testing.T) {
	ctx := context.Background()
	assert.False(t, IsVerbose(ctx))
	assert.True(t, IsVerbose(WithVerbose(ctx, true)))
	assert.False(t, IsVerbose(WithVerbose(ctx, false)))
}
