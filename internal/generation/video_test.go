package generation

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUnavailableVideo(t *testing.T) {
	var v UnavailableVideo
	assert.False(t, v.Available())

	out, err := v.GenerateVideo(context.Background(), VideoRequest{Prompt: "showcase"})
	assert.Nil(t, out)
	assert.ErrorIs(t, err, ErrVideoUnavailable)
}
