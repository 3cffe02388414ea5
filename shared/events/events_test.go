package events

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWrapUnwrap(t *testing.T) {
	path := "workspace/output.js"
	b, err := Wrap(CodeGenerated, CodeResultPayload{
		RequestID: "r1", Mode: "generate", Text: "const a = 1;", FilePath: &path, Provider: "Gemini",
	})
	require.NoError(t, err)

	env, err := UnwrapEnvelope(b)
	require.NoError(t, err)
	assert.Equal(t, CodeGenerated, env.RoutingKey)
	assert.NotEmpty(t, env.ID)
	assert.False(t, env.Timestamp.IsZero())

	p, err := Unwrap[CodeResultPayload](b)
	require.NoError(t, err)
	assert.Equal(t, "r1", p.RequestID)
	require.NotNil(t, p.FilePath)
	assert.Equal(t, path, *p.FilePath)
}

func TestUnwrapGarbage(t *testing.T) {
	_, err := Unwrap[CodeRequestedPayload]([]byte("not json"))
	require.Error(t, err)
}
