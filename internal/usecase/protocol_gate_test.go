package usecase_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"mcp-gateway/internal/domain/entity"
	"mcp-gateway/internal/usecase"
)

func TestCheckProtocolVersion(t *testing.T) {
	assert.NoError(t, usecase.CheckProtocolVersion(""))
	assert.NoError(t, usecase.CheckProtocolVersion(entity.CurrentProtocolVersion))

	err := usecase.CheckProtocolVersion("2.0")
	require.Error(t, err)
	assert.Equal(t, entity.CodeUnsupportedProtocolVersion, entity.CodeOf(err))

	gwErr, ok := entity.AsGatewayError(err)
	require.True(t, ok)
	assert.Equal(t, []string{"1.0"}, gwErr.Details["supported_versions"])
	assert.Contains(t, gwErr.Message, "2.0")
}
