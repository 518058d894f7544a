package logging_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/omochice/toy-handle-chat/internal/logging"
)

func TestNew_FiltersByLevel(t *testing.T) {
	var buf bytes.Buffer
	logger, err := logging.New("warn", &buf)
	require.NoError(t, err)

	logger.Info("hidden")
	logger.Warn("shown", zap.String("peer", "srv"))

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "WARN")
	assert.Contains(t, buf.String(), "shown")
	assert.Contains(t, buf.String(), `"peer": "srv"`)
}

func TestNew_InvalidLevel(t *testing.T) {
	_, err := logging.New("loud", &bytes.Buffer{})
	assert.Error(t, err)
}
