package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWithWriter_TagsService(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(&buf, "storefront", "production")

	log.Debug("hidden")
	log.Info("visible", "k", "v")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "visible", entry["msg"])
	assert.Equal(t, "storefront", entry["service"])
	assert.Equal(t, "v", entry["k"])
}
