package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_Level(t *testing.T) {
	assert.Equal(t, logrus.DebugLevel, New("debug", "text").GetLevel())
	assert.Equal(t, logrus.InfoLevel, New("nonsense", "text").GetLevel())
}

func TestNew_JSONFormat(t *testing.T) {
	l := New("info", "JSON")
	var buf bytes.Buffer
	l.SetOutput(&buf)

	l.WithField("chat_id", 42).Info("Reminder created")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "Reminder created", entry["msg"])
	assert.Equal(t, float64(42), entry["chat_id"])
}

func TestNew_TextFormat(t *testing.T) {
	_, ok := New("info", "").Formatter.(*logrus.TextFormatter)
	assert.True(t, ok)
}
