package log

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	serrors "github.com/YuminosukeSato/seriesml/pkg/errors"
)

func TestZerologLoggerWritesJSON(t *testing.T) {
	var buf bytes.Buffer
	logger := NewZerologLogger(&buf, LevelDebug).With(ComponentKey, "stats")

	logger.Info("job finished", JobKey, "stats.aggregate", RecordsInKey, 3)

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "info", entry["level"])
	assert.Equal(t, "job finished", entry["message"])
	assert.Equal(t, "stats", entry[ComponentKey])
	assert.Equal(t, "stats.aggregate", entry[JobKey])
	assert.Equal(t, 3.0, entry[RecordsInKey])
}

func TestZerologLoggerLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := NewZerologLogger(&buf, LevelWarn)
	ctx := context.Background()

	assert.False(t, logger.Enabled(ctx, LevelInfo))
	assert.True(t, logger.Enabled(ctx, LevelError))

	logger.Info("dropped")
	logger.Warn("kept")

	out := buf.String()
	assert.NotContains(t, out, "dropped")
	assert.Contains(t, out, "kept")
}

func TestMarshalErrorUsesTypedFields(t *testing.T) {
	err := serrors.NewTypeMismatchError("Value.Add", "float64", "int64")

	marshaled := marshalError(err)
	se, ok := marshaled.(structuredError)
	require.True(t, ok, "expected structuredError, got %T", marshaled)
	assert.Equal(t, err, se.err)

	plain := fmt.Errorf("plain")
	assert.Equal(t, plain, marshalError(plain))
}

func TestSetLoggerRoutesWarnings(t *testing.T) {
	testLogger, _ := NewTestLogger(LevelDebug)
	previous := GetLogger()
	SetLogger(testLogger)
	defer SetLogger(previous)

	serrors.Warn(serrors.NewDataConversionWarning("temp", "n/a", "float64", "invalid syntax"))

	assert.True(t, testLogger.ContainsMessage(`could not convert \"n/a\"`))
	assert.True(t, testLogger.ContainsField(ComponentKey, "warnings"))
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    Level
		wantErr bool
	}{
		{"debug", LevelDebug, false},
		{"INFO", LevelInfo, false},
		{"warning", LevelWarn, false},
		{"error", LevelError, false},
		{"verbose", LevelInfo, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLevel(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTestLoggerWith(t *testing.T) {
	testLogger, buffer := NewTestLogger(LevelDebug)

	contextLogger := testLogger.With(JobKey, "regression.epoch", RunIDKey, "run-1")
	contextLogger.Info("epoch finished", EpochKey, 2, LossKey, 0.25)
	contextLogger.Error("epoch failed", ErrAttrKey, fmt.Errorf("boom"))

	assert.True(t, testLogger.ContainsField(JobKey, "regression.epoch"))
	assert.True(t, testLogger.ContainsField(EpochKey, 2.0))
	assert.True(t, testLogger.ContainsField(ErrAttrKey, "boom"))
	assert.Equal(t, 2, strings.Count(buffer.String(), "\n"))
}
