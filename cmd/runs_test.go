package main

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/sells-group/persona-cli/internal/model"
)

func TestFormatRunsList(t *testing.T) {
	now := time.Date(2025, 6, 15, 10, 30, 0, 0, time.UTC)
	runs := []model.Run{
		{
			ID:        "abc12345-6789-0000-0000-000000000000",
			PersonID:  "fedcba98-0000-0000-0000-000000000000",
			Kind:      model.RunKindPersona,
			Status:    model.RunStatusComplete,
			Result:    &model.RunResult{Phases: []model.PhaseResult{{Name: "scan"}, {Name: "classify"}, {Name: "extract"}}},
			CreatedAt: now,
			UpdatedAt: now.Add(2 * time.Minute),
		},
		{
			ID:        "def12345-6789-0000-0000-000000000000",
			PersonID:  "p1",
			Kind:      model.RunKindScan,
			Status:    model.RunStatusScanning,
			CreatedAt: now.Add(-1 * time.Hour),
			UpdatedAt: now.Add(-1 * time.Hour),
		},
	}

	var buf bytes.Buffer
	formatRunsList(&buf, runs)

	output := buf.String()
	assert.Contains(t, output, "PERSON")
	assert.Contains(t, output, "KIND")
	assert.Contains(t, output, "abc12345")
	assert.Contains(t, output, "fedcba98")
	assert.Contains(t, output, "persona")
	assert.Contains(t, output, "complete")
	assert.Contains(t, output, "2m0s")
	assert.Contains(t, output, "scanning")
	assert.Contains(t, output, "2025-06-15 10:30")
}

func TestTruncateID(t *testing.T) {
	assert.Equal(t, "abc12345", truncateID("abc12345-6789"))
	assert.Equal(t, "short", truncateID("short"))
	assert.Equal(t, "", truncateID(""))
}
