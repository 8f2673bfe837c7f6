// ABOUTME: Tests for the colorized slog handler.
// ABOUTME: Covers level filtering and group-qualified attribute keys.

package main

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
)

func newPlainHandler(t *testing.T, level slog.Level) (*colorHandler, *bytes.Buffer) {
	t.Helper()
	prev := color.NoColor
	color.NoColor = true
	t.Cleanup(func() { color.NoColor = prev })

	var buf bytes.Buffer
	return newColorHandler(&buf, level), &buf
}

func TestColorHandler_LevelFilter(t *testing.T) {
	h, buf := newPlainHandler(t, slog.LevelWarn)
	logger := slog.New(h)

	logger.Debug("hidden")
	logger.Info("hidden too")
	logger.Warn("shown")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "WRN shown")
}

func TestColorHandler_GroupQualifiesKeys(t *testing.T) {
	h, buf := newPlainHandler(t, slog.LevelDebug)
	logger := slog.New(h).WithGroup("req").With("id", 7)

	logger.Info("handled", "path", "/agents")

	out := buf.String()
	assert.Contains(t, out, "req.id=7")
	assert.Contains(t, out, "req.path=/agents")
}

func TestColorHandler_AttrsOutsideGroupStayBare(t *testing.T) {
	h, buf := newPlainHandler(t, slog.LevelDebug)
	logger := slog.New(h).With("component", "session").WithGroup("agent")

	logger.Info("selected", "id", 3)

	out := buf.String()
	assert.Contains(t, out, "component=session")
	assert.Contains(t, out, "agent.id=3")
	assert.NotContains(t, out, "agent.component")
}
