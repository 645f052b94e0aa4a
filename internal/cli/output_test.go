package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOutputFormatterSuccessText(t *testing.T) {
	var buf bytes.Buffer
	f := &OutputFormatter{Format: "text", Writer: &buf}

	require.NoError(t, f.Success("category 3 created"))
	assert.Equal(t, "category 3 created\n", buf.String())
}

func TestOutputFormatterSuccessJSON(t *testing.T) {
	var buf bytes.Buffer
	f := &OutputFormatter{Format: "json", Writer: &buf}

	require.NoError(t, f.Success(map[string]int{"id": 3}))

	var resp CLIResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Nil(t, resp.Error)
}

func TestOutputFormatterErrorJSON(t *testing.T) {
	var buf bytes.Buffer
	f := &OutputFormatter{Format: "json", Writer: &buf}

	require.NoError(t, f.Error("NOT_FOUND", "order gone", nil))

	var resp CLIResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "NOT_FOUND", resp.Error.Code)
}

func TestOutputFormatterErrorText(t *testing.T) {
	var buf bytes.Buffer
	f := &OutputFormatter{Format: "text", Writer: &buf}

	require.NoError(t, f.Error("FORBIDDEN", "administrator access required", nil))
	assert.Contains(t, buf.String(), "Error [FORBIDDEN]: administrator access required")
}

func TestExitErrorCodes(t *testing.T) {
	base := errors.New("boom")

	wrapped := WrapExitError(ExitCommandError, "failed to open database", base)
	assert.Equal(t, ExitCommandError, GetExitCode(wrapped))
	assert.ErrorIs(t, wrapped, base)
	assert.Contains(t, wrapped.Error(), "failed to open database: boom")

	plain := NewExitError(ExitFailure, "operation failed")
	assert.Equal(t, ExitFailure, GetExitCode(plain))
	assert.Equal(t, "operation failed", plain.Error())

	assert.Equal(t, ExitFailure, GetExitCode(base))
}
