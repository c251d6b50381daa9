package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExitError(t *testing.T) {
	cause := errors.New("disk full")

	plain := NewExitError(ExitCommandError, "bad input")
	assert.Equal(t, "bad input", plain.Error())
	assert.Nil(t, plain.Unwrap())

	wrapped := WrapExitError(ExitFailure, "save failed", cause)
	assert.Equal(t, "save failed: disk full", wrapped.Error())
	assert.ErrorIs(t, wrapped, cause)
}

func TestGetExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, ExitSuccess},
		{"plain error", errors.New("boom"), ExitFailure},
		{"exit error", NewExitError(ExitCommandError, "bad"), ExitCommandError},
		{"restart", NewExitError(ExitRestart, "update"), ExitRestart},
		{"wrapped exit error", fmt.Errorf("outer: %w", NewExitError(ExitRestart, "update")), ExitRestart},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, GetExitCode(tt.err))
		})
	}
}

func TestOutputFormatter_JSONSuccess(t *testing.T) {
	var buf bytes.Buffer
	f := &OutputFormatter{Format: "json", Writer: &buf}

	err := f.Success(map[string]int{"count": 2}, func(io.Writer) error {
		t.Fatal("text renderer must not run in json mode")
		return nil
	})
	require.NoError(t, err)

	var resp struct {
		Status string         `json:"status"`
		Data   map[string]int `json:"data"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, 2, resp.Data["count"])
}

func TestOutputFormatter_TextSuccess(t *testing.T) {
	var buf bytes.Buffer
	f := &OutputFormatter{Format: "text", Writer: &buf}

	err := f.Success(nil, func(w io.Writer) error {
		_, err := io.WriteString(w, "done\n")
		return err
	})
	require.NoError(t, err)
	assert.Equal(t, "done\n", buf.String())
}

func TestOutputFormatter_Error(t *testing.T) {
	err := NewExitError(ExitCommandError, "no credentials stored")

	var jsonBuf bytes.Buffer
	require.NoError(t, (&OutputFormatter{Format: "json", Writer: &jsonBuf}).Error(err))

	var resp CLIResponse
	require.NoError(t, json.Unmarshal(jsonBuf.Bytes(), &resp))
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ExitCommandError, resp.Error.Code)
	assert.Equal(t, "no credentials stored", resp.Error.Message)

	var textBuf bytes.Buffer
	require.NoError(t, (&OutputFormatter{Format: "text", Writer: &textBuf}).Error(err))
	assert.Equal(t, "Error: no credentials stored\n", textBuf.String())
}
