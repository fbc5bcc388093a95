package cli

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeTestPDF creates a minimal PDF file and returns its path.
func writeTestPDF(t *testing.T, name string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte("%PDF-1.7 test content"), 0o644))
	return path
}

func TestIndexCmd_Use(t *testing.T) {
	assert.Equal(t, "index [files...]", indexCmd.Use)
}

func TestIndexCmd_Short(t *testing.T) {
	assert.Equal(t, "Index PDF documents", indexCmd.Short)
}

func TestIndexCmd_RequiresAtLeastOneArg(t *testing.T) {
	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs([]string{"index"})
	defer func() {
		rootCmd.SetArgs(nil)
	}()

	err := rootCmd.Execute()

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "requires at least 1 arg(s)")
}

func TestIndexCmd_HasWaitFlag(t *testing.T) {
	flag := indexCmd.Flags().Lookup("wait")
	require.NotNil(t, flag, "wait flag should exist")
	assert.Equal(t, "w", flag.Shorthand)
	assert.Equal(t, "false", flag.DefValue)
}

func TestIndexCmd_ServiceNotConfigured(t *testing.T) {
	oldService := indexingService
	indexingService = nil
	defer func() {
		indexingService = oldService
	}()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs([]string{"index", "report.pdf"})
	defer func() {
		rootCmd.SetArgs(nil)
	}()

	err := rootCmd.Execute()

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "indexing service not configured")
}

func TestIndexCmd_UnreadableFile(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs([]string{"index", filepath.Join(t.TempDir(), "missing.pdf")})
	defer func() {
		rootCmd.SetArgs(nil)
	}()

	err := rootCmd.Execute()

	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read")
}

func TestIndexCmd_SubmitsFile(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	path := writeTestPDF(t, "report.pdf")

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetArgs([]string{"index", path})
	defer func() {
		rootCmd.SetArgs(nil)
	}()

	err := rootCmd.Execute()

	require.NoError(t, err)
	assert.Contains(t, buf.String(), "Submitted report.pdf (job job-1)")
	assert.Contains(t, buf.String(), "docquery jobs")
}

func TestIndexCmd_SubmitError(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	indexingService = &mockIndexingService{submitErr: errors.New("not a PDF file")}

	path := writeTestPDF(t, "report.pdf")

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs([]string{"index", path})
	defer func() {
		rootCmd.SetArgs(nil)
	}()

	err := rootCmd.Execute()

	require.Error(t, err)
	assert.Contains(t, err.Error(), "not a PDF file")
}

func TestIndexCmd_WaitPrintsResult(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	path := writeTestPDF(t, "report.pdf")

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetArgs([]string{"index", "--wait", path})
	defer func() {
		rootCmd.SetArgs(nil)
		indexWait = false // Reset flag
	}()

	err := rootCmd.Execute()

	require.NoError(t, err)
	assert.Contains(t, buf.String(), "OK")
	assert.Contains(t, buf.String(), "13 chunks (10 text, 2 tables, 1 images)")
	assert.Contains(t, buf.String(), "doc-1")
}

func TestIndexCmd_JSONOutput(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	path := writeTestPDF(t, "report.pdf")

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetArgs([]string{"index", "--json", path})
	defer func() {
		rootCmd.SetArgs(nil)
		indexJSON = false // Reset flag
	}()

	err := rootCmd.Execute()

	require.NoError(t, err)
	assert.Contains(t, buf.String(), "\"id\": \"job-1\"")
	assert.Contains(t, buf.String(), "\"filename\": \"report.pdf\"")
	assert.Contains(t, buf.String(), "\"text_chunks\": 10")
}
