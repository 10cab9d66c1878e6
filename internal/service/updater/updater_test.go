package updater

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// TestParseManifest covers a valid document and the empty-version rejection.
func TestParseManifest(t *testing.T) {
	t.Parallel()

	m, err := ParseManifest([]byte("version: 1.2.0\nfiles:\n  relay-select: abcd\n"))
	require.NoError(t, err)
	require.Equal(t, "1.2.0", m.Version)
	require.Equal(t, "abcd", m.Files["relay-select"])

	_, err = ParseManifest([]byte("files: {}\n"))
	require.ErrorIs(t, err, errEmptyManifest)

	_, err = ParseManifest([]byte(":bad yaml"))
	require.Error(t, err)
}

// TestFileChecksum covers present and absent files.
func TestFileChecksum(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "artifact")
	require.NoError(t, os.WriteFile(path, []byte("payload"), 0o644))

	wantHash := sha256.Sum256([]byte("payload"))

	sum, ok, err := FileChecksum(path)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, hex.EncodeToString(wantHash[:]), sum)

	_, ok, err = FileChecksum(filepath.Join(dir, "missing"))
	require.NoError(t, err)
	require.False(t, ok)
}

// sumOf returns the hex SHA256 of the payload.
func sumOf(payload []byte) string {
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:])
}

// TestRun_AppliesOnlyStaleFiles serves a release over HTTP and verifies that
// a matching file is skipped while a stale one is replaced and verified.
func TestRun_AppliesOnlyStaleFiles(t *testing.T) {
	t.Parallel()

	var (
		freshPayload = []byte("#!/bin/sh\necho fresh\n")
		stalePayload = []byte("#!/bin/sh\necho new version\n")
	)

	manifest := fmt.Sprintf(
		"version: 2.0.0\nfiles:\n  relay-status: %s\n  relay-select: %s\n",
		sumOf(freshPayload), sumOf(stalePayload),
	)

	mux := http.NewServeMux()
	mux.HandleFunc("/"+ManifestFilename, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(manifest))
	})
	mux.HandleFunc("/relay-select", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write(stalePayload)
	})

	server := httptest.NewServer(mux)
	defer server.Close()

	installDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(installDir, "relay-status"), freshPayload, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(installDir, "relay-select"), []byte("old"), 0o755))

	configPath := filepath.Join(t.TempDir(), "settings.yaml")
	settings := fmt.Sprintf("update:\n  folder: %s\n", server.URL)
	require.NoError(t, os.WriteFile(configPath, []byte(settings), 0o600))

	opts := &Options{
		ConfigPath: configPath,
		InstallDir: installDir,
		LockFile:   filepath.Join(t.TempDir(), "update.lock"),
	}

	require.NoError(t, Run(context.Background(), opts))

	applied, err := os.ReadFile(filepath.Join(installDir, "relay-select"))
	require.NoError(t, err)
	require.Equal(t, stalePayload, applied)

	untouched, err := os.ReadFile(filepath.Join(installDir, "relay-status"))
	require.NoError(t, err)
	require.Equal(t, freshPayload, untouched)

	// go-update's backup copy is cleaned up.
	_, err = os.Stat(filepath.Join(installDir, "relay-select.old"))
	require.True(t, os.IsNotExist(err))
}

// TestRun_NoFolderConfigured verifies the explicit error when the update
// folder is missing from settings.
func TestRun_NoFolderConfigured(t *testing.T) {
	t.Parallel()

	configPath := filepath.Join(t.TempDir(), "settings.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte("{}\n"), 0o600))

	err := Run(context.Background(), &Options{
		ConfigPath: configPath,
		LockFile:   filepath.Join(t.TempDir(), "update.lock"),
	})
	require.ErrorIs(t, err, errNoUpdateFolder)
}

// TestRun_ChecksumMismatch verifies a corrupted download is rejected and the
// local file survives.
func TestRun_ChecksumMismatch(t *testing.T) {
	t.Parallel()

	payload := []byte("real payload")

	manifest := fmt.Sprintf("version: 2.0.0\nfiles:\n  relay-select: %s\n", sumOf(payload))

	mux := http.NewServeMux()
	mux.HandleFunc("/"+ManifestFilename, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(manifest))
	})
	mux.HandleFunc("/relay-select", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("corrupted payload"))
	})

	server := httptest.NewServer(mux)
	defer server.Close()

	installDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(installDir, "relay-select"), []byte("old"), 0o755))

	configPath := filepath.Join(t.TempDir(), "settings.yaml")
	settings := fmt.Sprintf("update:\n  folder: %s\n", server.URL)
	require.NoError(t, os.WriteFile(configPath, []byte(settings), 0o600))

	err := Run(context.Background(), &Options{
		ConfigPath: configPath,
		InstallDir: installDir,
		LockFile:   filepath.Join(t.TempDir(), "update.lock"),
	})
	require.Error(t, err)

	local, err := os.ReadFile(filepath.Join(installDir, "relay-select"))
	require.NoError(t, err)
	require.Equal(t, []byte("old"), local)
}
