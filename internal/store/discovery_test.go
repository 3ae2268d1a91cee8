package store_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ledgerline/ledgerctl/internal/store"
)

func writeEventFile(testInstance *testing.T, path string, content string) {
	testInstance.Helper()
	require.NoError(testInstance, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(testInstance, os.WriteFile(path, []byte(content), 0o644))
}

func TestDiscoverEventFilesMissingRootYieldsEmptyResult(testInstance *testing.T) {
	discoverer := store.NewFilesystemEventDiscoverer()

	eventFiles, discoveryError := discoverer.DiscoverEventFiles(filepath.Join(testInstance.TempDir(), "does-not-exist"))

	require.NoError(testInstance, discoveryError)
	require.Empty(testInstance, eventFiles)
}

func TestDiscoverEventFilesReturnsSortedEventFiles(testInstance *testing.T) {
	eventsRoot := testInstance.TempDir()
	writeEventFile(testInstance, filepath.Join(eventsRoot, "2026-08-02", "b.json"), "{}")
	writeEventFile(testInstance, filepath.Join(eventsRoot, "2026-08-01", "a.json"), "{}")
	writeEventFile(testInstance, filepath.Join(eventsRoot, "legacy.jsonl"), "{}")
	writeEventFile(testInstance, filepath.Join(eventsRoot, "notes.txt"), "ignored")
	writeEventFile(testInstance, filepath.Join(eventsRoot, "2026-08-01", "README.md"), "ignored")

	discoverer := store.NewFilesystemEventDiscoverer()
	eventFiles, discoveryError := discoverer.DiscoverEventFiles(eventsRoot)

	require.NoError(testInstance, discoveryError)
	require.Equal(testInstance, []string{
		filepath.Join(eventsRoot, "2026-08-01", "a.json"),
		filepath.Join(eventsRoot, "2026-08-02", "b.json"),
		filepath.Join(eventsRoot, "legacy.jsonl"),
	}, eventFiles)
}

func TestHasEventFileExtension(testInstance *testing.T) {
	require.True(testInstance, store.HasEventFileExtension("events/2026-08-01/evt.json"))
	require.True(testInstance, store.HasEventFileExtension("events/legacy.JSONL"))
	require.False(testInstance, store.HasEventFileExtension("events/README.md"))
	require.False(testInstance, store.HasEventFileExtension("events/evt"))
}
