package store

import (
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

const (
	jsonFileExtensionConstant      = ".json"
	jsonLinesFileExtensionConstant = ".jsonl"
)

// FilesystemEventDiscoverer locates physical event files on disk.
type FilesystemEventDiscoverer struct{}

// NewFilesystemEventDiscoverer constructs an event discoverer backed by filepath.WalkDir.
func NewFilesystemEventDiscoverer() *FilesystemEventDiscoverer {
	return &FilesystemEventDiscoverer{}
}

// DiscoverEventFiles walks the events root and returns every event file in
// sorted order. A missing root yields an empty result rather than an error so
// that an empty ledger is distinguishable from a failing scan.
func (discoverer *FilesystemEventDiscoverer) DiscoverEventFiles(eventsRoot string) ([]string, error) {
	if _, statError := os.Stat(eventsRoot); statError != nil {
		if os.IsNotExist(statError) {
			return nil, nil
		}
		return nil, statError
	}

	var eventFiles []string
	walkError := filepath.WalkDir(eventsRoot, func(path string, directoryEntry fs.DirEntry, entryError error) error {
		if entryError != nil {
			return nil
		}
		if directoryEntry.IsDir() {
			return nil
		}
		if !HasEventFileExtension(path) {
			return nil
		}
		eventFiles = append(eventFiles, path)
		return nil
	})
	if walkError != nil {
		return nil, walkError
	}

	sort.Strings(eventFiles)
	return eventFiles, nil
}

// HasEventFileExtension reports whether the path uses one of the physical
// event file extensions.
func HasEventFileExtension(path string) bool {
	extension := strings.ToLower(filepath.Ext(path))
	return extension == jsonFileExtensionConstant || extension == jsonLinesFileExtensionConstant
}
