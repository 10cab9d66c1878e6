package updater

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// ManifestFilename is the name of the version manifest in the update folder.
const ManifestFilename = "tetherwrt-version.yaml"

// Manifest describes a published release of the router-side binaries.
type Manifest struct {
	// Version is the semantic version of the release.
	Version string `yaml:"version"`
	// Files maps artifact names to their hex-encoded SHA256 checksums.
	Files map[string]string `yaml:"files"`
}

// ParseManifest decodes a version manifest document.
func ParseManifest(contents []byte) (*Manifest, error) {
	var m Manifest
	if err := yaml.Unmarshal(contents, &m); err != nil {
		return nil, fmt.Errorf("unmarshal manifest: %w", err)
	}

	if m.Version == "" {
		return nil, errEmptyManifest
	}

	return &m, nil
}

// FileChecksum returns the hex-encoded SHA256 checksum of the file, or
// ok=false when the file does not exist yet (first install).
func FileChecksum(path string) (sum string, ok bool, err error) {
	file, err := os.Open(filepath.Clean(path))
	if err != nil {
		if os.IsNotExist(err) {
			return "", false, nil
		}

		return "", false, fmt.Errorf("open %s: %w", path, err)
	}

	defer func() {
		_ = file.Close()
	}()

	hasher := sha256.New()
	if _, err := io.Copy(hasher, file); err != nil {
		return "", false, fmt.Errorf("hash %s: %w", path, err)
	}

	return hex.EncodeToString(hasher.Sum(nil)), true, nil
}
