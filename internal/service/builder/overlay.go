package builder

import (
	"embed"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"text/template"

	"github.com/tetherwrt/tetherwrt/internal/config"
)

// overlayFS carries the static configuration dropped into the image
// builder's files overlay. Files ending in .tmpl are rendered with the
// settings document as data; everything else is copied verbatim.
//
//go:embed all:overlay
var overlayFS embed.FS

// overlayRoot is the prefix of every embedded overlay path.
const overlayRoot = "overlay"

// RenderOverlay materializes the embedded overlay under destDir.
func RenderOverlay(cfg *config.Config, destDir string) error {
	return fs.WalkDir(overlayFS, overlayRoot, func(entryPath string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if entry.IsDir() {
			return nil
		}

		relPath, err := filepath.Rel(overlayRoot, entryPath)
		if err != nil {
			return err
		}

		contents, err := overlayFS.ReadFile(entryPath)
		if err != nil {
			return err
		}

		destPath := filepath.Join(destDir, relPath)

		if strings.HasSuffix(relPath, ".tmpl") {
			destPath = strings.TrimSuffix(destPath, ".tmpl")

			rendered, err := renderTemplate(relPath, contents, cfg)
			if err != nil {
				return err
			}

			contents = rendered
		}

		if err := os.MkdirAll(filepath.Dir(destPath), 0o755); err != nil {
			return err
		}

		if err := os.WriteFile(destPath, contents, 0o644); err != nil {
			return fmt.Errorf("write %s: %w", destPath, err)
		}

		return nil
	})
}

// renderTemplate executes one overlay template against the settings.
func renderTemplate(name string, contents []byte, cfg *config.Config) ([]byte, error) {
	tmpl, err := template.New(name).Option("missingkey=error").Parse(string(contents))
	if err != nil {
		return nil, fmt.Errorf("parse template %s: %w", name, err)
	}

	var rendered strings.Builder
	if err := tmpl.Execute(&rendered, cfg); err != nil {
		return nil, fmt.Errorf("render template %s: %w", name, err)
	}

	return []byte(rendered.String()), nil
}
