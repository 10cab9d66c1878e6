package builder

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/exec"
	"path"
	"path/filepath"
	"strings"

	"github.com/tetherwrt/tetherwrt/internal/config"
	"github.com/tetherwrt/tetherwrt/internal/logger"
)

var (
	errNoImageBuilderURL = errors.New("image-builder URL is not configured")
	errNoProfiles        = errors.New("no image profiles configured")
	errChecksumMismatch  = errors.New("image-builder checksum mismatch")
	errBadHTTPStatus     = errors.New("unexpected http status")
)

// toolchainDirName is where the image builder is extracted inside the work
// directory.
const toolchainDirName = "imagebuilder"

// Options are inputs accepted by the firmware builder entry point.
type Options struct {
	// ConfigPath is the path to the settings YAML file. The build section
	// has no usable defaults, so the file is required here.
	ConfigPath string
}

// Run assembles the firmware images: fetch the vendor image-builder
// toolchain, render the configuration overlay and invoke the external build
// tool once per profile.
func Run(ctx context.Context, opts *Options) error {
	ctx = logger.WithName(ctx, "relay-build")

	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	if err := validateBuild(&cfg.Build); err != nil {
		return err
	}

	workDir, err := filepath.Abs(cfg.Build.WorkDir)
	if err != nil {
		return fmt.Errorf("resolve work dir: %w", err)
	}

	if err := os.MkdirAll(workDir, 0o755); err != nil {
		return fmt.Errorf("create work dir: %w", err)
	}

	archivePath, err := fetchToolchain(ctx, &cfg.Build, workDir)
	if err != nil {
		return fmt.Errorf("fetch image builder: %w", err)
	}

	toolchainDir, err := extractToolchain(ctx, archivePath, workDir)
	if err != nil {
		return fmt.Errorf("extract image builder: %w", err)
	}

	overlayDir := filepath.Join(toolchainDir, "files")
	if err := RenderOverlay(cfg, overlayDir); err != nil {
		return fmt.Errorf("render overlay: %w", err)
	}

	logger.Infof(ctx, "Overlay rendered into %s", overlayDir)

	for _, profile := range cfg.Build.Profiles {
		if err := buildImage(ctx, &cfg.Build, toolchainDir, overlayDir, profile); err != nil {
			return fmt.Errorf("build profile %s: %w", profile, err)
		}
	}

	logger.Infof(ctx, "Images are in %s", filepath.Join(toolchainDir, "bin"))

	return nil
}

// validateBuild checks the builder-specific required settings.
func validateBuild(b *config.BuildConfig) error {
	if b.ImageBuilderURL == "" {
		return errNoImageBuilderURL
	}

	if len(b.Profiles) == 0 {
		return errNoProfiles
	}

	return nil
}

// fetchToolchain downloads the image-builder tarball unless a verified copy
// already sits in the work directory. It returns the archive path.
func fetchToolchain(ctx context.Context, b *config.BuildConfig, workDir string) (string, error) {
	archivePath := filepath.Join(workDir, path.Base(b.ImageBuilderURL))

	if ok, err := checksumMatches(archivePath, b.ImageBuilderSHA256); err != nil {
		return "", err
	} else if ok {
		logger.Infof(ctx, "Reusing verified archive %s", archivePath)
		return archivePath, nil
	}

	logger.Infof(ctx, "Downloading %s", b.ImageBuilderURL)

	request, err := http.NewRequestWithContext(ctx, http.MethodGet, b.ImageBuilderURL, nil)
	if err != nil {
		return "", err
	}

	response, err := http.DefaultClient.Do(request)
	if err != nil {
		return "", err
	}

	defer func() {
		_ = response.Body.Close()
	}()

	if response.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%s: %w", response.Status, errBadHTTPStatus)
	}

	archive, err := os.Create(archivePath)
	if err != nil {
		return "", err
	}

	if _, err := io.Copy(archive, response.Body); err != nil {
		_ = archive.Close()
		return "", fmt.Errorf("write archive: %w", err)
	}

	if err := archive.Close(); err != nil {
		return "", err
	}

	if b.ImageBuilderSHA256 != "" {
		ok, err := checksumMatches(archivePath, b.ImageBuilderSHA256)
		if err != nil {
			return "", err
		}

		if !ok {
			return "", fmt.Errorf("%s: %w", archivePath, errChecksumMismatch)
		}
	}

	return archivePath, nil
}

// checksumMatches reports whether the file exists and matches the expected
// hex SHA256. An empty expectation never matches, forcing a fresh download.
func checksumMatches(path, wantSum string) (bool, error) {
	if wantSum == "" {
		return false, nil
	}

	file, err := os.Open(filepath.Clean(path))
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}

		return false, err
	}

	defer func() {
		_ = file.Close()
	}()

	hasher := sha256.New()
	if _, err := io.Copy(hasher, file); err != nil {
		return false, fmt.Errorf("hash %s: %w", path, err)
	}

	return strings.EqualFold(hex.EncodeToString(hasher.Sum(nil)), wantSum), nil
}

// extractToolchain unpacks the archive into the work directory, skipping the
// unpack when a previous run already did it. The vendor ships .tar.xz, so
// extraction goes through the host tar tool.
func extractToolchain(ctx context.Context, archivePath, workDir string) (string, error) {
	toolchainDir := filepath.Join(workDir, toolchainDirName)

	if _, err := os.Stat(filepath.Join(toolchainDir, "Makefile")); err == nil {
		logger.Infof(ctx, "Reusing extracted toolchain in %s", toolchainDir)
		return toolchainDir, nil
	}

	if err := os.MkdirAll(toolchainDir, 0o755); err != nil {
		return "", err
	}

	logger.Infof(ctx, "Extracting %s", archivePath)

	cmd := exec.CommandContext(ctx, "tar",
		"-x", "-f", archivePath,
		"-C", toolchainDir,
		"--strip-components=1")
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("tar: %w", err)
	}

	return toolchainDir, nil
}

// buildImage invokes the external build tool for one profile.
func buildImage(ctx context.Context, b *config.BuildConfig, toolchainDir, overlayDir, profile string) error {
	logger.Infof(ctx, "Building image for profile %s", profile)

	args := []string{
		"image",
		"PROFILE=" + profile,
		"FILES=" + overlayDir,
	}
	if len(b.Packages) > 0 {
		args = append(args, "PACKAGES="+strings.Join(b.Packages, " "))
	}

	cmd := exec.CommandContext(ctx, "make", args...)
	cmd.Dir = toolchainDir
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("make image: %w", err)
	}

	return nil
}
