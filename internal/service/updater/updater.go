package updater

import (
	"bytes"
	"context"
	"crypto"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"

	goupdate "github.com/doitdistributed/go-update"

	"github.com/tetherwrt/tetherwrt/internal/config"
	"github.com/tetherwrt/tetherwrt/internal/lockfile"
	"github.com/tetherwrt/tetherwrt/internal/logger"

	// Ensure SHA256 is linked in for go-update's checksum verification.
	_ "crypto/sha256"
)

var (
	errNoUpdateFolder = errors.New("update folder is not configured")
	errEmptyManifest  = errors.New("update manifest is empty")
	errBadHTTPStatus  = errors.New("unexpected http status")
)

const (
	// DefaultLockFile guards against concurrent updater runs.
	DefaultLockFile = "/var/lock/relay-update.lock"

	// artifactFileMode is applied to installed binaries.
	artifactFileMode os.FileMode = 0o755

	// checksumFunction matches the manifest's hex-encoded checksums.
	checksumFunction crypto.Hash = crypto.SHA256
)

// Options are inputs accepted by the updater entry point.
type Options struct {
	// ConfigPath is the optional path to the settings YAML file.
	ConfigPath string
	// InstallDir is where artifacts live; defaults to the working directory.
	InstallDir string
	// LockFile overrides the default updater lock path.
	LockFile string
}

// runner holds the state of a single update execution.
type runner struct {
	folder     string
	installDir string
	manifest   *Manifest
	tempDir    string
	// downloaded maps artifact names to their local temp paths.
	downloaded map[string]string
}

// Run executes the updater lifecycle and is the entry point for the CLI.
func Run(ctx context.Context, opts *Options) error {
	ctx = logger.WithName(ctx, "relay-update")

	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	if cfg.Update.Folder == "" {
		return errNoUpdateFolder
	}

	lockPath := opts.LockFile
	if lockPath == "" {
		lockPath = DefaultLockFile
	}

	lock, err := lockfile.TryAcquire(lockPath)
	if err != nil {
		if errors.Is(err, lockfile.ErrLocked) {
			logger.Info(ctx, "Another update is in progress, skipping")
		}

		return err
	}

	defer func() {
		_ = lock.Release()
	}()

	installDir := opts.InstallDir
	if installDir == "" {
		installDir = "."
	}

	u := &runner{
		folder:     cfg.Update.Folder,
		installDir: installDir,
		downloaded: make(map[string]string),
	}

	defer u.cleanup(ctx)

	if err := u.run(ctx); err != nil {
		logger.ErrorKV(ctx, "Update failed", "error", err)
		return err
	}

	logger.Info(ctx, "Update completed")

	return nil
}

// run fetches the manifest, diffs local files against it and applies
// whatever changed.
func (u *runner) run(ctx context.Context) error {
	logger.Info(ctx, "Fetching version manifest")

	if err := u.fetchManifest(ctx); err != nil {
		return fmt.Errorf("fetch manifest: %w", err)
	}

	stale, err := u.staleFiles(ctx)
	if err != nil {
		return err
	}

	if len(stale) == 0 {
		logger.Infof(ctx, "All files match release %s, nothing to do", u.manifest.Version)
		return nil
	}

	logger.Infof(ctx, "Updating %d file(s) to release %s", len(stale), u.manifest.Version)

	if err := u.downloadFiles(ctx, stale); err != nil {
		return fmt.Errorf("download files: %w", err)
	}

	if err := u.applyFiles(ctx); err != nil {
		return fmt.Errorf("apply files: %w", err)
	}

	return nil
}

// fetchManifest downloads and parses the version manifest.
func (u *runner) fetchManifest(ctx context.Context) error {
	contents, err := u.fetch(ctx, ManifestFilename)
	if err != nil {
		return err
	}

	manifest, err := ParseManifest(contents)
	if err != nil {
		return err
	}

	u.manifest = manifest

	return nil
}

// staleFiles returns the manifest entries whose local checksum differs.
func (u *runner) staleFiles(ctx context.Context) ([]string, error) {
	var stale []string

	for name, wantSum := range u.manifest.Files {
		localSum, exists, err := FileChecksum(filepath.Join(u.installDir, name))
		if err != nil {
			return nil, err
		}

		if exists && localSum == wantSum {
			logger.Debugf(ctx, "%s is up to date", name)
			continue
		}

		stale = append(stale, name)
	}

	return stale, nil
}

// downloadFiles retrieves the stale artifacts into a temporary directory.
func (u *runner) downloadFiles(ctx context.Context, names []string) error {
	tempDir, err := os.MkdirTemp("", "tetherwrt-update-*")
	if err != nil {
		return fmt.Errorf("create temp dir: %w", err)
	}

	u.tempDir = tempDir

	for _, name := range names {
		contents, err := u.fetch(ctx, name)
		if err != nil {
			return err
		}

		localPath := filepath.Join(tempDir, name)
		if err := os.WriteFile(localPath, contents, artifactFileMode); err != nil {
			return fmt.Errorf("write %s: %w", localPath, err)
		}

		u.downloaded[name] = localPath
		logger.InfoKV(ctx, "Downloaded file", "file", name)
	}

	return nil
}

// applyFiles installs the downloaded artifacts with checksum verification.
func (u *runner) applyFiles(ctx context.Context) error {
	for name, localPath := range u.downloaded {
		wantSum, ok := u.manifest.Files[name]
		if !ok {
			return fmt.Errorf("no checksum for %s: %w", name, errEmptyManifest)
		}

		checksum, err := hex.DecodeString(wantSum)
		if err != nil {
			return fmt.Errorf("decode checksum of %s: %w", name, err)
		}

		data, err := os.ReadFile(localPath)
		if err != nil {
			return err
		}

		targetPath := filepath.Join(u.installDir, name)

		// First install: go-update expects the target to exist.
		if _, err := os.Stat(targetPath); err != nil && os.IsNotExist(err) {
			if err := os.WriteFile(targetPath, nil, artifactFileMode); err != nil {
				return fmt.Errorf("create %s: %w", targetPath, err)
			}
		}

		logger.InfoKV(ctx, "Applying file", "file", name)

		err = goupdate.Apply(bytes.NewReader(data), goupdate.Options{
			TargetPath: targetPath,
			TargetMode: artifactFileMode,
			Checksum:   checksum,
			Hash:       checksumFunction,
		})
		if err != nil {
			return fmt.Errorf("apply %s: %w", name, err)
		}

		// go-update keeps the replaced file around; drop it.
		oldPath := filepath.Join(u.installDir, name) + ".old"
		if _, err := os.Stat(oldPath); err == nil {
			_ = os.Remove(oldPath)
		}
	}

	return nil
}

// fetch retrieves one artifact from the update folder.
func (u *runner) fetch(ctx context.Context, name string) ([]byte, error) {
	target, err := url.JoinPath(u.folder, name)
	if err != nil {
		return nil, fmt.Errorf("build url for %s: %w", name, err)
	}

	request, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, err
	}

	response, err := http.DefaultClient.Do(request)
	if err != nil {
		return nil, err
	}

	defer func() {
		_ = response.Body.Close()
	}()

	if response.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%s: %s: %w", target, response.Status, errBadHTTPStatus)
	}

	return io.ReadAll(response.Body)
}

// cleanup removes the temporary download directory.
func (u *runner) cleanup(ctx context.Context) {
	if u.tempDir == "" {
		return
	}

	if err := os.RemoveAll(u.tempDir); err != nil {
		logger.WarnKV(ctx, "Temp dir cleanup failed", "error", err)
	}
}
