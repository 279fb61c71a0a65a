package files

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

const (
	uploadDirPattern = "upload-*"
	uploadDirPrefix  = "upload-"
	stagedBaseName   = "audio"
	defaultExt       = ".mp3"
)

// allowedExts lists the extensions kept when naming a staged upload. Anything
// else is staged as .mp3 so a client filename never reaches the disk.
var allowedExts = map[string]bool{
	".mp3": true, ".wav": true, ".m4a": true, ".flac": true,
	".ogg": true, ".oga": true, ".opus": true, ".webm": true,
	".mp4": true, ".aac": true, ".amr": true, ".wma": true,
}

// TempStore stages uploads in per-request directories under a base dir
type TempStore struct {
	baseDir string
	logger  *zap.Logger
}

// StagedAudio is an upload written to local disk. Cleanup removes it and
// every scratch file created next to it.
type StagedAudio struct {
	Dir  string
	Path string
	Size int64

	once sync.Once
	err  error
}

// NewTempStore creates the base directory if needed
func NewTempStore(baseDir string, logger *zap.Logger) (*TempStore, error) {
	if baseDir == "" {
		baseDir = filepath.Join(os.TempDir(), "audio-transcriber")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := os.MkdirAll(baseDir, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create temp dir %s: %w", baseDir, err)
	}
	return &TempStore{baseDir: baseDir, logger: logger}, nil
}

// BaseDir returns the directory uploads are staged under
func (s *TempStore) BaseDir() string {
	return s.baseDir
}

// Stage copies r into a fresh directory. On error nothing is left behind.
func (s *TempStore) Stage(r io.Reader, filename string) (*StagedAudio, error) {
	dir, err := os.MkdirTemp(s.baseDir, uploadDirPattern)
	if err != nil {
		return nil, fmt.Errorf("failed to create upload dir: %w", err)
	}

	path := filepath.Join(dir, stagedBaseName+SafeExtension(filename))
	size, err := writeFile(path, r)
	if err != nil {
		if rmErr := os.RemoveAll(dir); rmErr != nil {
			s.logger.Warn("Failed to remove partial upload", zap.String("dir", dir), zap.Error(rmErr))
		}
		return nil, err
	}

	s.logger.Debug("Staged upload",
		zap.String("path", path),
		zap.Int64("bytes", size),
	)
	return &StagedAudio{Dir: dir, Path: path, Size: size}, nil
}

func writeFile(path string, r io.Reader) (int64, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
	if err != nil {
		return 0, fmt.Errorf("failed to create %s: %w", path, err)
	}

	size, copyErr := io.Copy(f, r)
	closeErr := f.Close()
	if copyErr != nil {
		return 0, fmt.Errorf("failed to write upload: %w", copyErr)
	}
	if closeErr != nil {
		return 0, fmt.Errorf("failed to close upload: %w", closeErr)
	}
	return size, nil
}

// ScratchPath returns a path inside the upload directory
func (a *StagedAudio) ScratchPath(name string) string {
	return filepath.Join(a.Dir, filepath.Base(name))
}

// Cleanup removes the upload directory. Safe to call more than once.
func (a *StagedAudio) Cleanup() error {
	a.once.Do(func() {
		a.err = os.RemoveAll(a.Dir)
	})
	return a.err
}

// SweepOrphans removes upload directories older than maxAge. These are left
// over when the process died mid-request.
func (s *TempStore) SweepOrphans(maxAge time.Duration) (int, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return 0, nil
		}
		return 0, err
	}

	cutoff := time.Now().Add(-maxAge)
	removed := 0
	for _, entry := range entries {
		if !entry.IsDir() || !strings.HasPrefix(entry.Name(), uploadDirPrefix) {
			continue
		}
		info, err := entry.Info()
		if err != nil || info.ModTime().After(cutoff) {
			continue
		}

		dir := filepath.Join(s.baseDir, entry.Name())
		if err := os.RemoveAll(dir); err != nil {
			s.logger.Warn("Failed to remove orphaned upload", zap.String("dir", dir), zap.Error(err))
			continue
		}
		removed++
	}

	if removed > 0 {
		s.logger.Info("Removed orphaned uploads", zap.Int("count", removed))
	}
	return removed, nil
}

// SafeExtension returns the lowercased extension of filename when it is a
// known audio container, or .mp3 otherwise.
func SafeExtension(filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	if allowedExts[ext] {
		return ext
	}
	return defaultExt
}
