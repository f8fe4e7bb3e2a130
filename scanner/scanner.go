package scanner

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/nrtkbb/fsrecon/errors"
	"github.com/nrtkbb/fsrecon/logging"
	"github.com/nrtkbb/fsrecon/models"
	"github.com/spf13/afero"
)

const (
	DefaultChunkSize   = 4096
	DefaultPrefixBytes = 5

	progressInterval = 10 * time.Second
)

// Options controls how records are built.
type Options struct {
	ChunkSize   int
	PrefixBytes int
	// SkipHash leaves Signature and Prefix empty. Used when only sizes matter.
	SkipHash bool
}

// DefaultOptions returns the chunk and prefix sizes used when nothing is configured.
func DefaultOptions() Options {
	return Options{ChunkSize: DefaultChunkSize, PrefixBytes: DefaultPrefixBytes}
}

func (o Options) normalized() Options {
	if o.ChunkSize <= 0 {
		o.ChunkSize = DefaultChunkSize
	}
	if o.PrefixBytes < 0 {
		o.PrefixBytes = 0
	}
	return o
}

// NewFileRecord stats and hashes the file at path. Any failure to stat, open
// or read the file is returned as an ErrRead error.
func NewFileRecord(fsys afero.Fs, path string, opts Options) (models.FileRecord, error) {
	opts = opts.normalized()

	info, err := fsys.Stat(path)
	if err != nil {
		return models.FileRecord{}, errors.Wrapf(err, errors.ErrRead, "stat %s", path).WithDetail("path", path)
	}
	return recordFromInfo(fsys, path, info, opts)
}

func recordFromInfo(fsys afero.Fs, path string, info os.FileInfo, opts Options) (models.FileRecord, error) {
	record := models.FileRecord{
		Path:      path,
		Name:      info.Name(),
		Size:      info.Size(),
		ModTime:   info.ModTime(),
		CreatedAt: creationTime(fsys, path, info),
	}
	if opts.SkipHash {
		return record, nil
	}

	signature, prefix, err := hashFile(fsys, path, opts.ChunkSize, opts.PrefixBytes)
	if err != nil {
		return models.FileRecord{}, errors.Wrapf(err, errors.ErrRead, "hash %s", path).WithDetail("path", path)
	}
	record.Signature = signature
	record.Prefix = prefix
	return record, nil
}

// hashFile streams the file through SHA-256 chunkSize bytes at a time and
// captures the first prefixBytes bytes on the way.
func hashFile(fsys afero.Fs, path string, chunkSize, prefixBytes int) (models.Signature, string, error) {
	file, err := fsys.Open(path)
	if err != nil {
		return "", "", err
	}
	defer file.Close()

	hash := sha256.New()
	buf := make([]byte, chunkSize)
	prefix := make([]byte, 0, prefixBytes)
	for {
		n, err := file.Read(buf)
		if n > 0 {
			hash.Write(buf[:n])
			if missing := prefixBytes - len(prefix); missing > 0 {
				prefix = append(prefix, buf[:min(missing, n)]...)
			}
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", "", err
		}
	}

	return models.Signature(hex.EncodeToString(hash.Sum(nil))), hex.EncodeToString(prefix), nil
}

// VisitFunc receives each record produced by Walk. Returning an error stops
// the walk with that error.
type VisitFunc func(models.FileRecord) error

// Walk visits every regular file under root depth-first in lexical order.
// Directories and files that cannot be read are logged, recorded as read
// failures and skipped; they never abort the walk. The context is checked
// before each file.
func Walk(ctx context.Context, fsys afero.Fs, root string, opts Options, visit VisitFunc) ([]models.ReadFailure, error) {
	logger := logging.GetLogger("scanner")
	opts = opts.normalized()
	stats := newProgressStats()

	var failures []models.ReadFailure
	skip := func(path string, err error) {
		logger.Warn().Err(err).Str("path", path).Msg("Skipping unreadable path")
		failures = append(failures, models.ReadFailure{Path: path, Err: err.Error()})
	}

	err := afero.Walk(fsys, walkRoot(fsys, root), func(path string, info os.FileInfo, err error) error {
		select {
		case <-ctx.Done():
			return errors.Wrap(ctx.Err(), errors.ErrCancelled, "walk cancelled")
		default:
		}

		if err != nil {
			skip(path, err)
			return nil
		}
		if !info.Mode().IsRegular() {
			return nil
		}

		record, err := recordFromInfo(fsys, path, info, opts)
		if err != nil {
			skip(path, err)
			return nil
		}

		stats.ProcessedFiles++
		stats.ProcessedBytes += record.Size
		if time.Since(stats.LastLogTime) >= progressInterval {
			stats.LastLogTime = time.Now()
			logger.Info().
				Str("root", root).
				Int64("files", stats.ProcessedFiles).
				Int64("bytes", stats.ProcessedBytes).
				Msg("Scan progress")
		}

		return visit(record)
	})

	logger.Debug().
		Str("root", root).
		Int64("files", stats.ProcessedFiles).
		Int("skipped", len(failures)).
		Dur("elapsed", time.Since(stats.StartTime)).
		Msg("Walk finished")

	return failures, err
}

func newProgressStats() *models.ProgressStats {
	now := time.Now()
	return &models.ProgressStats{StartTime: now, LastLogTime: now}
}

// walkRoot lets a root that is a symlink to a directory be walked like the
// directory itself. A trailing separator makes Lstat resolve the link, and
// the paths reported below it stay under root.
func walkRoot(fsys afero.Fs, root string) string {
	lst, ok := fsys.(afero.Lstater)
	if !ok {
		return root
	}
	info, _, err := lst.LstatIfPossible(root)
	if err != nil || info.Mode()&os.ModeSymlink == 0 {
		return root
	}
	if target, err := fsys.Stat(root); err != nil || !target.IsDir() {
		return root
	}
	return root + string(filepath.Separator)
}
