package watermark

import (
	"bufio"
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/natefinch/atomic"

	"github.com/agentstation/dirsync/pkg/constants"
	"github.com/agentstation/dirsync/pkg/errors"
	"github.com/agentstation/dirsync/pkg/logging"
)

// Store reads and writes the watermark of a sync job.
type Store interface {
	Read(ctx context.Context, job string) (Watermark, error)
	Write(ctx context.Context, job string, w Watermark) error
}

// FileStore keeps one watermark file per job inside Dir.
type FileStore struct {
	Dir string
}

var _ Store = (*FileStore)(nil)

// NewFileStore returns a store rooted at dir, defaulting to the var directory.
func NewFileStore(dir string) *FileStore {
	if dir == "" {
		dir = constants.DefaultVarDir
	}
	return &FileStore{Dir: dir}
}

// Path returns the watermark file for job.
func (s *FileStore) Path(job string) string {
	return filepath.Join(s.Dir, job+constants.WatermarkSuffix)
}

// Read returns the stored watermark for job.
// A missing, unreadable or empty file yields the zero watermark; content that
// cannot be parsed yields a CorruptWatermarkError.
func (s *FileStore) Read(ctx context.Context, job string) (Watermark, error) {
	path := s.Path(job)
	logger := logging.FromContext(ctx).With().Str("path", path).Logger()

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			logger.Warn().Err(err).Msg("Watermark file unreadable, starting from zero")
		} else {
			logger.Debug().Msg("No watermark file, starting from zero")
		}
		return Zero(), nil
	}

	line := firstLine(data)
	if line == "" {
		logger.Warn().Msg("Watermark file is empty, starting from zero")
		return Zero(), nil
	}

	w, err := Parse(line)
	if err != nil {
		return Watermark{}, &errors.CorruptWatermarkError{Path: path, Content: line, Err: err}
	}
	logger.Debug().Str("watermark", w.String()).Msg("Read watermark")
	return w, nil
}

// Write replaces the watermark file for job, creating Dir if needed.
func (s *FileStore) Write(ctx context.Context, job string, w Watermark) error {
	if err := os.MkdirAll(s.Dir, constants.DirPermissions); err != nil {
		return errors.WrapIO("create", s.Dir, err)
	}
	path := s.Path(job)
	if err := atomic.WriteFile(path, strings.NewReader(w.String()+"\n")); err != nil {
		return errors.WrapIO("write", path, err)
	}
	logging.FromContext(ctx).Debug().
		Str("path", path).
		Str("watermark", w.String()).
		Msg("Wrote watermark")
	return nil
}

func firstLine(data []byte) string {
	sc := bufio.NewScanner(bytes.NewReader(data))
	if sc.Scan() {
		return strings.TrimSpace(sc.Text())
	}
	return ""
}
