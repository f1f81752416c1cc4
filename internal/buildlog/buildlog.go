// Package buildlog captures external tool output into compressed per-stage
// log files. Build-system output runs to hundreds of megabytes, so logs are
// zstd-compressed as they stream.
package buildlog

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/zstd"
)

// Sink writes stage logs under a single directory.
type Sink struct {
	dir string
}

// NewSink creates the log directory if needed.
func NewSink(dir string) (*Sink, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating log directory: %w", err)
	}
	return &Sink{dir: dir}, nil
}

// StageWriter opens a compressed log file for one stage. The caller must
// Close it to flush the compressed frame.
func (s *Sink) StageWriter(stage string) (io.WriteCloser, error) {
	path := filepath.Join(s.dir, stage+".log.zst")
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("creating stage log: %w", err)
	}
	enc, err := zstd.NewWriter(f)
	if err != nil {
		f.Close()
		return nil, err
	}
	return &stageLog{enc: enc, f: f}, nil
}

// Read returns the decompressed contents of a stage log.
func (s *Sink) Read(stage string) ([]byte, error) {
	f, err := os.Open(filepath.Join(s.dir, stage+".log.zst"))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return nil, err
	}
	defer dec.Close()
	return io.ReadAll(dec)
}

type stageLog struct {
	enc *zstd.Encoder
	f   *os.File
}

func (l *stageLog) Write(p []byte) (int, error) {
	return l.enc.Write(p)
}

func (l *stageLog) Close() error {
	if err := l.enc.Close(); err != nil {
		l.f.Close()
		return err
	}
	return l.f.Close()
}
