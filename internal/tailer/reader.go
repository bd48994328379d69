package tailer

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"
)

// Reader hands out the lines appended to a file since the previous call.
// It owns one open handle and the byte offset of the first unconsumed line.
type Reader struct {
	path   string
	file   *os.File
	offset int64
}

// Open opens path for tailing, starting at offset. The parent directory and
// an empty file are created when missing. An offset past the end of the file
// is treated as a truncated file and reset to 0.
func Open(path string, offset int64) (*Reader, error) {
	if err := ensureFile(path); err != nil {
		return nil, err
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}

	r := &Reader{path: path, file: file, offset: offset}
	if offset < 0 {
		r.offset = 0
	}

	log.Debug().
		Str("file", path).
		Int64("offset", r.offset).
		Msg("Opened log file for tailing")

	return r, nil
}

// ensureFile creates the parent directory and an empty file if absent
func ensureFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to stat file: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to create log file: %w", err)
	}

	log.Info().Str("file", path).Msg("Created missing log file")
	return f.Close()
}

// ReadUnread returns the complete lines appended since the last call. A
// trailing line without a newline is left for the next call. On error no line
// is consumed. It never blocks waiting for data.
func (r *Reader) ReadUnread() ([]string, error) {
	if r.file == nil {
		return nil, fmt.Errorf("reader for %s is closed", r.path)
	}

	stat, err := r.file.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}
	if stat.Size() < r.offset {
		log.Info().
			Str("file", r.path).
			Int64("offset", r.offset).
			Int64("file_size", stat.Size()).
			Msg("File shrank, reading from beginning")
		r.offset = 0
	}
	if stat.Size() == r.offset {
		return nil, nil
	}

	if _, err := r.file.Seek(r.offset, io.SeekStart); err != nil {
		return nil, fmt.Errorf("failed to seek to offset: %w", err)
	}

	lines, n, err := readLines(r.file)
	if err != nil {
		// the cursor stays put so the next call reads the batch again
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	r.offset += n

	return lines, nil
}

// readLines reads complete lines from src. It returns the lines without their
// terminators and the number of bytes they occupied.
func readLines(src io.Reader) ([]string, int64, error) {
	var (
		lines []string
		n     int64
	)
	br := bufio.NewReaderSize(src, 64*1024)
	for {
		chunk, err := br.ReadString('\n')
		if err != nil {
			if errors.Is(err, io.EOF) {
				return lines, n, nil
			}
			return lines, n, err
		}
		n += int64(len(chunk))
		lines = append(lines, strings.TrimRight(chunk, "\r\n"))
	}
}

// Path returns the tailed file path
func (r *Reader) Path() string { return r.path }

// Offset returns the byte offset of the first unconsumed line
func (r *Reader) Offset() int64 { return r.offset }

// Close releases the file handle. Closing twice is a no-op.
func (r *Reader) Close() error {
	if r.file == nil {
		return nil
	}
	err := r.file.Close()
	r.file = nil
	return err
}
