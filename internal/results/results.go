// Package results persists bench run records, one JSON line per run.
package results

import (
	"bufio"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gofrs/flock"
)

// Config holds configuration for the results file.
type Config struct {
	Path         string
	BufferSize   int
	EnableBackup bool
	RotationSize int64
}

// DefaultConfig returns default configuration
func DefaultConfig() Config {
	return Config{
		Path:         "poolbench.results",
		BufferSize:   8 * 1024, // 8KB
		EnableBackup: true,
		RotationSize: 1 << 26, // 64MB
	}
}

type Writer struct {
	config   Config
	file     *os.File
	writer   *bufio.Writer
	fileLock *flock.Flock
	logger   *log.Logger
	mu       sync.Mutex
}

// NewWriter opens the results file for appending. The file is guarded
// by a lock file so concurrent bench runs do not interleave records.
func NewWriter(config Config) (*Writer, error) {
	if config.Path == "" {
		config = DefaultConfig()
	}

	// Ensure directory exists
	dir := filepath.Dir(config.Path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %v", err)
	}

	// File locking to prevent concurrent access
	lock := flock.New(config.Path + ".lock")
	if err := lock.Lock(); err != nil {
		return nil, fmt.Errorf("failed to lock results file: %v", err)
	}

	f, err := os.OpenFile(config.Path, os.O_CREATE|os.O_RDWR|os.O_APPEND, 0666)
	if err != nil {
		lock.Unlock()
		return nil, fmt.Errorf("failed to open results file: %v", err)
	}

	return &Writer{
		config:   config,
		file:     f,
		writer:   bufio.NewWriterSize(f, config.BufferSize),
		fileLock: lock,
		logger:   log.New(os.Stderr, "results: ", log.Ldate|log.Ltime),
	}, nil
}

// Append writes one record as a JSON line and syncs it to disk.
func (w *Writer) Append(record interface{}) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.checkRotation(); err != nil {
		w.logger.Printf("Rotation failed: %v", err)
	}

	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to encode record: %v", err)
	}
	if _, err := w.writer.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("failed to write record: %v", err)
	}
	return w.sync()
}

// Close flushes outstanding records and releases the lock.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.sync(); err != nil {
		w.logger.Printf("Final sync failed: %v", err)
		return fmt.Errorf("final sync failed: %v", err)
	}

	w.fileLock.Unlock()
	return w.file.Close()
}

// Internal methods

func (w *Writer) sync() error {
	if err := w.writer.Flush(); err != nil {
		w.logger.Printf("Flush failed: %v", err)
		return err
	}
	if err := w.file.Sync(); err != nil {
		w.logger.Printf("File sync failed: %v", err)
		return err
	}
	return nil
}

func (w *Writer) checkRotation() error {
	info, err := w.file.Stat()
	if err != nil {
		return err
	}

	if info.Size() >= w.config.RotationSize {
		return w.rotate()
	}
	return nil
}

func (w *Writer) rotate() error {
	// Backup current file
	if w.config.EnableBackup {
		if err := w.backupFile(); err != nil {
			return err
		}
	}

	// Sync current file
	if err := w.sync(); err != nil {
		return err
	}

	// Create rotation file name with timestamp
	timestamp := time.Now().Format("20060102150405")
	rotatedPath := fmt.Sprintf("%s.%s", w.config.Path, timestamp)

	// Close current file
	if err := w.file.Close(); err != nil {
		return err
	}

	// Rename current file
	if err := os.Rename(w.config.Path, rotatedPath); err != nil {
		return err
	}

	// Open new file
	f, err := os.OpenFile(w.config.Path, os.O_CREATE|os.O_RDWR|os.O_APPEND, 0666)
	if err != nil {
		return err
	}

	// Update handlers
	w.file = f
	w.writer = bufio.NewWriterSize(f, w.config.BufferSize)

	return nil
}

func (w *Writer) backupFile() error {
	backupPath := fmt.Sprintf("%s.bak", w.config.Path)
	if err := copyFile(w.config.Path, backupPath); err != nil {
		w.logger.Printf("Backup failed: %v", err)
		return fmt.Errorf("backup failed: %v", err)
	}
	return nil
}

func copyFile(src, dst string) error {
	data, err := os.ReadFile(src)
	if err != nil {
		return err
	}
	return os.WriteFile(dst, data, 0666)
}
