package storage

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/go-json-experiment/json"
	"gopkg.in/natefinch/lumberjack.v2"
)

var (
	ErrJournalClosed = errors.New("journal: closed")
	ErrJournalFull   = errors.New("journal: buffer full")
)

// Journal appends records as JSON lines to baseDir/<date>/<name>.jsonl.
// Writes are queued and never block the caller.
type Journal struct {
	baseDir   string
	name      string
	maxSizeMB int
	writeCh   chan any
	done      chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup

	mu          sync.Mutex
	currentDate string
	logger      *lumberjack.Logger
	now         func() time.Time
}

// NewJournal starts a journal writer. name is usually the recording session id.
func NewJournal(baseDir, name string, bufferSize, maxSizeMB int) *Journal {
	j := &Journal{
		baseDir:   baseDir,
		name:      name,
		maxSizeMB: maxSizeMB,
		writeCh:   make(chan any, bufferSize),
		done:      make(chan struct{}),
		now:       time.Now,
	}

	j.wg.Add(1)
	go j.writeLoop()

	return j
}

// Write queues a record. A full buffer drops the record.
func (j *Journal) Write(record any) error {
	select {
	case <-j.done:
		return ErrJournalClosed
	default:
	}
	select {
	case j.writeCh <- record:
		return nil
	default:
		slog.Warn("journal buffer full, dropping record", "journal", j.name)
		return ErrJournalFull
	}
}

// Path returns the file currently written to, or "" before the first record.
func (j *Journal) Path() string {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.logger == nil {
		return ""
	}
	return j.logger.Filename
}

// Close flushes queued records and closes the file.
func (j *Journal) Close() error {
	j.closeOnce.Do(func() { close(j.done) })
	j.wg.Wait()

	// drain what the loop left behind
	timeout := time.After(5 * time.Second)
	for {
		select {
		case record := <-j.writeCh:
			j.writeRecord(record)
			continue
		case <-timeout:
			slog.Warn("journal close timeout, some records may be lost", "journal", j.name)
		default:
		}
		break
	}

	j.mu.Lock()
	defer j.mu.Unlock()
	if j.logger != nil {
		return j.logger.Close()
	}
	return nil
}

func (j *Journal) writeLoop() {
	defer j.wg.Done()

	for {
		select {
		case record := <-j.writeCh:
			j.writeRecord(record)
		case <-j.done:
			return
		}
	}
}

func (j *Journal) writeRecord(record any) {
	data, err := json.Marshal(record)
	if err != nil {
		slog.Error("failed to marshal journal record", "error", err, "journal", j.name)
		return
	}

	j.mu.Lock()
	defer j.mu.Unlock()

	date := j.now().UTC().Format("2006-01-02")
	if j.logger == nil || date != j.currentDate {
		if err := j.rotateForDate(date); err != nil {
			slog.Error("failed to open journal file", "error", err, "journal", j.name)
			return
		}
	}

	if _, err := j.logger.Write(append(data, '\n')); err != nil {
		slog.Error("failed to write journal record", "error", err, "journal", j.name)
	}
}

func (j *Journal) rotateForDate(date string) error {
	if j.logger != nil {
		if err := j.logger.Close(); err != nil {
			slog.Debug("journal file close failed", "error", err)
		}
		j.logger = nil
	}

	dir := filepath.Join(j.baseDir, date)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("journal: mkdir %s: %w", dir, err)
	}

	j.logger = &lumberjack.Logger{
		Filename:   filepath.Join(dir, j.name+".jsonl"),
		MaxSize:    j.maxSizeMB,
		MaxBackups: 100,
		MaxAge:     30,
		Compress:   false,
		LocalTime:  false,
	}
	j.currentDate = date
	slog.Info("opened journal file", "file", j.logger.Filename)
	return nil
}
