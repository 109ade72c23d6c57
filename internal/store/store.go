package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Store manages persistence of run, flash and test records and the console
// transcripts that go with them.
type Store struct {
	root string
	mu   sync.Mutex
}

// New creates a Store rooted at the given directory (typically .pshtest/).
func New(root string) *Store {
	return &Store{root: root}
}

func (s *Store) historyDir() string {
	return filepath.Join(s.root, "history")
}

func (s *Store) logsDir() string {
	return filepath.Join(s.root, "logs")
}

// AddRun appends a run summary.
func (s *Store) AddRun(r RunRecord) error {
	return s.appendRecord("runs.json", r)
}

// AddFlash appends a flash record.
func (s *Store) AddFlash(r FlashRecord) error {
	return s.appendRecord("flashes.json", r)
}

// AddTest appends a test record.
func (s *Store) AddTest(r TestRecord) error {
	return s.appendRecord("tests.json", r)
}

// Runs returns all run summaries.
func (s *Store) Runs() ([]RunRecord, error) {
	var records []RunRecord
	err := s.loadRecords("runs.json", &records)
	return records, err
}

// Flashes returns all flash records.
func (s *Store) Flashes() ([]FlashRecord, error) {
	var records []FlashRecord
	err := s.loadRecords("flashes.json", &records)
	return records, err
}

// Tests returns all test records.
func (s *Store) Tests() ([]TestRecord, error) {
	var records []TestRecord
	err := s.loadRecords("tests.json", &records)
	return records, err
}

// SerialLogs returns all serial log entries.
func (s *Store) SerialLogs() ([]SerialLog, error) {
	var records []SerialLog
	err := s.loadRecords("serial_logs.json", &records)
	return records, err
}

// AddSerialLog appends a serial log entry.
func (s *Store) AddSerialLog(r SerialLog) error {
	return s.appendRecord("serial_logs.json", r)
}

// LogsDir returns the path to the logs directory, creating it if needed.
func (s *Store) LogsDir() (string, error) {
	dir := s.logsDir()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	return dir, nil
}

// CreateLog creates a new file in the logs directory named after prefix and
// the current time.
func (s *Store) CreateLog(prefix string) (*os.File, error) {
	dir, err := s.LogsDir()
	if err != nil {
		return nil, err
	}
	name := fmt.Sprintf("%s-%s.log", prefix, time.Now().Format("20060102-150405.000"))
	return os.Create(filepath.Join(dir, name))
}

// WriteLog writes data to a new log file and returns its path.
func (s *Store) WriteLog(prefix string, data []byte) (string, error) {
	f, err := s.CreateLog(prefix)
	if err != nil {
		return "", err
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return "", err
	}
	return f.Name(), f.Close()
}

func (s *Store) appendRecord(filename string, record any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	dir := s.historyDir()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	path := filepath.Join(dir, filename)

	// Read existing records
	var records []json.RawMessage
	if data, err := os.ReadFile(path); err == nil {
		if err := json.Unmarshal(data, &records); err != nil {
			return fmt.Errorf("reading %s: %w", path, err)
		}
	}

	raw, err := json.Marshal(record)
	if err != nil {
		return err
	}
	records = append(records, raw)

	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func (s *Store) loadRecords(filename string, dest any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	path := filepath.Join(s.historyDir(), filename)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	return json.Unmarshal(data, dest)
}
