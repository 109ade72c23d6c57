package store

import "time"

// FlashRecord captures the result of a flash operation.
type FlashRecord struct {
	Board     string    `json:"board"`
	Image     string    `json:"image"`
	Timestamp time.Time `json:"timestamp"`
	Success   bool      `json:"success"`
	Duration  string    `json:"duration"`
	ExitCode  int       `json:"exit_code"`
	Message   string    `json:"message,omitempty"`
}

// TestRecord captures the result of one suite.
type TestRecord struct {
	RunID     string    `json:"run_id"`
	Board     string    `json:"board"`
	Suite     string    `json:"suite"`
	Timestamp time.Time `json:"timestamp"`
	Status    string    `json:"status"`
	Duration  string    `json:"duration"`
	Message   string    `json:"message,omitempty"`
}

// Success reports whether the suite passed.
func (r TestRecord) Success() bool {
	return r.Status == "passed"
}

// RunRecord summarizes one harness run.
type RunRecord struct {
	ID         string    `json:"id"`
	Board      string    `json:"board"`
	Port       string    `json:"port"`
	Timestamp  time.Time `json:"timestamp"`
	Duration   string    `json:"duration"`
	Passed     int       `json:"passed"`
	Failed     int       `json:"failed"`
	Errored    int       `json:"errored"`
	Transcript string    `json:"transcript,omitempty"`
	Message    string    `json:"message,omitempty"`
}

// Success reports whether every suite in the run passed.
func (r RunRecord) Success() bool {
	return r.Failed == 0 && r.Errored == 0 && r.Message == ""
}

// SerialLog tracks a serial logging session.
type SerialLog struct {
	Port      string    `json:"port"`
	BaudRate  int       `json:"baud_rate"`
	Timestamp time.Time `json:"timestamp"`
	LogFile   string    `json:"log_file"`
}
