// Package harness runs psh suites against one board: flash it, attach to
// its console, bring up the shell and run each suite in turn.
package harness

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/buckleypaul/pshtest/internal/board"
	"github.com/buckleypaul/pshtest/internal/console"
	"github.com/buckleypaul/pshtest/internal/flash"
	"github.com/buckleypaul/pshtest/internal/psh"
	"github.com/buckleypaul/pshtest/internal/scenarios"
	"github.com/buckleypaul/pshtest/internal/serial"
	"github.com/buckleypaul/pshtest/internal/store"
)

// Suite statuses.
const (
	StatusPassed  = "passed"
	StatusFailed  = "failed"
	StatusErrored = "errored"
)

// ErrFlash is wrapped by Run when the precondition flash fails.
var ErrFlash = errors.New("flash precondition failed")

// Flasher programs the board before the run.
type Flasher interface {
	Flash(ctx context.Context) (*flash.Outcome, error)
}

// SuiteResult is the outcome of one suite.
type SuiteResult struct {
	Name     string
	Status   string
	Message  string
	Duration time.Duration
}

// Report summarizes a run.
type Report struct {
	ID         string
	Board      string
	Port       string
	Flash      *flash.Outcome
	Suites     []SuiteResult
	Transcript string
	Started    time.Time
	Duration   time.Duration
}

// Counts returns how many suites passed, failed and errored.
func (r *Report) Counts() (passed, failed, errored int) {
	for _, s := range r.Suites {
		switch s.Status {
		case StatusPassed:
			passed++
		case StatusFailed:
			failed++
		default:
			errored++
		}
	}
	return passed, failed, errored
}

// Passed reports whether every suite passed.
func (r *Report) Passed() bool {
	_, failed, errored := r.Counts()
	return failed == 0 && errored == 0
}

// Event is sent to Runner.Notify as the run progresses.
type Event struct {
	Stage  string
	Suite  string
	Result *SuiteResult
}

// Stages reported through Event.
const (
	StageFlash = "flash"
	StageOpen  = "open"
	StageInit  = "init"
	StageSuite = "suite"
	StageDone  = "done"
)

// Runner runs suites against one board.
type Runner struct {
	Board  board.Profile
	Port   string
	Baud   int // zero uses the board's rate
	Suites []scenarios.Suite

	// Session configures timeouts for the psh session.
	Session   []psh.Option
	CharDelay time.Duration

	// Flasher is nil when the board should not be flashed.
	Flasher Flasher
	Open    serial.Opener
	Store   *store.Store
	Logger  *log.Logger
	Notify  func(Event)
}

// Run executes the whole run. The returned report is never nil. An error is
// returned only when the run could not get as far as the suites: a failed
// flash, an unopenable port or a shell that never came up. Suite failures
// are reported in the Report.
func (r *Runner) Run(ctx context.Context) (*Report, error) {
	logger := r.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}

	started := time.Now()
	rep := &Report{
		ID:      started.Format("20060102-150405"),
		Board:   r.Board.Name,
		Port:    r.Port,
		Started: started,
	}
	logger = logger.With("run_id", rep.ID, "board", rep.Board)

	err := r.run(ctx, rep, logger)
	rep.Duration = time.Since(started)

	passed, failed, errored := rep.Counts()
	logger.Info("run finished", "passed", passed, "failed", failed, "errored", errored, "duration", rep.Duration)
	r.notify(Event{Stage: StageDone})

	if r.Store != nil {
		rec := store.RunRecord{
			ID:         rep.ID,
			Board:      rep.Board,
			Port:       rep.Port,
			Timestamp:  started,
			Duration:   rep.Duration.Round(time.Millisecond).String(),
			Passed:     passed,
			Failed:     failed,
			Errored:    errored,
			Transcript: rep.Transcript,
		}
		if err != nil {
			rec.Message = err.Error()
		}
		if serr := r.Store.AddRun(rec); serr != nil {
			logger.Warn("could not record run", "err", serr)
		}
	}
	return rep, err
}

func (r *Runner) run(ctx context.Context, rep *Report, logger *log.Logger) error {
	if r.Flasher != nil {
		r.notify(Event{Stage: StageFlash})
		start := time.Now()
		outcome, err := r.Flasher.Flash(ctx)
		rep.Flash = outcome
		r.recordFlash(FlashRecord(r.Board, outcome, err, start), logger)
		if err != nil {
			r.skip(rep, r.Suites, "not run: flashing failed", logger)
			return fmt.Errorf("%w: %w", ErrFlash, err)
		}
	}

	r.notify(Event{Stage: StageOpen})
	open := r.Open
	if open == nil {
		open = serial.Open
	}
	baud := r.Baud
	if baud <= 0 {
		baud = r.Board.Baud
	}
	port, err := open(r.Port, baud)
	if err != nil {
		r.skip(rep, r.Suites, "not run: "+err.Error(), logger)
		return err
	}

	opts := []console.Option{
		console.WithPacer(r.Board.Pacer(r.CharDelay)),
		console.WithLogger(logger),
	}
	if r.Store != nil {
		transcript, err := r.Store.CreateLog("console-" + rep.ID)
		if err != nil {
			logger.Warn("console transcript disabled", "err", err)
		} else {
			defer transcript.Close()
			rep.Transcript = transcript.Name()
			opts = append(opts, console.WithTranscript(transcript))
		}
	}
	con := console.New(port, opts...)
	defer func() {
		if err := con.Close(); err != nil {
			logger.Debug("closing console", "err", err)
		}
	}()

	sess, err := psh.New(con, psh.DefaultConfig(r.Session...), logger)
	if err != nil {
		r.skip(rep, r.Suites, "not run: "+err.Error(), logger)
		return err
	}

	r.notify(Event{Stage: StageInit})
	if err := sess.Init(ctx); err != nil {
		r.skip(rep, r.Suites, "not run: "+firstLine(err.Error()), logger)
		return fmt.Errorf("starting psh session: %w", err)
	}

	for i, suite := range r.Suites {
		r.notify(Event{Stage: StageSuite, Suite: suite.Name})
		res := r.runSuite(ctx, sess, suite, logger)
		rep.Suites = append(rep.Suites, res)
		r.recordTest(rep, res, logger)
		r.notify(Event{Stage: StageSuite, Suite: suite.Name, Result: &res})

		if res.Status == StatusErrored {
			r.skip(rep, r.Suites[i+1:], "not run: "+firstLine(res.Message), logger)
			return nil
		}
		if res.Status == StatusFailed && i < len(r.Suites)-1 {
			// Put the shell back at a known prompt before the next suite.
			if err := sess.Init(ctx); err != nil {
				logger.Error("psh did not recover after failure", "err", err)
				r.skip(rep, r.Suites[i+1:], "not run: "+firstLine(err.Error()), logger)
				return nil
			}
		}
	}
	return nil
}

func (r *Runner) runSuite(ctx context.Context, sess *psh.Session, suite scenarios.Suite, logger *log.Logger) SuiteResult {
	logger.Info("suite started", "suite", suite.Name)
	start := time.Now()
	err := suite.Run(ctx, sess)
	res := SuiteResult{Name: suite.Name, Status: StatusPassed, Duration: time.Since(start)}

	var ae *psh.AssertionError
	switch {
	case err == nil:
		logger.Info("suite passed", "suite", suite.Name, "duration", res.Duration)
		return res
	case errors.As(err, &ae) && !psh.IsFatal(err):
		res.Status = StatusFailed
	default:
		res.Status = StatusErrored
	}
	res.Message = err.Error()
	logger.Error("suite "+res.Status, "suite", suite.Name, "err", err)
	return res
}

// skip marks suites that never ran as errored.
func (r *Runner) skip(rep *Report, suites []scenarios.Suite, msg string, logger *log.Logger) {
	for _, s := range suites {
		res := SuiteResult{Name: s.Name, Status: StatusErrored, Message: msg}
		rep.Suites = append(rep.Suites, res)
		r.recordTest(rep, res, logger)
	}
}

// FlashRecord describes one flash attempt for the history store.
func FlashRecord(b board.Profile, outcome *flash.Outcome, err error, start time.Time) store.FlashRecord {
	rec := store.FlashRecord{
		Board:     b.Name,
		Image:     b.Image,
		Timestamp: start,
		Success:   err == nil,
		ExitCode:  -1,
	}
	if outcome != nil {
		rec.Duration = outcome.Duration.Round(time.Millisecond).String()
		rec.ExitCode = outcome.ExitCode
	}
	if err != nil {
		rec.Message = err.Error()
	}
	return rec
}

func (r *Runner) recordFlash(rec store.FlashRecord, logger *log.Logger) {
	if r.Store == nil {
		return
	}
	if err := r.Store.AddFlash(rec); err != nil {
		logger.Warn("could not record flash", "err", err)
	}
}

func (r *Runner) recordTest(rep *Report, res SuiteResult, logger *log.Logger) {
	if r.Store == nil {
		return
	}
	rec := store.TestRecord{
		RunID:     rep.ID,
		Board:     rep.Board,
		Suite:     res.Name,
		Timestamp: time.Now(),
		Status:    res.Status,
		Duration:  res.Duration.Round(time.Millisecond).String(),
		Message:   res.Message,
	}
	if err := r.Store.AddTest(rec); err != nil {
		logger.Warn("could not record suite", "suite", res.Name, "err", err)
	}
}

func (r *Runner) notify(ev Event) {
	if r.Notify != nil {
		r.Notify(ev)
	}
}

func firstLine(msg string) string {
	if i := strings.IndexByte(msg, '\n'); i >= 0 {
		return msg[:i]
	}
	return msg
}
