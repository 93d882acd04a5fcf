// SPDX-License-Identifier: MPL-2.0

package shell

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/oklog/ulid/v2"
)

// Job states.
const (
	JobRunning JobState = iota
	JobDone
	JobFailed
	JobKilled
)

// ErrNoSuchJob is returned for job references that match nothing.
var ErrNoSuchJob = errors.New("no such job")

type (
	// JobState is the lifecycle state of a background job.
	JobState uint8

	// Job is a pipeline handed off with "&".
	Job struct {
		Num  int
		ID   string
		Line string

		mu     sync.Mutex
		state  JobState
		result *Result
		cancel context.CancelFunc
		done   chan struct{}
	}

	// JobInfo is a point-in-time view of a job.
	JobInfo struct {
		Num   int
		ID    string
		Line  string
		State JobState
	}

	// JobTable tracks a session's background jobs. Finished jobs stay in
	// the table until their completion notice is drained.
	JobTable struct {
		mu   sync.Mutex
		next int
		jobs []*Job
		log  *log.Logger
	}
)

func (s JobState) String() string {
	switch s {
	case JobRunning:
		return "Running"
	case JobDone:
		return "Done"
	case JobFailed:
		return "Exit"
	case JobKilled:
		return "Killed"
	default:
		return "Unknown"
	}
}

// NewJobTable returns an empty table.
func NewJobTable(logger *log.Logger) *JobTable {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &JobTable{log: logger}
}

// Start runs fn on its own goroutine as job number n. The job's context
// keeps the values of ctx but not its cancellation, so the job outlives
// the line that started it; Kill cancels it.
func (t *JobTable) Start(ctx context.Context, line string, fn func(ctx context.Context) *Result) *Job {
	jctx, cancel := context.WithCancel(context.WithoutCancel(ctx))

	t.mu.Lock()
	t.next++
	j := &Job{
		Num:    t.next,
		ID:     ulid.Make().String(),
		Line:   line,
		cancel: cancel,
		done:   make(chan struct{}),
	}
	t.jobs = append(t.jobs, j)
	t.mu.Unlock()

	t.log.Debug("job started", "job", j.Num, "id", j.ID, "line", line)
	go func() {
		defer cancel()
		res := fn(jctx)
		j.finish(res)
		t.log.Debug("job finished", "job", j.Num, "id", j.ID, "state", j.State().String(), "exit", res.ExitCode)
	}()
	return j
}

func (j *Job) finish(res *Result) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.result = res
	switch {
	case errors.Is(res.Err, ErrCancelled):
		j.state = JobKilled
	case res.ExitCode.IsSuccess():
		j.state = JobDone
	default:
		j.state = JobFailed
	}
	close(j.done)
}

// State returns the job's current state.
func (j *Job) State() JobState {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.state
}

// Result returns the job's result, nil while it runs.
func (j *Job) Result() *Result {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.result
}

// Done is closed when the job finishes.
func (j *Job) Done() <-chan struct{} { return j.done }

func (j *Job) info() JobInfo {
	return JobInfo{Num: j.Num, ID: j.ID, Line: j.Line, State: j.State()}
}

// List returns every tracked job in start order.
func (t *JobTable) List() []JobInfo {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]JobInfo, 0, len(t.jobs))
	for _, j := range t.jobs {
		out = append(out, j.info())
	}
	return out
}

// Get finds a job by "%n", "n" or its id.
func (t *JobTable) Get(ref string) (*Job, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	num, err := strconv.Atoi(strings.TrimPrefix(ref, "%"))
	for _, j := range t.jobs {
		if (err == nil && j.Num == num) || j.ID == ref {
			return j, nil
		}
	}
	return nil, fmt.Errorf("%s: %w", ref, ErrNoSuchJob)
}

// Kill cancels the referenced job. Killing a finished job is a no-op.
func (t *JobTable) Kill(ref string) error {
	j, err := t.Get(ref)
	if err != nil {
		return err
	}
	j.cancel()
	t.log.Debug("job killed", "job", j.Num, "id", j.ID)
	return nil
}

// Wait blocks until the referenced job, or every job when ref is empty,
// has finished.
func (t *JobTable) Wait(ctx context.Context, ref string) error {
	var pending []*Job
	if ref != "" {
		j, err := t.Get(ref)
		if err != nil {
			return err
		}
		pending = append(pending, j)
	} else {
		t.mu.Lock()
		pending = append(pending, t.jobs...)
		t.mu.Unlock()
	}
	for _, j := range pending {
		select {
		case <-j.done:
		case <-ctx.Done():
			return Cancelled(ctx.Err())
		}
	}
	return nil
}

// Drain removes finished jobs from the table and returns them in start
// order, so their output and completion notice can be shown once.
func (t *JobTable) Drain() []*Job {
	t.mu.Lock()
	defer t.mu.Unlock()
	var finished, running []*Job
	for _, j := range t.jobs {
		if j.State() == JobRunning {
			running = append(running, j)
			continue
		}
		finished = append(finished, j)
	}
	t.jobs = running
	return finished
}

// Notice renders the completion line shown after a job finishes.
func (j *Job) Notice() string {
	state := j.State().String()
	if res := j.Result(); j.State() == JobFailed && res != nil {
		state += " " + res.ExitCode.String()
	}
	return fmt.Sprintf("[%d]+  %-10s %s", j.Num, state, j.Line)
}
