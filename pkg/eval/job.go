package eval

import (
	"context"
	"sort"
	"sync"
	"time"

	"src.oopis.sh/pkg/oserr"
)

// JobStatus is the lifecycle state of a job. Done is terminal.
type JobStatus uint8

// Possible values for JobStatus.
const (
	Running JobStatus = iota
	Paused
	Done
)

func (s JobStatus) String() string {
	switch s {
	case Running:
		return "Running"
	case Paused:
		return "Stopped"
	default:
		return "Done"
	}
}

// Signal is a job control signal.
type Signal uint8

// Possible values for Signal.
const (
	SigTerm Signal = iota
	SigKill
	SigStop
	SigCont
)

// ParseSignal maps a signal name, with or without a SIG prefix, to a
// Signal.
func ParseSignal(name string) (Signal, bool) {
	switch name {
	case "TERM", "SIGTERM":
		return SigTerm, true
	case "KILL", "SIGKILL":
		return SigKill, true
	case "STOP", "SIGSTOP":
		return SigStop, true
	case "CONT", "SIGCONT":
		return SigCont, true
	}
	return 0, false
}

// Job is one pipeline under execution. Pausing is cooperative: the
// executor calls Checkpoint between stages, and commands observe
// termination through the context.
type Job struct {
	ID int
	// Line is the raw pipeline text, for display.
	Line string
	// Background reports whether the job was started with &.
	Background bool
	// Started is the time the job was added to the table.
	Started time.Time

	cancel context.CancelFunc

	mu     sync.Mutex
	status JobStatus
	exit   int
	resume chan struct{}
}

// Status returns the job's current status.
func (j *Job) Status() JobStatus {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.status
}

// Exit returns the exit status; meaningful once the job is done.
func (j *Job) Exit() int {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.exit
}

// finish marks the job done. The first finish wins.
func (j *Job) finish(exit int) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.status == Done {
		return
	}
	j.status = Done
	j.exit = exit
	if j.resume != nil {
		close(j.resume)
		j.resume = nil
	}
}

// pause marks a running job paused.
func (j *Job) pause() {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.status != Running {
		return
	}
	j.status = Paused
	j.resume = make(chan struct{})
}

// cont resumes a paused job; no-op otherwise.
func (j *Job) cont() {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.status != Paused {
		return
	}
	j.status = Running
	close(j.resume)
	j.resume = nil
}

// Checkpoint blocks while the job is paused and reports cancellation. The
// executor calls it before each stage.
func (j *Job) Checkpoint(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return oserr.ErrCancelled
		default:
		}
		j.mu.Lock()
		if j.status != Paused {
			j.mu.Unlock()
			return nil
		}
		resume := j.resume
		j.mu.Unlock()
		select {
		case <-resume:
		case <-ctx.Done():
			return oserr.ErrCancelled
		}
	}
}

// JobTable tracks jobs by id. Done jobs stay listed until Reap removes
// them, so their exit status remains observable.
type JobTable struct {
	mu   sync.Mutex
	next int
	jobs map[int]*Job
	now  func() time.Time
}

// NewJobTable returns an empty job table.
func NewJobTable() *JobTable {
	return &JobTable{next: 1, jobs: make(map[int]*Job), now: time.Now}
}

// SetClock overrides the time source used for job start times.
func (t *JobTable) SetClock(now func() time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.now = now
}

// Add allocates a job for a pipeline, deriving its cancellable context.
func (t *JobTable) Add(ctx context.Context, line string, background bool) (*Job, context.Context) {
	jobCtx, cancel := context.WithCancel(ctx)
	t.mu.Lock()
	defer t.mu.Unlock()
	j := &Job{ID: t.next, Line: line, Background: background, Started: t.now(), cancel: cancel}
	t.jobs[j.ID] = j
	t.next++
	return j, jobCtx
}

// Get returns the job with the given id.
func (t *JobTable) Get(id int) (*Job, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	j, ok := t.jobs[id]
	return j, ok
}

// Jobs returns all tracked jobs ordered by id.
func (t *JobTable) Jobs() []*Job {
	t.mu.Lock()
	defer t.mu.Unlock()
	jobs := make([]*Job, 0, len(t.jobs))
	for _, j := range t.jobs {
		jobs = append(jobs, j)
	}
	sort.Slice(jobs, func(i, k int) bool { return jobs[i].ID < jobs[k].ID })
	return jobs
}

// Signal delivers a signal to a job. TERM and KILL abort it, STOP pauses
// it before its next stage, CONT resumes it.
func (t *JobTable) Signal(id int, sig Signal) error {
	j, ok := t.Get(id)
	if !ok {
		return oserr.Newf(oserr.NotFound, "no such job: %v", id)
	}
	switch sig {
	case SigTerm, SigKill:
		j.cancel()
	case SigStop:
		j.pause()
	case SigCont:
		j.cont()
	}
	return nil
}

// Reap removes done jobs from the table.
func (t *JobTable) Reap() {
	t.mu.Lock()
	defer t.mu.Unlock()
	for id, j := range t.jobs {
		if j.Status() == Done {
			delete(t.jobs, id)
		}
	}
}
