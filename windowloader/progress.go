package windowloader

import "sync"

const progressTaskName = "Loading trace window"

// ProgressMonitor receives the progress of a load.
// One unit of work is one planned slice duration of trace time.
type ProgressMonitor interface {
	BeginTask(name string, totalWork int)
	Worked(work int)
	Done()
}

// progressTracker turns the latest start timestamp seen into monotonic work increments.
type progressTracker struct {
	monitor  ProgressMonitor
	start    int64
	interval int64
	reported int
}

func newProgressTracker(monitor ProgressMonitor, start, interval int64, totalWork int) *progressTracker {
	if monitor != nil {
		monitor.BeginTask(progressTaskName, totalWork)
	}

	return &progressTracker{monitor: monitor, start: start, interval: interval}
}

// advance reports the work between the last report and latestStart. Work never regresses.
func (p *progressTracker) advance(latestStart int64) {
	worked := int((latestStart - p.start) / p.interval)
	if worked <= p.reported {
		return
	}

	if p.monitor != nil {
		p.monitor.Worked(worked - p.reported)
	}

	p.reported = worked
}

func (p *progressTracker) done() {
	if p.monitor != nil {
		p.monitor.Done()
	}
}

// ProgressCounter is a ProgressMonitor that accumulates what it is told.
// It is safe to read from another goroutine while a load reports to it.
type ProgressCounter struct {
	mu       sync.Mutex
	taskName string
	total    int
	worked   int
	tasks    int
	done     bool
}

// BeginTask starts a new task and resets the worked units.
func (c *ProgressCounter) BeginTask(name string, totalWork int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.taskName = name
	c.total = totalWork
	c.worked = 0
	c.tasks++
	c.done = false
}

// Worked adds work units.
func (c *ProgressCounter) Worked(work int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.worked += work
}

// Done marks the task as finished.
func (c *ProgressCounter) Done() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.done = true
}

// Snapshot returns task name, total work, worked units and whether the task is done.
func (c *ProgressCounter) Snapshot() (name string, total, worked int, done bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.taskName, c.total, c.worked, c.done
}

// Tasks returns how many tasks were begun.
func (c *ProgressCounter) Tasks() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.tasks
}
