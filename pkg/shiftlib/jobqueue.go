package shiftlib

import "sync"

// JobQueue holds classified jobs in dispatch order. Lower Priority values
// are dispatched first; jobs of equal priority keep their insertion order.
// The queue is consumed by a single worker but may be fed and inspected
// from the daemon's control goroutines, so access is serialized.
type JobQueue struct {
	jobs []*JobSpec
	mu   sync.Mutex
}

// NewJobQueue creates an empty job queue.
func NewJobQueue() *JobQueue {
	return &JobQueue{jobs: make([]*JobSpec, 0)}
}

// Add inserts a job in priority position. A job id already present in the
// queue is ignored.
func (q *JobQueue) Add(spec *JobSpec) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.insert(spec)
}

// Refill replaces the queue contents with the given jobs, re-applying the
// priority ordering. Used when the backing task list is reloaded between
// run windows.
func (q *JobQueue) Refill(specs []*JobSpec) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.jobs = q.jobs[:0]
	for _, spec := range specs {
		q.insert(spec)
	}
}

// insert places spec in priority position. Caller holds q.mu.
func (q *JobQueue) insert(spec *JobSpec) {
	for _, j := range q.jobs {
		if j.JobID == spec.JobID {
			return
		}
	}

	// Insert before the first job with a strictly lower priority
	// (higher Priority value) so equal priorities stay FIFO.
	insertIdx := len(q.jobs)
	for i, j := range q.jobs {
		if j.Priority > spec.Priority {
			insertIdx = i
			break
		}
	}

	q.jobs = append(q.jobs, nil)
	copy(q.jobs[insertIdx+1:], q.jobs[insertIdx:])
	q.jobs[insertIdx] = spec
}

// Next removes and returns the highest-priority job. ok is false when the
// queue is empty.
func (q *JobQueue) Next() (spec *JobSpec, ok bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.jobs) == 0 {
		return nil, false
	}
	spec = q.jobs[0]
	q.jobs = q.jobs[1:]
	return spec, true
}

// Len returns the number of jobs waiting.
func (q *JobQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.jobs)
}

// Snapshot returns the queued jobs in dispatch order without removing them.
func (q *JobQueue) Snapshot() []*JobSpec {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]*JobSpec, len(q.jobs))
	copy(out, q.jobs)
	return out
}
