package jobs

import (
	"fmt"
	"sort"
	"sync"
	"time"
)

type JobStatus string

const (
	JobPending   JobStatus = "pending"
	JobRunning   JobStatus = "running"
	JobCompleted JobStatus = "completed"
	JobFailed    JobStatus = "failed"
)

// Job tracks the cross-validation of one feature set.
type Job struct {
	ID          string
	FeatureSet  string
	Description string
	Status      JobStatus
	Recorded    int
	Target      int
	StartTime   time.Time
	EndTime     *time.Time
	Error       error
	Result      any
	Logs        []string
	seq         int
	mu          sync.RWMutex
}

type Manager struct {
	jobs map[string]*Job
	next int
	mu   sync.RWMutex
}

func NewManager() *Manager {
	return &Manager{
		jobs: make(map[string]*Job),
	}
}

func (m *Manager) CreateJob(featureSet, description string) *Job {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.next++
	jobID := fmt.Sprintf("cv_%s_%d", featureSet, m.next)
	job := &Job{
		ID:          jobID,
		FeatureSet:  featureSet,
		Description: description,
		Status:      JobPending,
		StartTime:   time.Now(),
		Logs:        []string{},
		seq:         m.next,
	}

	m.jobs[jobID] = job
	return job
}

func (m *Manager) GetJob(jobID string) (*Job, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	job, exists := m.jobs[jobID]
	return job, exists
}

// ListJobs returns jobs in creation order.
func (m *Manager) ListJobs() []*Job {
	m.mu.RLock()
	defer m.mu.RUnlock()

	jobs := make([]*Job, 0, len(m.jobs))
	for _, job := range m.jobs {
		jobs = append(jobs, job)
	}
	sort.Slice(jobs, func(i, j int) bool {
		return jobs[i].seq < jobs[j].seq
	})
	return jobs
}

func (j *Job) Start(target int) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Status = JobRunning
	j.Target = target
	j.StartTime = time.Now()
}

func (j *Job) Advance(recorded int) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Recorded = recorded
}

func (j *Job) AddLog(message string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	timestamp := time.Now().Format("15:04:05")
	j.Logs = append(j.Logs, fmt.Sprintf("[%s] %s", timestamp, message))
}

func (j *Job) Fail(err error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Error = err
	j.Status = JobFailed
	now := time.Now()
	j.EndTime = &now
}

func (j *Job) Complete(result any) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Result = result
	j.Status = JobCompleted
	now := time.Now()
	j.EndTime = &now
}

func (j *Job) GetStatus() JobStatus {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.Status
}

// GetProgress is the share of the target already recorded, capped at 1.
func (j *Job) GetProgress() float64 {
	j.mu.RLock()
	defer j.mu.RUnlock()
	if j.Target <= 0 {
		return 0
	}
	p := float64(j.Recorded) / float64(j.Target)
	if p > 1 {
		p = 1
	}
	return p
}

func (j *Job) GetError() error {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.Error
}

func (j *Job) Duration() time.Duration {
	j.mu.RLock()
	defer j.mu.RUnlock()
	if j.EndTime == nil {
		return time.Since(j.StartTime)
	}
	return j.EndTime.Sub(j.StartTime)
}

func (j *Job) GetLogs() []string {
	j.mu.RLock()
	defer j.mu.RUnlock()
	logs := make([]string, len(j.Logs))
	copy(logs, j.Logs)
	return logs
}
