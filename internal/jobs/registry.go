// Package jobs runs the recurring pipeline work (feature sync, inference)
// on a fixed cadence with a Redis lock keeping concurrent worker replicas
// from running the same cycle twice.
package jobs

import "context"

// Job is one schedulable unit of pipeline work.
type Job interface {
	Name() string
	Run(ctx context.Context) error
}

type funcJob struct {
	name string
	run  func(ctx context.Context) error
}

// NewJob wraps a service method as a named job.
func NewJob(name string, run func(ctx context.Context) error) Job {
	return &funcJob{name: name, run: run}
}

func (j *funcJob) Name() string { return j.name }

func (j *funcJob) Run(ctx context.Context) error { return j.run(ctx) }

// Registry holds jobs in registration order.
type Registry struct {
	jobs []Job
}

func NewRegistry(jobs ...Job) *Registry {
	registry := &Registry{}
	for _, job := range jobs {
		registry.Register(job)
	}
	return registry
}

func (r *Registry) Register(job Job) {
	if job == nil {
		return
	}
	r.jobs = append(r.jobs, job)
}

func (r *Registry) Jobs() []Job {
	jobs := make([]Job, len(r.jobs))
	copy(jobs, r.jobs)
	return jobs
}
