package task

import (
	"context"

	"github.com/robfig/cron/v3"
)

// Runner repeats the one-shot run on a cron schedule for daemon mode.
// Each invocation is as stateless as a run started by an external
// scheduler.
type Runner struct {
	cron *cron.Cron
	spec string
	run  func()
}

func NewRunner(spec string, run func()) *Runner {
	return &Runner{cron: cron.New(), spec: spec, run: run}
}

func (r *Runner) Start() error {
	if _, err := r.cron.AddFunc(r.spec, r.run); err != nil {
		return err
	}
	r.cron.Start()
	return nil
}

func (r *Runner) Stop() context.Context {
	return r.cron.Stop()
}
