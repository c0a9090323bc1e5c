package cron

import (
	"context"
	"sync"
	"time"

	"github.com/questx-lab/referral/pkg/xcontext"
)

type CronJob interface {
	Do(context.Context)
	RunNow() bool
	Next() time.Time
}

// CronJobManager runs every registered job at the time the job asks for next.
// A job never overlaps with itself.
type CronJobManager struct {
	mutex  sync.Mutex
	wait   sync.WaitGroup
	jobs   []CronJob
	cancel context.CancelFunc
}

func NewCronJobManager() *CronJobManager {
	return &CronJobManager{}
}

func (m *CronJobManager) Register(job CronJob) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.jobs = append(m.jobs, job)
}

// Start blocks until ctx is done or Cancel is called, then waits for the
// running jobs to return.
func (m *CronJobManager) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)

	m.mutex.Lock()
	m.cancel = cancel
	jobs := append([]CronJob{}, m.jobs...)
	m.mutex.Unlock()

	xcontext.Logger(ctx).Infof("Cron job manager started with %d jobs", len(jobs))

	for _, job := range jobs {
		m.wait.Add(1)
		go m.loop(ctx, job)
	}

	<-ctx.Done()
	m.wait.Wait()
	xcontext.Logger(ctx).Infof("Cron job manager stopped")
}

func (m *CronJobManager) Cancel() {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if m.cancel != nil {
		m.cancel()
	}
}

func (m *CronJobManager) loop(ctx context.Context, job CronJob) {
	defer m.wait.Done()

	if job.RunNow() {
		m.run(ctx, job)
	}

	for {
		timer := time.NewTimer(time.Until(job.Next()))
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
			m.run(ctx, job)
		}
	}
}

func (m *CronJobManager) run(ctx context.Context, job CronJob) {
	xcontext.Logger(ctx).Infof("%T is running...", job)
	job.Do(ctx)
	xcontext.Logger(ctx).Infof("%T ok", job)
}
