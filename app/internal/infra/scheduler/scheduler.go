package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

const ReservationExpirySpec = "@every 1m"

// JobFunc is one run of a scheduled job. The context is cancelled on Stop.
type JobFunc func(ctx context.Context) error

type Scheduler struct {
	cron    *cron.Cron
	log     logrus.FieldLogger
	ctx     context.Context
	cancel  context.CancelFunc
	timeout time.Duration
}

func New(log logrus.FieldLogger) *Scheduler {
	if log == nil {
		log = logrus.StandardLogger()
	}
	cl := cronLogger{log: log.WithField("component", "scheduler")}
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		cron: cron.New(
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
		log:     log,
		ctx:     ctx,
		cancel:  cancel,
		timeout: 50 * time.Second,
	}
}

// Add registers job under name with a cron spec such as "@every 1m".
func (s *Scheduler) Add(spec, name string, job JobFunc) error {
	_, err := s.cron.AddFunc(spec, func() { s.run(name, job) })
	if err != nil {
		return fmt.Errorf("scheduler: add %s (%s): %w", name, spec, err)
	}
	return nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop halts scheduling, cancels running jobs and waits for them or ctx.
func (s *Scheduler) Stop(ctx context.Context) {
	s.cancel()
	done := s.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
		s.log.Warn("scheduler: jobs still running at shutdown")
	}
}

func (s *Scheduler) run(name string, job JobFunc) {
	ctx, cancel := context.WithTimeout(s.ctx, s.timeout)
	defer cancel()

	start := time.Now()
	log := s.log.WithField("job", name)
	if err := job(ctx); err != nil {
		log.WithError(err).WithField("duration", time.Since(start)).Error("scheduled job failed")
		return
	}
	log.WithField("duration", time.Since(start)).Debug("scheduled job finished")
}

// ReservationExpirer releases stock held by unpaid orders.
type ReservationExpirer interface {
	ExpireReservations(ctx context.Context, now time.Time) (int, error)
}

func ExpireReservations(svc ReservationExpirer, now func() time.Time, log logrus.FieldLogger) JobFunc {
	if now == nil {
		now = time.Now
	}
	return func(ctx context.Context) error {
		n, err := svc.ExpireReservations(ctx, now())
		if n > 0 && log != nil {
			log.WithField("count", n).Info("expired reservations released")
		}
		return err
	}
}

type cronLogger struct {
	log logrus.FieldLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.WithFields(fields(keysAndValues)).Debug(msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.WithFields(fields(keysAndValues)).WithError(err).Error(msg)
}

func fields(kv []interface{}) logrus.Fields {
	f := logrus.Fields{}
	for i := 0; i+1 < len(kv); i += 2 {
		f[fmt.Sprint(kv[i])] = kv[i+1]
	}
	return f
}
