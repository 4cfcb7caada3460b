// Package scheduler runs the periodic recurring-billing batch: it finds due
// templates and materializes draft invoices from them, one template at a time.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/fakturo/fakturo/internal/clock"
	customerdomain "github.com/fakturo/fakturo/internal/customer/domain"
	invoicedomain "github.com/fakturo/fakturo/internal/invoice/domain"
	"github.com/fakturo/fakturo/internal/invoice/numbering"
	obsmetrics "github.com/fakturo/fakturo/internal/observability/metrics"
	recurringdomain "github.com/fakturo/fakturo/internal/recurring/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var ErrInvalidConfig = errors.New("scheduler: invalid configuration")

type Params struct {
	fx.In

	DB        *gorm.DB
	Log       *zap.Logger
	GenID     *snowflake.Node
	Clock     clock.Clock
	Templates recurringdomain.Repository
	Customers customerdomain.Repository
	Invoices  invoicedomain.Repository
	Numbering numbering.Generator
	Config    Config `optional:"true"`
}

type Scheduler struct {
	db        *gorm.DB
	log       *zap.Logger
	cfg       Config
	genID     *snowflake.Node
	clock     clock.Clock
	templates recurringdomain.Repository
	customers customerdomain.Repository
	invoices  invoicedomain.Repository
	numbering numbering.Generator
}

func New(p Params) (*Scheduler, error) {
	if p.DB == nil || p.Log == nil || p.GenID == nil || p.Clock == nil ||
		p.Templates == nil || p.Customers == nil || p.Invoices == nil || p.Numbering == nil {
		return nil, ErrInvalidConfig
	}
	return &Scheduler{
		db:        p.DB,
		log:       p.Log.Named("scheduler").With(zap.String("component", "scheduler")),
		cfg:       p.Config.withDefaults(),
		genID:     p.GenID,
		clock:     p.Clock,
		templates: p.Templates,
		customers: p.Customers,
		invoices:  p.Invoices,
		numbering: p.Numbering,
	}, nil
}

func (s *Scheduler) runJob(parent context.Context, name string, timeout time.Duration, fn func(ctx context.Context) error) error {
	start := time.Now()
	ctx, cancel := context.WithTimeout(parent, timeout)
	defer cancel()

	schedMetrics := obsmetrics.Scheduler()
	schedMetrics.IncJobRun(name)

	err := fn(ctx)
	schedMetrics.ObserveJobDuration(name, time.Since(start))
	if err == nil {
		return nil
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		schedMetrics.IncJobTimeout(name)
		s.log.Warn("job timed out",
			zap.String("job", name),
			zap.Duration("timeout", timeout),
			zap.Error(err),
		)
		return nil
	}

	schedMetrics.IncJobError(name)
	return fmt.Errorf("%s: %w", name, err)
}

// RunOnce executes one scheduling pass. Per-template failures are aggregated
// inside the job and never abort the batch; only infrastructure failures
// (candidate query, context) surface here.
func (s *Scheduler) RunOnce(parent context.Context) error {
	return s.runJob(parent, "process_recurring", s.cfg.JobTimeout, func(ctx context.Context) error {
		result, err := s.ProcessRecurring(ctx)
		if err != nil {
			return err
		}
		if len(result.Failures) > 0 {
			s.log.Warn("recurring run finished with failures",
				zap.Int("considered", result.Considered),
				zap.Int("created", result.Created),
				zap.Int("failed", len(result.Failures)),
			)
		}
		return nil
	})
}

func (s *Scheduler) RunForever(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.RunInterval)
	defer ticker.Stop()

	for {
		if err := s.RunOnce(ctx); err != nil {
			s.log.Warn("scheduler run failed", zap.Error(err))
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
