package cron

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/multierr"

	"github.com/angelmondragon/propertyhub-backend/internal/accounting"
	pkgerrors "github.com/angelmondragon/propertyhub-backend/pkg/errors"
	"github.com/angelmondragon/propertyhub-backend/pkg/logger"
	"github.com/angelmondragon/propertyhub-backend/pkg/period"
)

// Closed periods revisited per run, so a missed cycle is caught up.
const defaultPeriodLookback = 2

type periodCloser interface {
	ClosePeriod(ctx context.Context, p period.Period) (*accounting.CloseResult, error)
}

// CommissionPeriodJobParams configures the biweekly commission close.
type CommissionPeriodJobParams struct {
	Logger     *logger.Logger
	Accounting periodCloser
	Lookback   int
}

func NewCommissionPeriodJob(params CommissionPeriodJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Accounting == nil {
		return nil, fmt.Errorf("accounting service required")
	}
	lookback := params.Lookback
	if lookback <= 0 {
		lookback = defaultPeriodLookback
	}
	return &commissionPeriodJob{
		logg:       params.Logger,
		accounting: params.Accounting,
		lookback:   lookback,
		now:        time.Now,
	}, nil
}

type commissionPeriodJob struct {
	logg       *logger.Logger
	accounting periodCloser
	lookback   int
	now        func() time.Time
}

func (j *commissionPeriodJob) Name() string { return "commission-period-close" }

// Run approves pending commissions of the most recent closed periods, oldest
// first. A failing period does not stop the others.
func (j *commissionPeriodJob) Run(ctx context.Context) error {
	periods := make([]period.Period, j.lookback)
	p := period.For(j.now()).Previous()
	for i := j.lookback - 1; i >= 0; i-- {
		periods[i] = p
		p = p.Previous()
	}

	var errs error
	for _, p := range periods {
		logCtx := j.logg.WithField(ctx, "period", p.Key())
		result, err := j.accounting.ClosePeriod(ctx, p)
		if err != nil {
			if pkgerrors.IsCode(err, pkgerrors.CodeStateConflict) {
				j.logg.Info(logCtx, "period still open; skipping")
				continue
			}
			errs = multierr.Append(errs, fmt.Errorf("close period %s: %w", p.Key(), err))
			continue
		}
		j.logg.Info(j.logg.WithField(logCtx, "approved", result.Approved), "commission period closed")
	}
	return errs
}
