package cron

import (
	"context"
	"fmt"

	"github.com/angelmondragon/propertyhub-backend/pkg/logger"
)

type offerExpirer interface {
	ExpireDue(ctx context.Context) (int, error)
}

type OfferExpiryJobParams struct {
	Logger *logger.Logger
	Offers offerExpirer
}

func NewOfferExpiryJob(params OfferExpiryJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Offers == nil {
		return nil, fmt.Errorf("offers service required")
	}
	return &offerExpiryJob{logg: params.Logger, offers: params.Offers}, nil
}

type offerExpiryJob struct {
	logg   *logger.Logger
	offers offerExpirer
}

func (j *offerExpiryJob) Name() string { return "offer-expiry" }

func (j *offerExpiryJob) Run(ctx context.Context) error {
	expired, err := j.offers.ExpireDue(ctx)
	if err != nil {
		return fmt.Errorf("offer expiry: %w", err)
	}
	j.logg.Info(j.logg.WithField(ctx, "offers_expired", expired), "offer expiry sweep complete")
	return nil
}
