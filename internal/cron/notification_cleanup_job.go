package cron

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/angelmondragon/propertyhub-backend/pkg/logger"
)

const defaultNotificationRetention = 90 * 24 * time.Hour

type NotificationCleanupJobParams struct {
	Logger     *logger.Logger
	DB         txRunner
	Repository notificationsCleanupRepo
	// Retention applies to read notifications; unread ones never expire.
	Retention time.Duration
}

type notificationsCleanupRepo interface {
	DeleteOlderThan(ctx context.Context, tx *gorm.DB, cutoff time.Time) (int64, error)
}

func NewNotificationCleanupJob(params NotificationCleanupJobParams) (Job, error) {
	if params.Repository == nil {
		return nil, fmt.Errorf("notifications repository required")
	}
	window := params.Retention
	if window <= 0 {
		window = defaultNotificationRetention
	}
	job, err := newRetentionJob("notification-cleanup", params.Logger, params.DB, window, params.Repository.DeleteOlderThan)
	if err != nil {
		return nil, err
	}
	return job, nil
}
