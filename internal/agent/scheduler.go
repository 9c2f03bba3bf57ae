package agent

import (
	"strings"

	"github.com/Hedok25/photo-services/pkg/log"
	"github.com/robfig/cron/v3"
)

// newScheduler runs fn on the cron schedule. An empty or invalid schedule is
// logged and yields nil, leaving startup and manual triggers as the only ones.
func newScheduler(schedule string, fn func(), logger log.LoggerService) *cron.Cron {
	schedule = strings.TrimSpace(schedule)
	if schedule == "" {
		logger.Info("No sync schedule configured")
		return nil
	}

	scheduler := cron.New()
	if _, err := scheduler.AddFunc(schedule, fn); err != nil {
		logger.Error("Invalid sync schedule '%s': %v", schedule, err)
		return nil
	}

	scheduler.Start()
	logger.Info("Sync scheduled with '%s'", schedule)
	return scheduler
}
