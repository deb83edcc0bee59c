package node

import (
	"fmt"
	"time"

	"github.com/go-co-op/gocron/v2"
)

// bot runs a periodic job until stopped.
type bot struct {
	scheduler gocron.Scheduler
}

func startBot(interval time.Duration, tick func()) (*bot, error) {
	s, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("create bot scheduler: %w", err)
	}
	_, err = s.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(tick),
		gocron.WithStartAt(gocron.WithStartImmediately()),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		_ = s.Shutdown()
		return nil, fmt.Errorf("create bot job: %w", err)
	}
	s.Start()
	return &bot{scheduler: s}, nil
}

func (b *bot) stop() error {
	if err := b.scheduler.Shutdown(); err != nil {
		return fmt.Errorf("stop bot scheduler: %w", err)
	}
	return nil
}
