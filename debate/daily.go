package debate

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/meikuraledutech/colosseum"
)

// DailyScheduler fires once per day at a fixed local time-of-day, rotates
// the topic, and starts a fresh session in the configured chat. Its timer is
// independent of the turn cadence and cancellable on its own.
type DailyScheduler struct {
	orc    *Orchestrator
	hour   int
	minute int
	offset time.Duration
	log    *slog.Logger
	now    func() time.Time

	mu     sync.Mutex
	cancel context.CancelFunc
}

// NewDailyScheduler creates a disabled scheduler. tzOffsetMinutes shifts the
// fire time away from UTC (default deployment runs at UTC+8).
func NewDailyScheduler(orc *Orchestrator, hour, minute, tzOffsetMinutes int, log *slog.Logger) *DailyScheduler {
	return &DailyScheduler{
		orc:    orc,
		hour:   hour,
		minute: minute,
		offset: time.Duration(tzOffsetMinutes) * time.Minute,
		log:    log,
		now:    time.Now,
	}
}

// Enable starts (or restarts) the daily timer targeting chatID.
func (d *DailyScheduler) Enable(chatID int64) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.cancel != nil {
		d.cancel()
	}

	ctx, cancel := context.WithCancel(context.Background())
	d.cancel = cancel
	go d.run(ctx, chatID)

	d.log.Info("daily rotation enabled", "chat_id", chatID, "hour", d.hour, "minute", d.minute)
}

// Disable stops the daily timer. Reports whether one was running.
func (d *DailyScheduler) Disable() bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.cancel == nil {
		return false
	}
	d.cancel()
	d.cancel = nil
	d.log.Info("daily rotation disabled")
	return true
}

// Enabled reports whether the timer is running.
func (d *DailyScheduler) Enabled() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.cancel != nil
}

func (d *DailyScheduler) run(ctx context.Context, chatID int64) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-time.After(d.untilNext()):
		}

		topic, err := d.orc.RotateTopic()
		if err != nil {
			if errors.Is(err, colosseum.ErrTopicsExhausted) {
				d.log.Warn("daily rotation halted, topic catalog exhausted")
				return
			}
			d.log.Warn("daily rotation failed", "error", err)
			continue
		}

		// Yesterday's debate, if still running, makes way for today's.
		if _, err := d.orc.StopAllForChat(ctx, chatID); err != nil {
			d.log.Warn("stop sessions failed", "chat_id", chatID, "error", err)
		}

		if _, err := d.orc.StartSession(ctx, chatID, 0, topic.Title); err != nil {
			d.log.Warn("daily session start failed", "chat_id", chatID, "error", err)
		}
	}
}

// untilNext computes the wait until the next HH:MM in the configured local
// offset.
func (d *DailyScheduler) untilNext() time.Duration {
	nowLocal := d.now().UTC().Add(d.offset)
	target := time.Date(nowLocal.Year(), nowLocal.Month(), nowLocal.Day(), d.hour, d.minute, 0, 0, time.UTC)
	if !target.After(nowLocal) {
		target = target.AddDate(0, 0, 1)
	}
	return target.Sub(nowLocal)
}
