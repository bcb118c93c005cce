package worker

import (
	"context"
	"sync/atomic"
	"taskBot/internal/logger"
	"taskBot/internal/messenger"
	"taskBot/internal/models/task"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const ReminderText = "Don't forget to send in today's check-in if you haven't already!"

type ReminderStore interface {
	ListDueTasks(ctx context.Context, asOf time.Time) ([]*task.Task, error)
	AdvanceNextCheckTime(ctx context.Context, taskID int64, next time.Time) error
}

type Sender interface {
	SendMessage(ctx context.Context, channelID int64, msg messenger.Message) (*messenger.MessageRef, error)
}

type Options struct {
	Interval      time.Duration
	SendTimeout   time.Duration
	UpdateTimeout time.Duration
	Concurrency   int
	Hours         ActiveHours
	Now           func() time.Time
}

type ReminderWorker struct {
	repo          ReminderStore
	sender        Sender
	interval      time.Duration
	sendTimeout   time.Duration
	updateTimeout time.Duration
	concurrency   int
	hours         ActiveHours
	now           func() time.Time
}

type TickReport struct {
	Skipped bool
	Due     int
	Sent    int
	Failed  int
}

func NewReminderWorker(repo ReminderStore, sender Sender, opts Options) *ReminderWorker {
	w := &ReminderWorker{
		repo:          repo,
		sender:        sender,
		interval:      20 * time.Minute,
		sendTimeout:   15 * time.Second,
		updateTimeout: 5 * time.Second,
		concurrency:   4,
		hours:         opts.Hours,
		now:           time.Now,
	}
	if opts.Interval > 0 {
		w.interval = opts.Interval
	}
	if opts.SendTimeout > 0 {
		w.sendTimeout = opts.SendTimeout
	}
	if opts.UpdateTimeout > 0 {
		w.updateTimeout = opts.UpdateTimeout
	}
	if opts.Concurrency > 0 {
		w.concurrency = opts.Concurrency
	}
	if w.hours == (ActiveHours{}) {
		w.hours = DefaultActiveHours()
	}
	if opts.Now != nil {
		w.now = opts.Now
	}
	return w
}

// Start делает первый тик сразу, затем по таймеру; тики не пересекаются
func (w *ReminderWorker) Start(ctx context.Context) {
	logger.Info("Worker: Запуск напоминаний", zap.Duration("interval", w.interval))

	w.Tick(ctx, w.now())

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			w.Tick(ctx, w.now())
		case <-ctx.Done():
			logger.Info("Worker: Напоминания останавливаются")
			return
		}
	}
}

// Tick рассылает напоминания по всем просроченным задачам на момент now
func (w *ReminderWorker) Tick(ctx context.Context, now time.Time) TickReport {
	if !w.hours.Contains(now) {
		logger.Info("Worker: Вне активных часов, пропуск", zap.Time("now", now))
		return TickReport{Skipped: true}
	}

	start := time.Now()
	tasks, err := w.repo.ListDueTasks(ctx, now)
	if err != nil {
		logger.Warn("Worker: ошибка получения задач", zap.Error(err))
		return TickReport{}
	}

	var sent, failed atomic.Int32
	var g errgroup.Group
	g.SetLimit(w.concurrency)

	for _, t := range tasks {
		t := t
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			if w.remind(ctx, t, now) {
				sent.Add(1)
			} else {
				failed.Add(1)
			}
			return nil
		})
	}
	_ = g.Wait()

	report := TickReport{Due: len(tasks), Sent: int(sent.Load()), Failed: int(failed.Load())}
	logger.Info("Worker: Завершение рассылки напоминаний",
		zap.Duration("ms", time.Since(start)),
		zap.Int("due", report.Due),
		zap.Int("sent", report.Sent),
		zap.Int("failed", report.Failed))
	return report
}

// remind отправляет одно напоминание и переносит срок; при сбое отправки срок не меняется
func (w *ReminderWorker) remind(ctx context.Context, t *task.Task, now time.Time) bool {
	sendCtx, cancel := context.WithTimeout(ctx, w.sendTimeout)
	_, err := w.sender.SendMessage(sendCtx, t.ThreadID, messenger.Message{Content: ReminderText})
	cancel()
	if err != nil {
		logger.Warn("Worker: Напоминание не отправлено",
			zap.Int64("task_id", t.ID),
			zap.Int64("thread_id", t.ThreadID),
			zap.Error(err))
		return false
	}

	// отправленное напоминание должно сдвинуть срок даже при остановке воркера
	updCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), w.updateTimeout)
	defer cancel()

	next := now.Add(t.DueInterval())
	if err := w.repo.AdvanceNextCheckTime(updCtx, t.ID, next); err != nil {
		logger.Warn("Worker: Ошибка переноса срока",
			zap.Int64("task_id", t.ID),
			zap.Error(err))
	}
	return true
}
