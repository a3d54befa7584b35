package worker

import (
	"context"
	"log"
	"time"

	"unimail/inbox"
	"unimail/models"
	"unimail/storage"

	controller "unimail/controllers"
)

// NewMailChecker is the provider-side signal the poll consumes. Only the
// Gmail client implements it.
type NewMailChecker interface {
	CheckNewMail(ctx context.Context, accountID uint) (bool, error)
}

// AccountLister yields the accounts currently worth polling.
type AccountLister func() []models.Account

// SnoozeWaker releases snoozed messages whose wake time has passed.
type SnoozeWaker interface {
	Due(accountID uint, now time.Time) ([]string, error)
}

// PollWorker periodically checks Gmail-type accounts for new mail, marks the
// per-account flag and notifies connected clients. It stays quiet while no
// client is visible and while the open folder has no new-mail semantics.
type PollWorker struct {
	checker  NewMailChecker
	flags    *storage.NewMailFlags
	hub      *controller.NotifyHub
	store    *inbox.Store
	snoozes  SnoozeWaker
	accounts AccountLister
	interval time.Duration
	logger   *log.Logger
}

func NewPollWorker(checker NewMailChecker, flags *storage.NewMailFlags, hub *controller.NotifyHub, store *inbox.Store, snoozes SnoozeWaker, accounts AccountLister, interval time.Duration, logger *log.Logger) *PollWorker {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &PollWorker{
		checker:  checker,
		flags:    flags,
		hub:      hub,
		store:    store,
		snoozes:  snoozes,
		accounts: accounts,
		interval: interval,
		logger:   logger,
	}
}

// Run blocks until the context is cancelled.
func (w *PollWorker) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.logger.Printf("new-mail poll started, interval %s", w.interval)
	for {
		select {
		case <-ctx.Done():
			w.logger.Println("new-mail poll stopped")
			return
		case <-ticker.C:
			w.tick(ctx)
		}
	}
}

func (w *PollWorker) tick(ctx context.Context) {
	if !w.hub.AnyVisible() {
		return
	}
	if !w.store.ActiveFolder().Polled() {
		return
	}

	for _, account := range w.accounts() {
		w.wakeSnoozed(ctx, account)

		if account.Type != models.ProviderGmail {
			continue
		}
		fresh, err := w.checker.CheckNewMail(ctx, account.ID)
		if err != nil {
			w.logger.Printf("new-mail check failed for account %d: %v", account.ID, err)
			continue
		}
		if !fresh {
			continue
		}
		if err := w.flags.Mark(ctx, account.ID); err != nil {
			w.logger.Printf("marking new-mail flag for account %d: %v", account.ID, err)
		}
		w.hub.BroadcastNewMail(account.ID)
	}
}

// wakeSnoozed releases due snoozes and surfaces them through the same
// new-mail signal, so a woken message pulls the user back like fresh mail.
func (w *PollWorker) wakeSnoozed(ctx context.Context, account models.Account) {
	if w.snoozes == nil {
		return
	}
	woken, err := w.snoozes.Due(account.ID, time.Now())
	if err != nil {
		w.logger.Printf("snooze wake check failed for account %d: %v", account.ID, err)
		return
	}
	if len(woken) == 0 {
		return
	}
	w.logger.Printf("%d snoozed messages woke for account %d", len(woken), account.ID)
	if err := w.flags.Mark(ctx, account.ID); err != nil {
		w.logger.Printf("marking new-mail flag for account %d: %v", account.ID, err)
	}
	w.hub.BroadcastNewMail(account.ID)
}
