package subscription

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/cleared-dev/homebook/internal/journal"
	"github.com/cleared-dev/homebook/internal/model"
	"github.com/cleared-dev/homebook/internal/store"
)

// Service manages subscriptions and books their due occurrences.
type Service struct {
	ledger *journal.Service
	log    *slog.Logger
	now    func() time.Time
}

// NewService creates a subscription Service. A nil logger means slog.Default().
func NewService(ledger *journal.Service, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{ledger: ledger, log: logger, now: time.Now}
}

// CreateParams describes a new subscription.
type CreateParams struct {
	Name            string
	Cadence         model.Cadence
	Interval        int // 0 = 1
	NextDueDate     time.Time
	Amount          decimal.Decimal
	DebitAccountID  int64
	CreditAccountID int64
	Memo            string
	AutoPost        bool
	Inactive        bool
}

// Create validates and stores a subscription.
func (s *Service) Create(ctx context.Context, p CreateParams) (model.Subscription, error) {
	sub := model.Subscription{
		Name:            strings.TrimSpace(p.Name),
		Cadence:         p.Cadence,
		Interval:        p.Interval,
		NextDueDate:     model.Day(p.NextDueDate),
		Amount:          p.Amount,
		DebitAccountID:  p.DebitAccountID,
		CreditAccountID: p.CreditAccountID,
		Memo:            strings.TrimSpace(p.Memo),
		AutoPost:        p.AutoPost,
		IsActive:        !p.Inactive,
	}
	if sub.Interval == 0 {
		sub.Interval = 1
	}
	if sub.Name == "" {
		return model.Subscription{}, fmt.Errorf("creating subscription: name is required")
	}
	if _, err := Advance(sub.NextDueDate, sub.Cadence, sub.Interval); err != nil {
		return model.Subscription{}, fmt.Errorf("creating subscription %q: %w", sub.Name, err)
	}
	if !sub.Amount.IsPositive() {
		return model.Subscription{}, fmt.Errorf("creating subscription %q: %w: amount must be greater than zero",
			sub.Name, model.ErrInvalidAmount)
	}

	err := s.ledger.Store().Tx(ctx, func(tx *store.Tx) error {
		for _, id := range []int64{sub.DebitAccountID, sub.CreditAccountID} {
			a, err := tx.GetAccount(ctx, id)
			if err != nil {
				return err
			}
			if !a.AllowPosting {
				return fmt.Errorf("%w: %q (%d)", model.ErrPostingToAggregateAccount, a.Name, a.ID)
			}
		}
		sub.CreatedAt = s.now()
		sub.UpdatedAt = sub.CreatedAt
		var err error
		sub.ID, err = tx.InsertSubscription(ctx, sub)
		return err
	})
	if err != nil {
		return model.Subscription{}, fmt.Errorf("creating subscription %q: %w", sub.Name, err)
	}
	s.log.Info("created subscription", "subscription", sub.ID, "cadence", sub.Cadence, "interval", sub.Interval,
		"next_due", sub.NextDueDate.Format(model.DateFormat))
	return sub, nil
}

// Get returns a subscription by id.
func (s *Service) Get(ctx context.Context, id int64) (model.Subscription, error) {
	var sub model.Subscription
	err := s.ledger.Store().Tx(ctx, func(tx *store.Tx) error {
		var err error
		sub, err = tx.GetSubscription(ctx, id)
		return err
	})
	return sub, err
}

// List returns subscriptions ordered by next due date then name.
func (s *Service) List(ctx context.Context, activeOnly bool) ([]model.Subscription, error) {
	var subs []model.Subscription
	err := s.ledger.Store().Tx(ctx, func(tx *store.Tx) error {
		var err error
		subs, err = tx.ListSubscriptions(ctx, activeOnly)
		return err
	})
	return subs, err
}

// SetActive pauses or resumes a subscription.
func (s *Service) SetActive(ctx context.Context, id int64, active bool) error {
	err := s.ledger.Store().Tx(ctx, func(tx *store.Tx) error {
		return tx.SetSubscriptionActive(ctx, id, active, s.now())
	})
	if err != nil {
		return err
	}
	s.log.Info("updated subscription", "subscription", id, "active", active)
	return nil
}

// Projection is one future occurrence of a subscription.
type Projection struct {
	SubscriptionID  int64
	Name            string
	DueDate         time.Time
	Amount          decimal.Decimal
	DebitAccountID  int64
	CreditAccountID int64
	Memo            string
}

// Project lists every occurrence of the active subscriptions within
// [start, end], ordered by due date then name. Stored schedules are not
// changed.
func (s *Service) Project(ctx context.Context, start, end time.Time) ([]Projection, error) {
	if model.Day(end).Before(model.Day(start)) {
		return nil, fmt.Errorf("projecting subscriptions: %w", model.ErrInvalidPeriod)
	}
	subs, err := s.List(ctx, true)
	if err != nil {
		return nil, err
	}

	var out []Projection
	for _, sub := range subs {
		dates, err := Occurrences(sub, start, end)
		if err != nil {
			return nil, fmt.Errorf("projecting subscription %d: %w", sub.ID, err)
		}
		for _, d := range dates {
			out = append(out, Projection{
				SubscriptionID:  sub.ID,
				Name:            sub.Name,
				DueDate:         d,
				Amount:          sub.Amount,
				DebitAccountID:  sub.DebitAccountID,
				CreditAccountID: sub.CreditAccountID,
				Memo:            sub.Memo,
			})
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].DueDate.Equal(out[j].DueDate) {
			return out[i].DueDate.Before(out[j].DueDate)
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}

// Occurrence is one processed due date.
type Occurrence struct {
	SubscriptionID int64
	Name           string
	DueDate        time.Time
	Amount         decimal.Decimal
	EntryID        int64 // 0 = not posted
}

// ProcessDue walks every active subscription due on or before asOf through
// each missed occurrence, advancing its next due date past asOf. When post is
// set, subscriptions marked auto-post get one balanced entry per occurrence.
// Everything happens in one transaction.
func (s *Service) ProcessDue(ctx context.Context, asOf time.Time, post bool) ([]Occurrence, error) {
	asOf = model.Day(asOf)
	var out []Occurrence
	err := s.ledger.Store().Tx(ctx, func(tx *store.Tx) error {
		due, err := tx.DueSubscriptions(ctx, asOf)
		if err != nil {
			return err
		}
		for _, sub := range due {
			next := model.Day(sub.NextDueDate)
			for !next.After(asOf) {
				occ := Occurrence{SubscriptionID: sub.ID, Name: sub.Name, DueDate: next, Amount: sub.Amount}
				if post && sub.AutoPost {
					e, err := s.ledger.PostTx(ctx, tx, journal.PostParams{
						Date:        next,
						Description: sub.Name,
						Source:      model.SourceSubscription,
						Lines: []model.Line{
							journal.Debit(sub.DebitAccountID, sub.Amount, sub.Memo),
							journal.Credit(sub.CreditAccountID, sub.Amount, sub.Memo),
						},
					})
					if err != nil {
						return fmt.Errorf("subscription %d due %s: %w", sub.ID, next.Format(model.DateFormat), err)
					}
					occ.EntryID = e.ID
				}
				out = append(out, occ)
				if next, err = Advance(next, sub.Cadence, sub.Interval); err != nil {
					return fmt.Errorf("subscription %d: %w", sub.ID, err)
				}
			}
			lastRun := asOf
			if err := tx.UpdateSubscriptionSchedule(ctx, sub.ID, next, &lastRun, s.now()); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("processing due subscriptions: %w", err)
	}

	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].DueDate.Equal(out[j].DueDate) {
			return out[i].DueDate.Before(out[j].DueDate)
		}
		return out[i].Name < out[j].Name
	})
	s.log.Info("processed due subscriptions", "as_of", asOf.Format(model.DateFormat), "occurrences", len(out))
	return out, nil
}
