// Package accounts manages the chart-of-accounts hierarchy.
package accounts

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/cleared-dev/homebook/internal/id"
	"github.com/cleared-dev/homebook/internal/model"
	"github.com/cleared-dev/homebook/internal/store"
)

// Service owns the account tree stored in the book.
type Service struct {
	store *store.Store
	base  string
	log   *slog.Logger
}

// NewService creates a Service for a book kept in baseCurrency, which accounts
// created without a currency take. Empty means model.DefaultCurrency; a nil
// logger means slog.Default().
func NewService(st *store.Store, baseCurrency string, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	base := strings.ToUpper(strings.TrimSpace(baseCurrency))
	if base == "" {
		base = model.DefaultCurrency
	}
	return &Service{store: st, base: base, log: logger}
}

// BaseCurrency returns the currency new accounts default to.
func (s *Service) BaseCurrency() string {
	return s.base
}

// currency validates code, defaulting an empty one to the book's base currency.
func (s *Service) currency(code string) (string, error) {
	if strings.TrimSpace(code) == "" {
		return s.base, nil
	}
	return model.NormalizeCurrency(code)
}

// Seed inserts any DefaultChart account that is not in the book yet and
// returns how many were added. Running it twice adds nothing.
func (s *Service) Seed(ctx context.Context) (int, error) {
	var added int
	err := s.store.Tx(ctx, func(tx *store.Tx) error {
		for _, a := range DefaultChart(s.base) {
			_, err := tx.GetAccount(ctx, a.ID)
			if err == nil {
				continue
			}
			if !errors.Is(err, model.ErrAccountNotFound) {
				return err
			}
			if err := tx.InsertAccount(ctx, a); err != nil {
				return err
			}
			added++
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("seeding chart of accounts: %w", err)
	}
	if added > 0 {
		s.log.Info("seeded chart of accounts", "added", added)
	}
	return added, nil
}

// CreateParams describes a new user account.
type CreateParams struct {
	Name     string
	Type     model.AccountType
	ParentID int64
	Currency string // empty = the book's base currency
	Inactive bool
}

// Create adds a posting account under ParentID and returns its id. A parent
// that could be posted to becomes an aggregate in the same transaction.
func (s *Service) Create(ctx context.Context, p CreateParams) (int64, error) {
	name := strings.TrimSpace(p.Name)
	if name == "" {
		return 0, fmt.Errorf("account name is required")
	}
	currency, err := s.currency(p.Currency)
	if err != nil {
		return 0, err
	}

	var newID int64
	err = s.store.Tx(ctx, func(tx *store.Tx) error {
		parent, err := tx.GetAccount(ctx, p.ParentID)
		if errors.Is(err, model.ErrAccountNotFound) {
			return fmt.Errorf("%w: parent %d does not exist", model.ErrInvalidParent, p.ParentID)
		}
		if err != nil {
			return err
		}
		if parent.Type != p.Type {
			return fmt.Errorf("%w: parent %d is %s, not %s", model.ErrInvalidParent, parent.ID, parent.Type, p.Type)
		}

		lo, hi := id.ChildRange(parent.ID)
		maxExisting, err := tx.MaxAccountIDInRange(ctx, lo, hi)
		if err != nil {
			return err
		}
		newID, err = id.NextChildID(parent.ID, maxExisting)
		if errors.Is(err, id.ErrRangeExhausted) {
			return fmt.Errorf("%w: %q already has %d child accounts", model.ErrCapacityExceeded, parent.Name, id.MaxChildren)
		}
		if err != nil {
			return err
		}

		if parent.AllowPosting {
			parent.AllowPosting = false
			if err := tx.UpdateAccount(ctx, parent); err != nil {
				return err
			}
			s.log.Info("converted account to aggregate", "account", parent.ID, "name", parent.Name)
		}

		return tx.InsertAccount(ctx, model.Account{
			ID:           newID,
			Name:         name,
			Type:         parent.Type,
			ParentID:     parent.ID,
			Level:        parent.Level + 1,
			AllowPosting: true,
			IsActive:     !p.Inactive,
			Currency:     currency,
		})
	})
	if err != nil {
		return 0, fmt.Errorf("creating account %q: %w", name, err)
	}
	s.log.Info("created account", "account", newID, "name", name, "parent", p.ParentID)
	return newID, nil
}

// Rename changes a user account's display name.
func (s *Service) Rename(ctx context.Context, accountID int64, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("account name is required")
	}
	return s.mutate(ctx, accountID, "renaming", func(a *model.Account) error {
		a.Name = name
		return nil
	})
}

// Deactivate hides a user account from pickers. Its history is untouched.
func (s *Service) Deactivate(ctx context.Context, accountID int64) error {
	return s.mutate(ctx, accountID, "deactivating", func(a *model.Account) error {
		a.IsActive = false
		return nil
	})
}

// UpdateCurrency changes the display currency of a user account.
func (s *Service) UpdateCurrency(ctx context.Context, accountID int64, currency string) error {
	code, err := s.currency(currency)
	if err != nil {
		return err
	}
	return s.mutate(ctx, accountID, "updating currency of", func(a *model.Account) error {
		a.Currency = code
		return nil
	})
}

func (s *Service) mutate(ctx context.Context, accountID int64, verb string, fn func(*model.Account) error) error {
	err := s.store.Tx(ctx, func(tx *store.Tx) error {
		a, err := tx.GetAccount(ctx, accountID)
		if err != nil {
			return err
		}
		if a.IsSystem {
			return fmt.Errorf("%w: %q", model.ErrSystemAccountImmutable, a.Name)
		}
		if err := fn(&a); err != nil {
			return err
		}
		return tx.UpdateAccount(ctx, a)
	})
	if err != nil {
		return fmt.Errorf("%s account %d: %w", verb, accountID, err)
	}
	return nil
}

// Delete hard-deletes a user account that nothing references.
func (s *Service) Delete(ctx context.Context, accountID int64) error {
	err := s.store.Tx(ctx, func(tx *store.Tx) error {
		a, err := tx.GetAccount(ctx, accountID)
		if err != nil {
			return err
		}
		if a.IsSystem {
			return fmt.Errorf("%w: %q", model.ErrSystemAccountImmutable, a.Name)
		}

		children, err := tx.CountChildren(ctx, accountID)
		if err != nil {
			return err
		}
		if children > 0 {
			return fmt.Errorf("%w: %q has %d", model.ErrHasChildren, a.Name, children)
		}

		lines, err := tx.CountLinesForAccount(ctx, accountID)
		if err != nil {
			return err
		}
		if lines > 0 {
			return fmt.Errorf("%w: %q is used by %d lines", model.ErrHasPostedLines, a.Name, lines)
		}

		asset, linked, err := tx.FirstAssetLinkedTo(ctx, accountID)
		if err != nil {
			return err
		}
		if linked {
			return fmt.Errorf("%w: %q backs asset %q", model.ErrLinkedToAsset, a.Name, asset.Name)
		}

		return tx.DeleteAccount(ctx, accountID)
	})
	if err != nil {
		return fmt.Errorf("deleting account %d: %w", accountID, err)
	}
	s.log.Info("deleted account", "account", accountID)
	return nil
}

// Get returns an account by id.
func (s *Service) Get(ctx context.Context, accountID int64) (model.Account, error) {
	var a model.Account
	err := s.store.Tx(ctx, func(tx *store.Tx) error {
		var err error
		a, err = tx.GetAccount(ctx, accountID)
		return err
	})
	return a, err
}

// List returns the whole chart ordered by id.
func (s *Service) List(ctx context.Context) ([]model.Account, error) {
	var accounts []model.Account
	err := s.store.Tx(ctx, func(tx *store.Tx) error {
		var err error
		accounts, err = tx.ListAccounts(ctx)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("listing accounts: %w", err)
	}
	return accounts, nil
}

// ByName returns the first account with the given name, searching in id order.
func (s *Service) ByName(ctx context.Context, name string) (model.Account, bool, error) {
	accounts, err := s.List(ctx)
	if err != nil {
		return model.Account{}, false, err
	}
	for _, a := range accounts {
		if a.Name == name {
			return a, true, nil
		}
	}
	return model.Account{}, false, nil
}

// ResolveRootAncestor returns the level-1 account above accountID (itself for a root).
func (s *Service) ResolveRootAncestor(ctx context.Context, accountID int64) (model.Account, error) {
	accounts, err := s.List(ctx)
	if err != nil {
		return model.Account{}, err
	}
	tree := NewTree(accounts)
	a, ok := tree.Get(accountID)
	if !ok {
		return model.Account{}, fmt.Errorf("%w: %d", model.ErrAccountNotFound, accountID)
	}
	return tree.Root(a), nil
}

// Classified is a posting account with its root and household group.
type Classified struct {
	model.Account
	RootName string
	Group    Group
}

// ListPostingParams filters ListPosting.
type ListPostingParams struct {
	IncludeInactive bool
	IncludeSystem   bool
}

// ListPosting returns posting accounts with their household group, ordered by
// type then name.
func (s *Service) ListPosting(ctx context.Context, p ListPostingParams) ([]Classified, error) {
	accounts, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	tree := NewTree(accounts)

	var out []Classified
	for _, a := range accounts {
		if !a.AllowPosting || (!a.IsActive && !p.IncludeInactive) || (a.IsSystem && !p.IncludeSystem) {
			continue
		}
		out = append(out, tree.Classify(a))
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Type != out[j].Type {
			return out[i].Type < out[j].Type
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}

// GroupedAccounts is one household group and its accounts.
type GroupedAccounts struct {
	Group    Group
	Accounts []Classified
}

// ListGrouped returns posting accounts bucketed by household group, in Groups
// order. Empty groups are kept so callers can render fixed sections.
func (s *Service) ListGrouped(ctx context.Context, p ListPostingParams) ([]GroupedAccounts, error) {
	accounts, err := s.ListPosting(ctx, p)
	if err != nil {
		return nil, err
	}
	byGroup := make(map[Group][]Classified)
	for _, a := range accounts {
		byGroup[a.Group] = append(byGroup[a.Group], a)
	}
	out := make([]GroupedAccounts, 0, len(Groups))
	for _, g := range Groups {
		out = append(out, GroupedAccounts{Group: g, Accounts: byGroup[g]})
	}
	return out, nil
}
