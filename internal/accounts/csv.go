package accounts

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/cleared-dev/homebook/internal/id"
	"github.com/cleared-dev/homebook/internal/model"
	"github.com/cleared-dev/homebook/internal/store"
)

const (
	numFields       = 9
	colID           = 0
	colName         = 1
	colType         = 2
	colParent       = 3
	colLevel        = 4
	colAllowPosting = 5
	colSystem       = 6
	colActive       = 7
	colCurrency     = 8
)

var header = []string{
	"account_id", "account_name", "account_type", "parent_id", "level",
	"allow_posting", "is_system", "is_active", "currency",
}

// ReadAccounts reads a chart CSV with a header row.
func ReadAccounts(r io.Reader) ([]model.Account, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = numFields

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading accounts CSV: %w", err)
	}

	if len(records) == 0 {
		return nil, nil
	}

	var accounts []model.Account
	for i, rec := range records[1:] {
		acct, err := UnmarshalAccount(rec)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
		accounts = append(accounts, acct)
	}
	return accounts, nil
}

// WriteAccounts writes a chart CSV with a header row.
func WriteAccounts(w io.Writer, accounts []model.Account) error {
	cw := csv.NewWriter(w)
	defer cw.Flush()

	if err := cw.Write(header); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}

	for i, acct := range accounts {
		if err := cw.Write(MarshalAccount(acct)); err != nil {
			return fmt.Errorf("writing row %d: %w", i+2, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// MarshalAccount converts an Account to a CSV row.
func MarshalAccount(acct model.Account) []string {
	row := make([]string, numFields)
	row[colID] = strconv.FormatInt(acct.ID, 10)
	row[colName] = acct.Name
	row[colType] = string(acct.Type)
	if acct.ParentID != 0 {
		row[colParent] = strconv.FormatInt(acct.ParentID, 10)
	}
	row[colLevel] = strconv.Itoa(acct.Level)
	row[colAllowPosting] = strconv.FormatBool(acct.AllowPosting)
	row[colSystem] = strconv.FormatBool(acct.IsSystem)
	row[colActive] = strconv.FormatBool(acct.IsActive)
	row[colCurrency] = acct.Currency
	return row
}

// UnmarshalAccount converts a CSV row to an Account.
func UnmarshalAccount(record []string) (model.Account, error) {
	if len(record) != numFields {
		return model.Account{}, fmt.Errorf("expected %d fields, got %d", numFields, len(record))
	}

	id, err := strconv.ParseInt(record[colID], 10, 64)
	if err != nil {
		return model.Account{}, fmt.Errorf("parsing account_id %q: %w", record[colID], err)
	}

	var parentID int64
	if record[colParent] != "" {
		parentID, err = strconv.ParseInt(record[colParent], 10, 64)
		if err != nil {
			return model.Account{}, fmt.Errorf("parsing parent_id %q: %w", record[colParent], err)
		}
	}

	typ, err := model.ParseAccountType(record[colType])
	if err != nil {
		return model.Account{}, err
	}

	level, err := strconv.Atoi(record[colLevel])
	if err != nil {
		return model.Account{}, fmt.Errorf("parsing level %q: %w", record[colLevel], err)
	}

	var flags [3]bool
	for i, col := range []int{colAllowPosting, colSystem, colActive} {
		if flags[i], err = strconv.ParseBool(record[col]); err != nil {
			return model.Account{}, fmt.Errorf("parsing %s %q: %w", header[col], record[col], err)
		}
	}

	currency := record[colCurrency]
	if currency != "" {
		if currency, err = model.NormalizeCurrency(currency); err != nil {
			return model.Account{}, err
		}
	}

	return model.Account{
		ID:           id,
		Name:         record[colName],
		Type:         typ,
		ParentID:     parentID,
		Level:        level,
		AllowPosting: flags[0],
		IsSystem:     flags[1],
		IsActive:     flags[2],
		Currency:     currency,
	}, nil
}

// Export writes the whole chart as CSV.
func (s *Service) Export(ctx context.Context, w io.Writer) error {
	accounts, err := s.List(ctx)
	if err != nil {
		return err
	}
	return WriteAccounts(w, accounts)
}

// Import adds the accounts of a chart CSV that are not in the book yet and
// returns how many were added. Rows must be ordered parents first. A row whose
// parent is missing or of another type fails the whole import, as does a child
// id outside its parent's range. A blank currency means the book's base currency.
func (s *Service) Import(ctx context.Context, r io.Reader) (int, error) {
	rows, err := ReadAccounts(r)
	if err != nil {
		return 0, err
	}

	var added int
	err = s.store.Tx(ctx, func(tx *store.Tx) error {
		for _, a := range rows {
			if _, err := tx.GetAccount(ctx, a.ID); err == nil {
				continue
			} else if !errors.Is(err, model.ErrAccountNotFound) {
				return err
			}
			if a.Currency == "" {
				a.Currency = s.base
			}
			if a.ParentID != 0 {
				if want := id.ParentOf(a.ID); want != a.ParentID {
					return fmt.Errorf("account %d: %w: id belongs under %d, not %d", a.ID, model.ErrInvalidParent, want, a.ParentID)
				}
				parent, err := tx.GetAccount(ctx, a.ParentID)
				if errors.Is(err, model.ErrAccountNotFound) {
					return fmt.Errorf("account %d: %w: parent %d does not exist", a.ID, model.ErrInvalidParent, a.ParentID)
				}
				if err != nil {
					return err
				}
				if parent.Type != a.Type {
					return fmt.Errorf("account %d: %w: parent %d is %s", a.ID, model.ErrInvalidParent, parent.ID, parent.Type)
				}
				if parent.AllowPosting {
					parent.AllowPosting = false
					if err := tx.UpdateAccount(ctx, parent); err != nil {
						return err
					}
				}
			}
			if err := tx.InsertAccount(ctx, a); err != nil {
				return err
			}
			added++
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("importing chart of accounts: %w", err)
	}
	s.log.Info("imported chart of accounts", "added", added, "rows", len(rows))
	return added, nil
}
