package model

import (
	"fmt"
	"strings"
)

// AccountType classifies accounts in the chart of accounts.
type AccountType string

const (
	AccountTypeAsset     AccountType = "ASSET"
	AccountTypeLiability AccountType = "LIABILITY"
	AccountTypeEquity    AccountType = "EQUITY"
	AccountTypeIncome    AccountType = "INCOME"
	AccountTypeExpense   AccountType = "EXPENSE"
)

// AccountTypes lists every account type in balance-sheet then income-statement order.
var AccountTypes = []AccountType{
	AccountTypeAsset,
	AccountTypeLiability,
	AccountTypeEquity,
	AccountTypeIncome,
	AccountTypeExpense,
}

// ParseAccountType accepts any letter case.
func ParseAccountType(s string) (AccountType, error) {
	t := AccountType(strings.ToUpper(strings.TrimSpace(s)))
	for _, known := range AccountTypes {
		if t == known {
			return t, nil
		}
	}
	return "", fmt.Errorf("unknown account type %q", s)
}

// DebitNormal reports whether a positive debit-minus-credit balance is the natural
// sign for this type (assets and expenses).
func (t AccountType) DebitNormal() bool {
	return t == AccountTypeAsset || t == AccountTypeExpense
}

// Account is one node of the chart-of-accounts tree.
type Account struct {
	ID           int64
	Name         string
	Type         AccountType
	ParentID     int64 // 0 = level-1 root
	Level        int   // 1 = system root
	AllowPosting bool
	IsSystem     bool
	IsActive     bool
	Currency     string
}

// IsRoot reports whether the account sits at the top of the tree.
func (a Account) IsRoot() bool {
	return a.ParentID == 0
}
