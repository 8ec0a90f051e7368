package accounts

import (
	"fmt"
	"strings"

	"github.com/cleared-dev/homebook/internal/model"
)

// OpeningEquityID is the system leaf that absorbs the opening-balance gap.
const OpeningEquityID int64 = 300001

// OpeningEquityName is the name the opening-balance initializer looks up first.
const OpeningEquityName = "기초순자산(Opening Equity)"

// DefaultChart returns the seed chart of a household book kept in
// baseCurrency: system roots that users hang their own posting accounts
// under, plus the opening-equity leaf.
func DefaultChart(baseCurrency string) []model.Account {
	root := func(id int64, name string, typ model.AccountType) model.Account {
		return model.Account{
			ID: id, Name: name, Type: typ, Level: 1,
			IsSystem: true, IsActive: true, Currency: baseCurrency,
		}
	}
	return []model.Account{
		root(1100, "현금", model.AccountTypeAsset),
		root(1200, "보통예금", model.AccountTypeAsset),
		root(1300, "정기예금", model.AccountTypeAsset),
		root(1400, "증권/투자자산", model.AccountTypeAsset),
		root(1500, "부동산", model.AccountTypeAsset),
		root(1600, "전세보증금(임차)", model.AccountTypeAsset),
		root(1700, "차량/운송수단", model.AccountTypeAsset),
		root(1900, "기타자산", model.AccountTypeAsset),
		root(2100, "카드미지급금", model.AccountTypeLiability),
		root(2200, "주택담보대출", model.AccountTypeLiability),
		root(2300, "전세보증금(임대)", model.AccountTypeLiability),
		root(2400, "기타대출", model.AccountTypeLiability),
		root(3000, "자본/순자산", model.AccountTypeEquity),
		{
			ID: OpeningEquityID, Name: OpeningEquityName, Type: model.AccountTypeEquity, ParentID: 3000,
			Level: 2, AllowPosting: true, IsSystem: true, IsActive: true, Currency: baseCurrency,
		},
		root(4100, "근로/급여수익", model.AccountTypeIncome),
		root(4200, "금융수익", model.AccountTypeIncome),
		root(4900, "기타수익", model.AccountTypeIncome),
		root(5100, "식비", model.AccountTypeExpense),
		root(5200, "주거/관리비", model.AccountTypeExpense),
		root(5300, "교통비", model.AccountTypeExpense),
		root(5400, "이자비용", model.AccountTypeExpense),
		root(5900, "기타비용", model.AccountTypeExpense),
	}
}

// Group is a household display group of posting accounts.
type Group string

const (
	GroupCash      Group = "Cash"
	GroupBank      Group = "Bank"
	GroupCard      Group = "Credit Card"
	GroupInvest    Group = "Investment"
	GroupHome      Group = "Home"
	GroupVehicle   Group = "Vehicle"
	GroupHousehold Group = "Household Expenses"
	GroupIncome    Group = "Income"
	GroupOther     Group = "Other"
)

// Groups lists every group in display order.
var Groups = []Group{
	GroupCash, GroupBank, GroupCard, GroupInvest, GroupHome, GroupVehicle, GroupHousehold, GroupIncome, GroupOther,
}

var groupLabels = map[Group]string{
	GroupCash:      "현금 (Cash)",
	GroupBank:      "은행 (Bank)",
	GroupCard:      "신용카드 (Credit Card)",
	GroupInvest:    "투자 (Investment)",
	GroupHome:      "주거/주택 (Home)",
	GroupVehicle:   "차량 (Vehicle)",
	GroupHousehold: "생활비 (Household Expenses)",
	GroupIncome:    "수입 (Income)",
	GroupOther:     "기타 (Other)",
}

// Label returns the bilingual display label.
func (g Group) Label() string {
	if l, ok := groupLabels[g]; ok {
		return l
	}
	return string(g)
}

// ParseGroup matches a group by name in any letter case.
func ParseGroup(s string) (Group, error) {
	s = strings.TrimSpace(s)
	for _, g := range Groups {
		if strings.EqualFold(string(g), s) {
			return g, nil
		}
	}
	return "", fmt.Errorf("unknown account group %q", s)
}

var rootGroups = map[string]Group{
	"현금":        GroupCash,
	"보통예금":      GroupBank,
	"정기예금":      GroupBank,
	"증권/투자자산":   GroupInvest,
	"부동산":       GroupHome,
	"전세보증금(임차)": GroupHome,
	"차량/운송수단":   GroupVehicle,
	"카드미지급금":    GroupCard,
	"주택담보대출":    GroupHome,
	"전세보증금(임대)": GroupHome,
}

// GroupFor classifies an account by its type and the name of its root.
func GroupFor(typ model.AccountType, rootName string) Group {
	switch typ {
	case model.AccountTypeIncome:
		return GroupIncome
	case model.AccountTypeExpense:
		return GroupHousehold
	}
	if g, ok := rootGroups[rootName]; ok {
		return g
	}
	return GroupOther
}
