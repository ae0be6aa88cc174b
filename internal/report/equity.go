package report

import (
	"github.com/shopspring/decimal"

	"github.com/iho/gobooks/internal/domain"
)

// EquityRow is one equity account's movement over the range.
type EquityRow struct {
	AccountID string          `json:"account_id"`
	Code      string          `json:"code"`
	Name      string          `json:"name"`
	Category  EquityCategory  `json:"category"`
	Opening   decimal.Decimal `json:"opening"`
	Movement  decimal.Decimal `json:"movement"`
	Closing   decimal.Decimal `json:"closing"`
}

// EquityMovement totals the movement of one category.
type EquityMovement struct {
	Category EquityCategory  `json:"category"`
	Amount   decimal.Decimal `json:"amount"`
}

// EquityStatement reconciles opening to closing equity.
type EquityStatement struct {
	Range         Range            `json:"range"`
	Rows          []EquityRow      `json:"rows"`
	Opening       decimal.Decimal  `json:"opening"`
	Movements     []EquityMovement `json:"movements"`
	IncludeProfit bool             `json:"include_profit"`
	Profit        decimal.Decimal  `json:"profit"`
	Closing       decimal.Decimal  `json:"closing"`
}

// BuildEquityStatement categorizes equity movements. profit is added as a
// separate line when includeProfit is set.
func BuildEquityStatement(r Range, balances []AccountBalance, profit decimal.Decimal, includeProfit bool) EquityStatement {
	var classifier EquityClassifier

	es := EquityStatement{
		Range:         r,
		Rows:          []EquityRow{},
		Opening:       decimal.Zero,
		IncludeProfit: includeProfit,
		Profit:        decimal.Zero,
	}

	byCategory := make(map[EquityCategory]decimal.Decimal, len(EquityCategories))
	for _, b := range balances {
		if b.Account.Type != domain.AccountTypeEquity || !b.Account.IsPostable || b.IsZero() {
			continue
		}

		category := classifier.Classify(b.Account)
		opening := typeSigned(b.Account, b.Opening)
		movement := typeSigned(b.Account, b.Mutation)

		es.Rows = append(es.Rows, EquityRow{
			AccountID: b.Account.ID,
			Code:      b.Account.Code,
			Name:      b.Account.Name,
			Category:  category,
			Opening:   opening,
			Movement:  movement,
			Closing:   opening.Add(movement),
		})
		es.Opening = es.Opening.Add(opening)
		byCategory[category] = byCategory[category].Add(movement)
	}

	es.Closing = es.Opening
	for _, c := range EquityCategories {
		amount := byCategory[c]
		es.Movements = append(es.Movements, EquityMovement{Category: c, Amount: amount})
		es.Closing = es.Closing.Add(amount)
	}

	if includeProfit {
		es.Profit = profit
		es.Closing = es.Closing.Add(profit)
	}

	return es
}
