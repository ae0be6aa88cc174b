package report

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/iho/gobooks/internal/domain"
)

// CashAccount identifies an account treated as cash.
type CashAccount struct {
	AccountID string `json:"account_id"`
	Code      string `json:"code"`
	Name      string `json:"name"`
}

// CashFlow explains the change in cash by activity.
type CashFlow struct {
	Range         Range           `json:"range"`
	CashAccounts  []CashAccount   `json:"cash_accounts"`
	Begin         decimal.Decimal `json:"begin"`
	Operating     Section         `json:"operating"`
	Investing     Section         `json:"investing"`
	Financing     Section         `json:"financing"`
	NetChange     decimal.Decimal `json:"net_change"`
	Transfers     decimal.Decimal `json:"transfers"`
	TransferCount int             `json:"transfer_count"`
	End           decimal.Decimal `json:"end"`
	Difference    decimal.Decimal `json:"difference"`
	Reconciled    bool            `json:"reconciled"`
}

// CashFlowInput carries the data the cash flow statement is built from.
type CashFlowInput struct {
	Range    Range
	Accounts []*domain.Account
	CashIDs  []string
	// Begin and End are net debit balances of the cash accounts.
	Begin decimal.Decimal
	End   decimal.Decimal
	// Lines are all lines of the entries in range touching a cash account.
	Lines []domain.LedgerLine
}

// BuildCashFlow allocates each entry's net cash effect across its non-cash
// lines in proportion to their amounts.
func BuildCashFlow(in CashFlowInput) CashFlow {
	cf := CashFlow{
		Range:        in.Range,
		CashAccounts: []CashAccount{},
		Begin:        in.Begin,
		End:          in.End,
		Operating:    newSection(string(domain.CashFlowOperating), "Operating activities"),
		Investing:    newSection(string(domain.CashFlowInvesting), "Investing activities"),
		Financing:    newSection(string(domain.CashFlowFinancing), "Financing activities"),
		Transfers:    decimal.Zero,
	}

	byID := make(map[string]*domain.Account, len(in.Accounts))
	for _, a := range in.Accounts {
		byID[a.ID] = a
	}
	isCash := make(map[string]bool, len(in.CashIDs))
	for _, id := range in.CashIDs {
		isCash[id] = true
		if a, ok := byID[id]; ok {
			cf.CashAccounts = append(cf.CashAccounts, CashAccount{AccountID: a.ID, Code: a.Code, Name: a.Name})
		}
	}
	sort.Slice(cf.CashAccounts, func(i, j int) bool { return cf.CashAccounts[i].Code < cf.CashAccounts[j].Code })

	// Allocations are accumulated in cents per (activity, account).
	type bucketKey struct {
		activity  domain.CashFlowActivity
		accountID string
	}
	alloc := make(map[bucketKey]decimal.Decimal)

	for _, entry := range groupEntries(in.Lines) {
		var effect int64
		var counter []domain.LedgerLine
		for _, l := range entry {
			if isCash[l.AccountID] {
				effect += domain.Cents(l.Debit) - domain.Cents(l.Credit)
				continue
			}
			counter = append(counter, l)
		}

		if len(counter) == 0 {
			moved := decimal.Zero
			for _, l := range entry {
				moved = moved.Add(l.Debit)
			}
			cf.Transfers = cf.Transfers.Add(moved)
			cf.TransferCount++
			continue
		}

		for i, share := range allocate(effect, counter) {
			l := counter[i]
			k := bucketKey{activity: activityOf(byID[l.AccountID]), accountID: l.AccountID}
			alloc[k] = alloc[k].Add(domain.FromCents(share))
		}
	}

	sections := map[domain.CashFlowActivity]*Section{
		domain.CashFlowOperating: &cf.Operating,
		domain.CashFlowInvesting: &cf.Investing,
		domain.CashFlowFinancing: &cf.Financing,
	}
	keys := make([]bucketKey, 0, len(alloc))
	for k := range alloc {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		return accountCode(byID, keys[i].accountID) < accountCode(byID, keys[j].accountID)
	})
	for _, k := range keys {
		amount := alloc[k]
		if amount.IsZero() {
			continue
		}
		section := sections[k.activity]
		if a, ok := byID[k.accountID]; ok {
			section.add(a, amount)
		} else {
			section.addVirtual(k.accountID, k.accountID, amount)
		}
	}

	cf.NetChange = cf.Operating.Total.Add(cf.Investing.Total).Add(cf.Financing.Total)
	cf.Difference = cf.Begin.Add(cf.NetChange).Sub(cf.End)
	cf.Reconciled = withinCent(cf.Difference)

	return cf
}

// allocate splits effect cents over lines by debit+credit weight. Shares are
// truncated; the remainder goes to the last line so shares sum to effect.
func allocate(effect int64, lines []domain.LedgerLine) []int64 {
	shares := make([]int64, len(lines))
	weights := make([]decimal.Decimal, len(lines))
	total := decimal.Zero
	for i, l := range lines {
		weights[i] = l.Debit.Add(l.Credit)
		total = total.Add(weights[i])
	}

	var allocated int64
	if !total.IsZero() {
		e := decimal.NewFromInt(effect)
		for i, w := range weights {
			shares[i] = e.Mul(w).Div(total).Truncate(0).IntPart()
			allocated += shares[i]
		}
	}
	shares[len(shares)-1] += effect - allocated

	return shares
}

// groupEntries orders lines by date, entry and line number and splits them
// per entry.
func groupEntries(lines []domain.LedgerLine) [][]domain.LedgerLine {
	sorted := append([]domain.LedgerLine(nil), lines...)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if !a.Date.Equal(b.Date) {
			return a.Date.Before(b.Date)
		}
		if a.EntryID != b.EntryID {
			return a.EntryID < b.EntryID
		}
		return a.LineNo < b.LineNo
	})

	var out [][]domain.LedgerLine
	for i, l := range sorted {
		if i == 0 || l.EntryID != sorted[i-1].EntryID {
			out = append(out, nil)
		}
		out[len(out)-1] = append(out[len(out)-1], l)
	}
	return out
}

func activityOf(a *domain.Account) domain.CashFlowActivity {
	if a == nil || a.CashFlowActivity == nil {
		return domain.CashFlowOperating
	}
	switch *a.CashFlowActivity {
	case domain.CashFlowInvesting, domain.CashFlowFinancing:
		return *a.CashFlowActivity
	}
	return domain.CashFlowOperating
}

func accountCode(byID map[string]*domain.Account, id string) string {
	if a, ok := byID[id]; ok {
		return a.Code
	}
	return id
}
