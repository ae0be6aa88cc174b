package report

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/gobooks/internal/domain"
)

// SubledgerRow is the balance of one (account, partner) pair.
type SubledgerRow struct {
	AccountID   string          `json:"account_id"`
	AccountCode string          `json:"account_code"`
	AccountName string          `json:"account_name"`
	PartnerID   string          `json:"partner_id"`
	PartnerCode string          `json:"partner_code"`
	PartnerName string          `json:"partner_name"`
	Opening     decimal.Decimal `json:"opening"`
	Debit       decimal.Decimal `json:"debit"`
	Credit      decimal.Decimal `json:"credit"`
	Closing     decimal.Decimal `json:"closing"`
}

// Subledger pages partner balances of partner-scoped accounts.
type Subledger struct {
	Range  Range          `json:"range"`
	Rows   []SubledgerRow `json:"rows"`
	Total  int            `json:"total"`
	Limit  int            `json:"limit"`
	Offset int            `json:"offset"`
}

// SubledgerInput carries partner-grouped totals for a subledger listing.
type SubledgerInput struct {
	Range    Range
	Accounts []*domain.Account
	Partners []*domain.BusinessPartner
	Opening  []domain.AccountTotals
	Mutation []domain.AccountTotals
	Limit    int
	Offset   int
}

// BuildSubledger lists (account, partner) balances of accounts requiring a
// partner, ordered by account code then partner code.
func BuildSubledger(in SubledgerInput) Subledger {
	accounts := make(map[string]*domain.Account, len(in.Accounts))
	for _, a := range in.Accounts {
		if a.RequiresBP {
			accounts[a.ID] = a
		}
	}
	partners := make(map[string]*domain.BusinessPartner, len(in.Partners))
	for _, p := range in.Partners {
		partners[p.ID] = p
	}

	type pair struct{ account, partner string }
	type sums struct{ opening, mutation domain.AccountTotals }
	byPair := make(map[pair]*sums)

	collect := func(totals []domain.AccountTotals, opening bool) {
		for _, t := range totals {
			if t.BPID == nil {
				continue
			}
			if _, ok := accounts[t.AccountID]; !ok {
				continue
			}
			k := pair{account: t.AccountID, partner: *t.BPID}
			s, ok := byPair[k]
			if !ok {
				s = &sums{}
				byPair[k] = s
			}
			if opening {
				s.opening = addTotals(s.opening, t)
			} else {
				s.mutation = addTotals(s.mutation, t)
			}
		}
	}
	collect(in.Opening, true)
	collect(in.Mutation, false)

	rows := make([]SubledgerRow, 0, len(byPair))
	for k, s := range byPair {
		a := accounts[k.account]
		opening := s.opening.Signed(a.NormalBalance)
		movement := s.mutation.Signed(a.NormalBalance)
		if domain.IsZeroMoney(opening) && domain.IsZeroMoney(s.mutation.Debit) && domain.IsZeroMoney(s.mutation.Credit) {
			continue
		}

		row := SubledgerRow{
			AccountID:   a.ID,
			AccountCode: a.Code,
			AccountName: a.Name,
			PartnerID:   k.partner,
			Opening:     opening,
			Debit:       s.mutation.Debit,
			Credit:      s.mutation.Credit,
			Closing:     opening.Add(movement),
		}
		if p, ok := partners[k.partner]; ok {
			row.PartnerCode, row.PartnerName = p.Code, p.Name
		}
		rows = append(rows, row)
	}

	sort.Slice(rows, func(i, j int) bool {
		if rows[i].AccountCode != rows[j].AccountCode {
			return rows[i].AccountCode < rows[j].AccountCode
		}
		if rows[i].PartnerCode != rows[j].PartnerCode {
			return rows[i].PartnerCode < rows[j].PartnerCode
		}
		return rows[i].PartnerID < rows[j].PartnerID
	})

	out := Subledger{Range: in.Range, Total: len(rows), Limit: in.Limit, Offset: in.Offset}
	start := min(in.Offset, len(rows))
	end := len(rows)
	if in.Limit > 0 {
		end = min(start+in.Limit, len(rows))
	}
	out.Rows = rows[start:end]

	return out
}

// LedgerRow is one posted line with the running balance after it.
type LedgerRow struct {
	Date      time.Time        `json:"date"`
	BPID      *string          `json:"bp_id,omitempty"`
	EntryID   string           `json:"entry_id"`
	EntryMemo string           `json:"entry_memo"`
	EntryType domain.EntryType `json:"entry_type,omitempty"`
	Memo      string           `json:"memo"`
	LineNo    int              `json:"line_no"`
	Debit     decimal.Decimal  `json:"debit"`
	Credit    decimal.Decimal  `json:"credit"`
	Balance   decimal.Decimal  `json:"balance"`
}

// Ledger is the running-balance detail of one account, optionally scoped to
// one partner.
type Ledger struct {
	Range       Range           `json:"range"`
	AccountID   string          `json:"account_id"`
	AccountCode string          `json:"account_code"`
	AccountName string          `json:"account_name"`
	PartnerID   string          `json:"partner_id,omitempty"`
	Normal      domain.Side     `json:"normal_balance"`
	Opening     decimal.Decimal `json:"opening"`
	Rows        []LedgerRow     `json:"rows"`
	TotalDebit  decimal.Decimal `json:"total_debit"`
	TotalCredit decimal.Decimal `json:"total_credit"`
	Closing     decimal.Decimal `json:"closing"`
}

// BuildLedger runs the balance from opening through lines in posting order.
func BuildLedger(r Range, account *domain.Account, partnerID string, opening domain.AccountTotals, lines []domain.LedgerLine) Ledger {
	l := Ledger{
		Range:       r,
		AccountID:   account.ID,
		AccountCode: account.Code,
		AccountName: account.Name,
		PartnerID:   partnerID,
		Normal:      account.NormalBalance,
		Opening:     opening.Signed(account.NormalBalance),
		Rows:        []LedgerRow{},
		TotalDebit:  decimal.Zero,
		TotalCredit: decimal.Zero,
	}

	balance := l.Opening
	for _, entry := range groupEntries(lines) {
		for _, line := range entry {
			balance = balance.Add(domain.SignedBalance(account.NormalBalance, line.Debit, line.Credit))
			l.TotalDebit = l.TotalDebit.Add(line.Debit)
			l.TotalCredit = l.TotalCredit.Add(line.Credit)
			l.Rows = append(l.Rows, LedgerRow{
				Date:      line.Date,
				BPID:      line.BPID,
				EntryID:   line.EntryID,
				EntryMemo: line.EntryMemo,
				EntryType: line.EntryType,
				Memo:      line.Memo,
				LineNo:    line.LineNo,
				Debit:     line.Debit,
				Credit:    line.Credit,
				Balance:   balance,
			})
		}
	}
	l.Closing = balance

	return l
}
