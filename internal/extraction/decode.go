package extraction

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"

	"github.com/networth-labs/tracker/internal/domain"
)

var currencyCodePattern = regexp.MustCompile(`^[A-Z]{3}$`)

// Decode validates raw model JSON against the statement contract and builds
// the typed result. The contract is a closed world: an unknown key at any
// level (except transaction metadata) is a violation. Violations do not
// stop the walk; they are all collected into a single *ValidationError so
// a failed upload names every offending field path at once.
//
// Numbers are decoded with UseNumber so decimal literals keep their exact
// text. A document that is not parseable JSON at all returns an error
// wrapping ErrUnusableResponse instead.
func Decode(data []byte) (*Result, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var raw any
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("Decode: %w: %v", ErrUnusableResponse, err)
	}
	if dec.More() {
		return nil, fmt.Errorf("Decode: %w: trailing data after JSON document", ErrUnusableResponse)
	}

	root, ok := raw.(map[string]any)
	if !ok {
		return nil, &ValidationError{Fields: []FieldError{
			{Path: "", Message: fmt.Sprintf("top-level JSON has type %T, want object", raw)},
		}}
	}

	w := &walker{}
	res := w.result(root)
	if len(w.errs) > 0 {
		return nil, &ValidationError{Fields: w.errs}
	}
	return res, nil
}

// walker accumulates violations while building the typed result.
type walker struct {
	errs []FieldError
}

func (w *walker) addf(path, format string, args ...any) {
	w.errs = append(w.errs, FieldError{Path: path, Message: fmt.Sprintf(format, args...)})
}

func fieldPath(prefix, key string) string {
	if prefix == "" {
		return key
	}
	return prefix + "." + key
}

// present returns the value only when the key exists and is not an
// explicit null. Null is treated as absent, which makes it invalid for
// required fields.
func present(obj map[string]any, key string) (any, bool) {
	v, ok := obj[key]
	if !ok || v == nil {
		return nil, false
	}
	return v, true
}

func (w *walker) result(root map[string]any) *Result {
	res := &Result{Transactions: []Transaction{}}

	if obj, ok := w.reqObject(root, "", "account_summary"); ok {
		res.AccountSummary = w.accountSummary(obj, "account_summary")
	}

	if v, ok := present(root, "transactions"); ok {
		arr, isArr := v.([]any)
		if !isArr {
			w.addf("transactions", "has type %T, want array", v)
		} else {
			res.Transactions = make([]Transaction, 0, len(arr))
			for i, item := range arr {
				path := fmt.Sprintf("transactions[%d]", i)
				obj, isObj := item.(map[string]any)
				if !isObj {
					w.addf(path, "has type %T, want object", item)
					continue
				}
				res.Transactions = append(res.Transactions, w.transaction(obj, path))
			}
		}
	}

	if obj, ok := w.optObject(root, "", "rewards_summary"); ok {
		rs := w.rewardsSummary(obj, "rewards_summary")
		res.RewardsSummary = &rs
	}

	res.Notes = w.optString(root, "", "notes")
	res.ParsingConfidence = w.optConfidence(root, "", "parsing_confidence")

	w.unknown(root, "", "account_summary", "transactions", "rewards_summary",
		"notes", "parsing_confidence")
	return res
}

func (w *walker) accountSummary(obj map[string]any, path string) AccountSummary {
	as := AccountSummary{}

	as.AccountHolderName = w.optString(obj, path, "account_holder_name")
	as.AccountNumberMasked = w.optString(obj, path, "account_number_masked")
	as.InstitutionName = w.optString(obj, path, "institution_name")

	if s := w.reqString(obj, path, "account_type"); s != "" {
		at, ok := domain.ParseAccountType(s)
		if !ok {
			w.addf(fieldPath(path, "account_type"), "unknown account type %q", s)
		} else {
			as.AccountType = at
		}
	}

	as.Currency = w.optCurrency(obj, path, "currency")

	if sp, ok := w.optObject(obj, path, "statement_period"); ok {
		p := w.statementPeriod(sp, fieldPath(path, "statement_period"))
		as.StatementPeriod = &p
	}

	as.OpeningBalance = w.optMoney(obj, path, "opening_balance")
	as.ClosingBalance = w.optMoney(obj, path, "closing_balance")
	as.TotalCredits = w.optMoney(obj, path, "total_credits")
	as.TotalDebits = w.optMoney(obj, path, "total_debits")

	if cc, ok := w.optObject(obj, path, "credit_card_summary"); ok {
		s := w.creditCardSummary(cc, fieldPath(path, "credit_card_summary"))
		as.CreditCardSummary = &s
	}
	if da, ok := w.optObject(obj, path, "deposit_account_summary"); ok {
		s := w.depositAccountSummary(da, fieldPath(path, "deposit_account_summary"))
		as.DepositAccountSummary = &s
	}

	if as.StatementPeriod == nil && as.OpeningBalance == nil && as.ClosingBalance == nil {
		w.addf(path, "at least statement_period or opening/closing balances should be present")
	}

	w.unknown(obj, path, "account_holder_name", "account_number_masked",
		"institution_name", "account_type", "currency", "statement_period",
		"opening_balance", "closing_balance", "total_credits", "total_debits",
		"credit_card_summary", "deposit_account_summary")
	return as
}

func (w *walker) statementPeriod(obj map[string]any, path string) StatementPeriod {
	sp := StatementPeriod{
		StartDate:          w.optDate(obj, path, "start_date"),
		EndDate:            w.optDate(obj, path, "end_date"),
		StatementIssueDate: w.optDate(obj, path, "statement_issue_date"),
	}
	w.unknown(obj, path, "start_date", "end_date", "statement_issue_date")
	return sp
}

func (w *walker) transaction(obj map[string]any, path string) Transaction {
	tx := Transaction{}

	tx.TransactionID = w.optString(obj, path, "transaction_id")
	tx.PostingDate = w.optDate(obj, path, "posting_date")
	tx.TransactionDate = w.optDate(obj, path, "transaction_date")
	tx.Description = w.reqString(obj, path, "description")

	if s := w.reqString(obj, path, "transaction_type"); s != "" {
		tt, ok := domain.ParseTransactionType(s)
		if !ok {
			w.addf(fieldPath(path, "transaction_type"), "unknown transaction type %q", s)
		} else {
			tx.TransactionType = tt
		}
	}

	tx.Amount = w.reqMoney(obj, path, "amount")
	tx.Currency = w.optCurrency(obj, path, "currency")
	tx.BalanceAfterTransaction = w.optMoney(obj, path, "balance_after_transaction")
	tx.OriginalAmount = w.optMoney(obj, path, "original_amount")
	tx.OriginalCurrency = w.optCurrency(obj, path, "original_currency")
	tx.Category = w.optString(obj, path, "category")

	if m, ok := w.optObject(obj, path, "merchant"); ok {
		mi := w.merchantInfo(m, fieldPath(path, "merchant"))
		tx.Merchant = &mi
	}

	if v, ok := present(obj, "metadata"); ok {
		m, isObj := v.(map[string]any)
		if !isObj {
			w.addf(fieldPath(path, "metadata"), "has type %T, want object", v)
		} else {
			// Open map by contract; keys inside are not checked.
			tx.Metadata = m
		}
	}

	w.unknown(obj, path, "transaction_id", "posting_date", "transaction_date",
		"description", "transaction_type", "amount", "currency",
		"balance_after_transaction", "original_amount", "original_currency",
		"category", "merchant", "metadata")
	return tx
}

func (w *walker) merchantInfo(obj map[string]any, path string) MerchantInfo {
	mi := MerchantInfo{
		Name:            w.optString(obj, path, "name"),
		Category:        w.optString(obj, path, "category"),
		City:            w.optString(obj, path, "city"),
		Country:         w.optString(obj, path, "country"),
		RawMerchantLine: w.optString(obj, path, "raw_merchant_line"),
	}
	w.unknown(obj, path, "name", "category", "city", "country", "raw_merchant_line")
	return mi
}

func (w *walker) rewardsSummary(obj map[string]any, path string) RewardsSummary {
	rs := RewardsSummary{
		PointsEarnedInPeriod:     w.optInt(obj, path, "points_earned_in_period"),
		PointsRedeemedInPeriod:   w.optInt(obj, path, "points_redeemed_in_period"),
		PointsBalanceEnd:         w.optInt(obj, path, "points_balance_end"),
		CashbackEarnedInPeriod:   w.optMoney(obj, path, "cashback_earned_in_period"),
		CashbackRedeemedInPeriod: w.optMoney(obj, path, "cashback_redeemed_in_period"),
	}
	w.unknown(obj, path, "points_earned_in_period", "points_redeemed_in_period",
		"points_balance_end", "cashback_earned_in_period", "cashback_redeemed_in_period")
	return rs
}

func (w *walker) creditCardSummary(obj map[string]any, path string) CreditCardSummary {
	cc := CreditCardSummary{
		PreviousBalance:    w.optMoney(obj, path, "previous_balance"),
		PaymentsAndCredits: w.optMoney(obj, path, "payments_and_credits"),
		Purchases:          w.optMoney(obj, path, "purchases"),
		CashAdvances:       w.optMoney(obj, path, "cash_advances"),
		InterestCharged:    w.optMoney(obj, path, "interest_charged"),
		FeesCharged:        w.optMoney(obj, path, "fees_charged"),
		StatementBalance:   w.optMoney(obj, path, "statement_balance"),
		CreditLimit:        w.optMoney(obj, path, "credit_limit"),
		AvailableCredit:    w.optMoney(obj, path, "available_credit"),
		MinimumPaymentDue:  w.optMoney(obj, path, "minimum_payment_due"),
		PaymentDueDate:     w.optDate(obj, path, "payment_due_date"),
	}
	w.unknown(obj, path, "previous_balance", "payments_and_credits", "purchases",
		"cash_advances", "interest_charged", "fees_charged", "statement_balance",
		"credit_limit", "available_credit", "minimum_payment_due", "payment_due_date")
	return cc
}

func (w *walker) depositAccountSummary(obj map[string]any, path string) DepositAccountSummary {
	da := DepositAccountSummary{
		AverageDailyBalance: w.optMoney(obj, path, "average_daily_balance"),
		InterestEarned:      w.optMoney(obj, path, "interest_earned"),
		OverdraftFees:       w.optMoney(obj, path, "overdraft_fees"),
		ATMWithdrawalsCount: w.optInt(obj, path, "atm_withdrawals_count"),
		OtherFees:           w.optMoney(obj, path, "other_fees"),
	}
	w.unknown(obj, path, "average_daily_balance", "interest_earned",
		"overdraft_fees", "atm_withdrawals_count", "other_fees")
	return da
}

func (w *walker) unknown(obj map[string]any, path string, known ...string) {
	for key := range obj {
		found := false
		for _, k := range known {
			if key == k {
				found = true
				break
			}
		}
		if !found {
			w.addf(fieldPath(path, key), "unknown field")
		}
	}
}

func (w *walker) optObject(obj map[string]any, path, key string) (map[string]any, bool) {
	v, ok := present(obj, key)
	if !ok {
		return nil, false
	}
	m, isObj := v.(map[string]any)
	if !isObj {
		w.addf(fieldPath(path, key), "has type %T, want object", v)
		return nil, false
	}
	return m, true
}

func (w *walker) reqObject(obj map[string]any, path, key string) (map[string]any, bool) {
	if _, ok := present(obj, key); !ok {
		w.addf(fieldPath(path, key), "missing required field")
		return nil, false
	}
	return w.optObject(obj, path, key)
}

func (w *walker) optString(obj map[string]any, path, key string) *string {
	v, ok := present(obj, key)
	if !ok {
		return nil
	}
	s, isStr := v.(string)
	if !isStr {
		w.addf(fieldPath(path, key), "has type %T, want string", v)
		return nil
	}
	return &s
}

func (w *walker) reqString(obj map[string]any, path, key string) string {
	v, ok := present(obj, key)
	if !ok {
		w.addf(fieldPath(path, key), "missing required field")
		return ""
	}
	s, isStr := v.(string)
	if !isStr {
		w.addf(fieldPath(path, key), "has type %T, want string", v)
		return ""
	}
	return s
}

// optCurrency uppercases before validating, so "usd" is accepted and
// normalization is idempotent.
func (w *walker) optCurrency(obj map[string]any, path, key string) *string {
	v, ok := present(obj, key)
	if !ok {
		return nil
	}
	s, isStr := v.(string)
	if !isStr {
		w.addf(fieldPath(path, key), "has type %T, want string", v)
		return nil
	}
	code := strings.ToUpper(s)
	if !currencyCodePattern.MatchString(code) {
		w.addf(fieldPath(path, key), "invalid currency code %q", s)
		return nil
	}
	return &code
}

func (w *walker) optDate(obj map[string]any, path, key string) *civil.Date {
	v, ok := present(obj, key)
	if !ok {
		return nil
	}
	s, isStr := v.(string)
	if !isStr {
		w.addf(fieldPath(path, key), "has type %T, want date string", v)
		return nil
	}
	d, err := civil.ParseDate(s)
	if err != nil {
		w.addf(fieldPath(path, key), "invalid date %q, want YYYY-MM-DD", s)
		return nil
	}
	return &d
}

func (w *walker) optInt(obj map[string]any, path, key string) *int {
	v, ok := present(obj, key)
	if !ok {
		return nil
	}
	n, isNum := v.(json.Number)
	if !isNum {
		w.addf(fieldPath(path, key), "has type %T, want integer", v)
		return nil
	}
	i64, err := n.Int64()
	if err != nil {
		w.addf(fieldPath(path, key), "invalid integer %q", n.String())
		return nil
	}
	i := int(i64)
	return &i
}

func (w *walker) optMoney(obj map[string]any, path, key string) *decimal.Decimal {
	v, ok := present(obj, key)
	if !ok {
		return nil
	}
	d, ok := w.decimalValue(v, fieldPath(path, key))
	if !ok {
		return nil
	}
	if err := checkMoney(d); err != nil {
		w.addf(fieldPath(path, key), "%v", err)
		return nil
	}
	return &d
}

func (w *walker) reqMoney(obj map[string]any, path, key string) decimal.Decimal {
	v, ok := present(obj, key)
	if !ok {
		w.addf(fieldPath(path, key), "missing required field")
		return decimal.Decimal{}
	}
	d, ok := w.decimalValue(v, fieldPath(path, key))
	if !ok {
		return decimal.Decimal{}
	}
	if err := checkMoney(d); err != nil {
		w.addf(fieldPath(path, key), "%v", err)
		return decimal.Decimal{}
	}
	return d
}

// optConfidence accepts a decimal in [0, 1] with at most two decimal places.
func (w *walker) optConfidence(obj map[string]any, path, key string) *decimal.Decimal {
	v, ok := present(obj, key)
	if !ok {
		return nil
	}
	d, ok := w.decimalValue(v, fieldPath(path, key))
	if !ok {
		return nil
	}
	if d.IsNegative() || d.GreaterThan(decimal.NewFromInt(1)) {
		w.addf(fieldPath(path, key), "must be between 0 and 1")
		return nil
	}
	if d.Exponent() < -2 {
		w.addf(fieldPath(path, key), "more than 2 decimal places")
		return nil
	}
	return &d
}

// decimalValue accepts JSON numbers and numeric strings. UseNumber keeps
// the literal text, so values like 0.1 reach shopspring exactly.
func (w *walker) decimalValue(v any, path string) (decimal.Decimal, bool) {
	var text string
	switch n := v.(type) {
	case json.Number:
		text = n.String()
	case string:
		text = strings.TrimSpace(n)
	default:
		w.addf(path, "has type %T, want decimal", v)
		return decimal.Decimal{}, false
	}
	d, err := decimal.NewFromString(text)
	if err != nil {
		w.addf(path, "invalid decimal %q", text)
		return decimal.Decimal{}, false
	}
	return d, true
}

func checkMoney(d decimal.Decimal) error {
	if d.Exponent() < -4 {
		return errors.New("more than 4 decimal places")
	}
	if d.NumDigits() > 18 {
		return errors.New("more than 18 digits")
	}
	return nil
}
