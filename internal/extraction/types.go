package extraction

import (
	"encoding/json"
	"fmt"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"

	"github.com/networth-labs/tracker/internal/domain"
)

// Marshal serializes a result to the canonical payload stored on completed
// uploads. Decimals become quoted strings and dates YYYY-MM-DD strings, so
// the output decodes back through Decode without loss.
func Marshal(res *Result) ([]byte, error) {
	payload, err := json.Marshal(res)
	if err != nil {
		return nil, fmt.Errorf("Marshal: %w", err)
	}
	return payload, nil
}

// Result is the complete structured extraction for one statement document.
// Optional fields are pointers and serialize as explicit nulls, so a stored
// payload round-trips through Decode unchanged. Money is decimal (max 18
// digits, 4 decimal places), never a float.
type Result struct {
	AccountSummary AccountSummary  `json:"account_summary"`
	Transactions   []Transaction   `json:"transactions"`
	RewardsSummary *RewardsSummary `json:"rewards_summary"`
	Notes          *string         `json:"notes"`
	// ParsingConfidence is the model's own confidence on the 0-1 scale,
	// two decimal places. Upload records store it multiplied by 100.
	ParsingConfidence *decimal.Decimal `json:"parsing_confidence"`
}

// AccountSummary describes the account the statement belongs to. At least
// the statement period or one of the opening/closing balances must be
// present, otherwise the document is useless for reconciliation.
type AccountSummary struct {
	AccountHolderName     *string                `json:"account_holder_name"`
	AccountNumberMasked   *string                `json:"account_number_masked"`
	InstitutionName       *string                `json:"institution_name"`
	AccountType           domain.AccountType     `json:"account_type"`
	Currency              *string                `json:"currency"`
	StatementPeriod       *StatementPeriod       `json:"statement_period"`
	OpeningBalance        *decimal.Decimal       `json:"opening_balance"`
	ClosingBalance        *decimal.Decimal       `json:"closing_balance"`
	TotalCredits          *decimal.Decimal       `json:"total_credits"`
	TotalDebits           *decimal.Decimal       `json:"total_debits"`
	CreditCardSummary     *CreditCardSummary     `json:"credit_card_summary"`
	DepositAccountSummary *DepositAccountSummary `json:"deposit_account_summary"`
}

// StatementPeriod is the date range the statement covers.
type StatementPeriod struct {
	StartDate          *civil.Date `json:"start_date"`
	EndDate            *civil.Date `json:"end_date"`
	StatementIssueDate *civil.Date `json:"statement_issue_date"`
}

// Transaction is a single line item. Metadata is the one open-world field
// in the contract: institution-specific extras land there instead of
// becoming unknown top-level keys.
type Transaction struct {
	TransactionID           *string                `json:"transaction_id"`
	PostingDate             *civil.Date            `json:"posting_date"`
	TransactionDate         *civil.Date            `json:"transaction_date"`
	Description             string                 `json:"description"`
	TransactionType         domain.TransactionType `json:"transaction_type"`
	Amount                  decimal.Decimal        `json:"amount"`
	Currency                *string                `json:"currency"`
	BalanceAfterTransaction *decimal.Decimal       `json:"balance_after_transaction"`
	OriginalAmount          *decimal.Decimal       `json:"original_amount"`
	OriginalCurrency        *string                `json:"original_currency"`
	Category                *string                `json:"category"`
	Merchant                *MerchantInfo          `json:"merchant"`
	Metadata                map[string]any         `json:"metadata"`
}

// MerchantInfo is the parsed merchant block of a card transaction.
type MerchantInfo struct {
	Name            *string `json:"name"`
	Category        *string `json:"category"`
	City            *string `json:"city"`
	Country         *string `json:"country"`
	RawMerchantLine *string `json:"raw_merchant_line"`
}

// RewardsSummary covers points and cashback programs on card statements.
type RewardsSummary struct {
	PointsEarnedInPeriod     *int             `json:"points_earned_in_period"`
	PointsRedeemedInPeriod   *int             `json:"points_redeemed_in_period"`
	PointsBalanceEnd         *int             `json:"points_balance_end"`
	CashbackEarnedInPeriod   *decimal.Decimal `json:"cashback_earned_in_period"`
	CashbackRedeemedInPeriod *decimal.Decimal `json:"cashback_redeemed_in_period"`
}

// CreditCardSummary holds the card-specific statement block.
type CreditCardSummary struct {
	PreviousBalance    *decimal.Decimal `json:"previous_balance"`
	PaymentsAndCredits *decimal.Decimal `json:"payments_and_credits"`
	Purchases          *decimal.Decimal `json:"purchases"`
	CashAdvances       *decimal.Decimal `json:"cash_advances"`
	InterestCharged    *decimal.Decimal `json:"interest_charged"`
	FeesCharged        *decimal.Decimal `json:"fees_charged"`
	StatementBalance   *decimal.Decimal `json:"statement_balance"`
	CreditLimit        *decimal.Decimal `json:"credit_limit"`
	AvailableCredit    *decimal.Decimal `json:"available_credit"`
	MinimumPaymentDue  *decimal.Decimal `json:"minimum_payment_due"`
	PaymentDueDate     *civil.Date      `json:"payment_due_date"`
}

// DepositAccountSummary holds the checking/savings-specific block.
type DepositAccountSummary struct {
	AverageDailyBalance *decimal.Decimal `json:"average_daily_balance"`
	InterestEarned      *decimal.Decimal `json:"interest_earned"`
	OverdraftFees       *decimal.Decimal `json:"overdraft_fees"`
	ATMWithdrawalsCount *int             `json:"atm_withdrawals_count"`
	OtherFees           *decimal.Decimal `json:"other_fees"`
}
