package extraction

import (
	"google.golang.org/genai"

	"github.com/networth-labs/tracker/internal/domain"
)

// ResponseSchema returns the structured-output schema sent with every
// extraction request. It mirrors the contract Decode enforces; keeping the
// two aligned means the model rarely produces something Decode rejects.
func ResponseSchema() *genai.Schema {
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"account_summary": accountSummarySchema(),
			"transactions": {
				Type:        genai.TypeArray,
				Description: "Every transaction line on the statement, in statement order",
				Items:       transactionSchema(),
			},
			"rewards_summary": rewardsSummarySchema(),
			"notes": {
				Type:        genai.TypeString,
				Description: "Anything noteworthy or ambiguous about this document",
			},
			"parsing_confidence": {
				Type:        genai.TypeNumber,
				Description: "Overall extraction confidence between 0 and 1, at most two decimal places",
			},
		},
		Required: []string{"account_summary"},
	}
}

func accountSummarySchema() *genai.Schema {
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"account_holder_name":   str("Name of the account holder as printed"),
			"account_number_masked": str("Masked account or card number, e.g. ****5678"),
			"institution_name":      str("Bank, card issuer or lender name"),
			"account_type": {
				Type:        genai.TypeString,
				Description: "Type of the account this statement describes",
				Enum:        domain.AccountTypeValues(),
			},
			"currency":                currency(),
			"statement_period":        statementPeriodSchema(),
			"opening_balance":         money("Balance at the start of the statement period"),
			"closing_balance":         money("Balance at the end of the statement period"),
			"total_credits":           money("Sum of all credits in the period"),
			"total_debits":            money("Sum of all debits in the period"),
			"credit_card_summary":     creditCardSummarySchema(),
			"deposit_account_summary": depositAccountSummarySchema(),
		},
		Required: []string{"account_type"},
	}
}

func statementPeriodSchema() *genai.Schema {
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"start_date":           date("First day covered by the statement"),
			"end_date":             date("Last day covered by the statement"),
			"statement_issue_date": date("Date the statement was generated"),
		},
	}
}

func transactionSchema() *genai.Schema {
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"transaction_id":   str("Institution-assigned transaction identifier if printed"),
			"posting_date":     date("Date the transaction posted to the account"),
			"transaction_date": date("Date the transaction occurred"),
			"description":      str("Transaction description as printed"),
			"transaction_type": {
				Type:        genai.TypeString,
				Description: "Classification of this line item",
				Enum:        domain.TransactionTypeValues(),
			},
			"amount":                    money("Transaction amount"),
			"currency":                  currency(),
			"balance_after_transaction": money("Running balance after this transaction, if shown"),
			"original_amount":           money("Amount in the original currency for FX transactions"),
			"original_currency": {
				Type:        genai.TypeString,
				Description: "Uppercase 3-letter code of the original currency for FX transactions",
			},
			"category": str("Spending category if the statement prints one"),
			"merchant": merchantSchema(),
			"metadata": {
				Type:        genai.TypeObject,
				Description: "Institution-specific extras that fit no other field",
			},
		},
		Required: []string{"description", "transaction_type", "amount"},
	}
}

func merchantSchema() *genai.Schema {
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"name":              str("Merchant name"),
			"category":          str("Merchant category if printed"),
			"city":              str("Merchant city"),
			"country":           str("Merchant country"),
			"raw_merchant_line": str("The unparsed merchant line as printed"),
		},
	}
}

func rewardsSummarySchema() *genai.Schema {
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"points_earned_in_period":     integer("Points earned during the period"),
			"points_redeemed_in_period":   integer("Points redeemed during the period"),
			"points_balance_end":          integer("Points balance at period end"),
			"cashback_earned_in_period":   money("Cashback earned during the period"),
			"cashback_redeemed_in_period": money("Cashback redeemed during the period"),
		},
	}
}

func creditCardSummarySchema() *genai.Schema {
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"previous_balance":     money("Balance carried from the previous statement"),
			"payments_and_credits": money("Total payments and credits in the period"),
			"purchases":            money("Total purchases in the period"),
			"cash_advances":        money("Total cash advances in the period"),
			"interest_charged":     money("Interest charged in the period"),
			"fees_charged":         money("Fees charged in the period"),
			"statement_balance":    money("New statement balance"),
			"credit_limit":         money("Total credit limit"),
			"available_credit":     money("Available credit at statement date"),
			"minimum_payment_due":  money("Minimum payment due"),
			"payment_due_date":     date("Payment due date"),
		},
	}
}

func depositAccountSummarySchema() *genai.Schema {
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"average_daily_balance": money("Average daily balance in the period"),
			"interest_earned":       money("Interest earned in the period"),
			"overdraft_fees":        money("Overdraft fees charged in the period"),
			"atm_withdrawals_count": integer("Number of ATM withdrawals in the period"),
			"other_fees":            money("Other fees charged in the period"),
		},
	}
}

func str(desc string) *genai.Schema {
	return &genai.Schema{Type: genai.TypeString, Description: desc}
}

func money(desc string) *genai.Schema {
	return &genai.Schema{
		Type:        genai.TypeNumber,
		Description: desc + ". Plain decimal, no currency symbols or thousands separators",
	}
}

func date(desc string) *genai.Schema {
	return &genai.Schema{
		Type:        genai.TypeString,
		Description: desc + ", in YYYY-MM-DD format",
	}
}

func integer(desc string) *genai.Schema {
	return &genai.Schema{Type: genai.TypeInteger, Description: desc}
}

func currency() *genai.Schema {
	return &genai.Schema{
		Type:        genai.TypeString,
		Description: "Uppercase 3-letter currency code, e.g. USD",
	}
}
