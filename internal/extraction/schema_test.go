package extraction

import (
	"reflect"
	"testing"

	"google.golang.org/genai"

	"github.com/networth-labs/tracker/internal/domain"
)

// The response schema and the decoder enforce the same contract; if the
// enum lists drift apart the model starts producing documents the decoder
// rejects.
func TestResponseSchema_EnumsMatchDomain(t *testing.T) {
	s := ResponseSchema()

	accountType := s.Properties["account_summary"].Properties["account_type"]
	if !reflect.DeepEqual(accountType.Enum, domain.AccountTypeValues()) {
		t.Errorf("account_type enum = %v, want %v", accountType.Enum, domain.AccountTypeValues())
	}

	txType := s.Properties["transactions"].Items.Properties["transaction_type"]
	if !reflect.DeepEqual(txType.Enum, domain.TransactionTypeValues()) {
		t.Errorf("transaction_type enum = %v, want %v", txType.Enum, domain.TransactionTypeValues())
	}
}

func TestResponseSchema_RequiredFields(t *testing.T) {
	s := ResponseSchema()

	if !reflect.DeepEqual(s.Required, []string{"account_summary"}) {
		t.Errorf("root required = %v", s.Required)
	}
	if got := s.Properties["account_summary"].Required; !reflect.DeepEqual(got, []string{"account_type"}) {
		t.Errorf("account_summary required = %v", got)
	}
	want := []string{"description", "transaction_type", "amount"}
	if got := s.Properties["transactions"].Items.Required; !reflect.DeepEqual(got, want) {
		t.Errorf("transaction required = %v, want %v", got, want)
	}
}

// Every field the schema advertises must be one the decoder accepts,
// otherwise the model is invited to emit keys that Decode then rejects as
// unknown.
func TestResponseSchema_FieldNamesMatchDecoder(t *testing.T) {
	assertKeys := func(name string, props map[string]*genai.Schema, want []string) {
		t.Helper()
		if len(props) != len(want) {
			t.Errorf("%s has %d properties, want %d", name, len(props), len(want))
		}
		for _, k := range want {
			if _, ok := props[k]; !ok {
				t.Errorf("%s missing property %q", name, k)
			}
		}
	}

	s := ResponseSchema()
	assertKeys("root", s.Properties, []string{
		"account_summary", "transactions", "rewards_summary", "notes", "parsing_confidence",
	})
	assertKeys("account_summary", s.Properties["account_summary"].Properties, []string{
		"account_holder_name", "account_number_masked", "institution_name",
		"account_type", "currency", "statement_period", "opening_balance",
		"closing_balance", "total_credits", "total_debits",
		"credit_card_summary", "deposit_account_summary",
	})
	assertKeys("transaction", s.Properties["transactions"].Items.Properties, []string{
		"transaction_id", "posting_date", "transaction_date", "description",
		"transaction_type", "amount", "currency", "balance_after_transaction",
		"original_amount", "original_currency", "category", "merchant", "metadata",
	})
	assertKeys("credit_card_summary",
		s.Properties["account_summary"].Properties["credit_card_summary"].Properties, []string{
			"previous_balance", "payments_and_credits", "purchases", "cash_advances",
			"interest_charged", "fees_charged", "statement_balance", "credit_limit",
			"available_credit", "minimum_payment_due", "payment_due_date",
		})
	assertKeys("deposit_account_summary",
		s.Properties["account_summary"].Properties["deposit_account_summary"].Properties, []string{
			"average_daily_balance", "interest_earned", "overdraft_fees",
			"atm_withdrawals_count", "other_fees",
		})
}

// A stored payload must decode back to the identical result, since the
// reconciliation engine may be re-run from archived payloads.
func TestResult_PayloadRoundTrip(t *testing.T) {
	res, err := Decode([]byte(creditCardStatementJSON))
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}

	payload, err := Marshal(res)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}

	again, err := Decode(payload)
	if err != nil {
		t.Fatalf("Decode(round-trip) error = %v", err)
	}

	if again.AccountSummary.AccountType != res.AccountSummary.AccountType {
		t.Errorf("account type changed across round trip")
	}
	if !again.AccountSummary.ClosingBalance.Equal(*res.AccountSummary.ClosingBalance) {
		t.Errorf("closing balance changed: %s -> %s",
			res.AccountSummary.ClosingBalance, again.AccountSummary.ClosingBalance)
	}
	if len(again.Transactions) != len(res.Transactions) {
		t.Fatalf("transactions changed: %d -> %d", len(res.Transactions), len(again.Transactions))
	}
	if !again.Transactions[0].Amount.Equal(res.Transactions[0].Amount) {
		t.Errorf("amount changed across round trip")
	}
	if again.Transactions[0].PostingDate.String() != res.Transactions[0].PostingDate.String() {
		t.Errorf("posting date changed across round trip")
	}
	if !again.ParsingConfidence.Equal(*res.ParsingConfidence) {
		t.Errorf("confidence changed across round trip")
	}
}
