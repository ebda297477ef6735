package domain

import "testing"

func TestParseAccountType(t *testing.T) {
	tests := []struct {
		in     string
		wantOK bool
	}{
		{"CHECKING", true},
		{"MONEY_MARKET", true},
		{"PERSONAL_LOAN", true},
		{"checking", false},
		{"CRYPTO", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ParseAccountType(tt.in)
			if ok != tt.wantOK {
				t.Fatalf("ParseAccountType(%q) ok = %v, want %v", tt.in, ok, tt.wantOK)
			}
			if ok && string(got) != tt.in {
				t.Errorf("ParseAccountType(%q) = %q", tt.in, got)
			}
		})
	}
}

func TestAccountTypeFamilies(t *testing.T) {
	deposits := []AccountType{AccountChecking, AccountSavings, AccountCurrent, AccountMoneyMarket}
	for _, at := range deposits {
		if !at.IsDeposit() {
			t.Errorf("%s.IsDeposit() = false", at)
		}
		if at.IsLoan() {
			t.Errorf("%s.IsLoan() = true", at)
		}
	}

	loans := []AccountType{AccountLoan, AccountMortgage, AccountAutoLoan, AccountStudentLoan, AccountPersonalLoan}
	for _, at := range loans {
		if !at.IsLoan() {
			t.Errorf("%s.IsLoan() = false", at)
		}
		if at.IsDeposit() {
			t.Errorf("%s.IsDeposit() = true", at)
		}
	}

	if AccountCreditCard.IsDeposit() || AccountCreditCard.IsLoan() {
		t.Error("CREDIT_CARD must be neither deposit nor loan")
	}
}

func TestAccountTypeDisplayName(t *testing.T) {
	tests := []struct {
		in   AccountType
		want string
	}{
		{AccountChecking, "Checking"},
		{AccountMoneyMarket, "Money Market"},
		{AccountCreditCard, "Credit Card"},
	}

	for _, tt := range tests {
		if got := tt.in.DisplayName(); got != tt.want {
			t.Errorf("%s.DisplayName() = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestParseTransactionType(t *testing.T) {
	if _, ok := ParseTransactionType("PURCHASE"); !ok {
		t.Error("PURCHASE should be valid")
	}
	if _, ok := ParseTransactionType("TRANSFER_IN"); ok {
		t.Error("TRANSFER_IN should be invalid")
	}
}

func TestParseUploadType(t *testing.T) {
	if _, ok := ParseUploadType("CREDIT_CARD_STATEMENT"); !ok {
		t.Error("CREDIT_CARD_STATEMENT should be valid")
	}
	if _, ok := ParseUploadType("RECEIPT"); ok {
		t.Error("RECEIPT should be invalid")
	}
}
