package reconcile

import (
	"context"
	"errors"
	"testing"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"

	"github.com/networth-labs/tracker/internal/domain"
	"github.com/networth-labs/tracker/internal/extraction"
	"github.com/networth-labs/tracker/internal/store/memstore"
)

func strp(s string) *string { return &s }

func decp(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

// checkingResult mirrors a minimal extracted checking statement.
func checkingResult(closing string) *extraction.Result {
	return &extraction.Result{
		AccountSummary: extraction.AccountSummary{
			InstitutionName:     strp("Bank Of America"),
			AccountNumberMasked: strp("****5678"),
			AccountType:         domain.AccountChecking,
			Currency:            strp("usd"),
			ClosingBalance:      decp(closing),
		},
		ParsingConfidence: decp("0.92"),
	}
}

func TestEngine_Reconcile_CreatesCheckingPosition(t *testing.T) {
	ctx := context.Background()
	s := memstore.New()
	engine := New(s, s, "USD")

	res, err := engine.Reconcile(ctx, "user-1", checkingResult("3250.75"))
	if err != nil {
		t.Fatalf("Reconcile() error = %v", err)
	}
	if !res.Created || res.Updated {
		t.Errorf("Reconcile() created = %v, updated = %v, want created only", res.Created, res.Updated)
	}
	if res.HistoryCount != 1 {
		t.Errorf("Reconcile() history count = %d, want 1", res.HistoryCount)
	}

	pos := res.Position
	if pos.Kind != domain.KindAsset {
		t.Errorf("position kind = %s, want %s", pos.Kind, domain.KindAsset)
	}
	if pos.Subtype != string(domain.AssetCash) {
		t.Errorf("position subtype = %s, want %s", pos.Subtype, domain.AssetCash)
	}
	if !pos.Value.Equal(decimal.RequireFromString("3250.75")) {
		t.Errorf("position value = %s, want 3250.75", pos.Value)
	}
	if pos.CurrencyCode != "USD" {
		t.Errorf("position currency = %s, want USD (normalized)", pos.CurrencyCode)
	}
	if want := "Bank Of America Checking - ****5678"; pos.Name != want {
		t.Errorf("position name = %q, want %q", pos.Name, want)
	}
	if !pos.IsActive {
		t.Error("position not active after create")
	}

	history, err := s.ListHistory(ctx, pos.ID)
	if err != nil {
		t.Fatalf("ListHistory() error = %v", err)
	}
	if len(history) != 1 {
		t.Fatalf("history length = %d, want 1", len(history))
	}
	if history[0].Source != domain.SourceStatementUpload {
		t.Errorf("history source = %s, want %s", history[0].Source, domain.SourceStatementUpload)
	}
	if !history[0].Value.Equal(decimal.RequireFromString("3250.75")) {
		t.Errorf("history value = %s, want 3250.75", history[0].Value)
	}
}

func TestEngine_Reconcile_IdempotentAudit(t *testing.T) {
	ctx := context.Background()
	s := memstore.New()
	engine := New(s, s, "USD")

	first, err := engine.Reconcile(ctx, "user-1", checkingResult("3250.75"))
	if err != nil {
		t.Fatalf("Reconcile() first call error = %v", err)
	}
	second, err := engine.Reconcile(ctx, "user-1", checkingResult("3250.75"))
	if err != nil {
		t.Fatalf("Reconcile() second call error = %v", err)
	}

	if !first.Created {
		t.Error("first call: created = false, want true")
	}
	if second.Created || second.Updated {
		t.Errorf("second call: created = %v, updated = %v, want neither", second.Created, second.Updated)
	}
	if first.Position.ID != second.Position.ID {
		t.Errorf("second call resolved position %s, want %s", second.Position.ID, first.Position.ID)
	}

	positions, err := s.ListPositions(ctx, "user-1")
	if err != nil {
		t.Fatalf("ListPositions() error = %v", err)
	}
	if len(positions) != 1 {
		t.Errorf("positions = %d, want exactly 1", len(positions))
	}

	// One audit entry per call, changed or not.
	history, err := s.ListHistory(ctx, first.Position.ID)
	if err != nil {
		t.Fatalf("ListHistory() error = %v", err)
	}
	if len(history) != 2 {
		t.Errorf("history length after two calls = %d, want 2", len(history))
	}
}

func TestEngine_Reconcile_ValueChange(t *testing.T) {
	ctx := context.Background()
	s := memstore.New()
	engine := New(s, s, "USD")

	if _, err := engine.Reconcile(ctx, "user-1", checkingResult("1000.00")); err != nil {
		t.Fatalf("Reconcile() first call error = %v", err)
	}
	res, err := engine.Reconcile(ctx, "user-1", checkingResult("1500.00"))
	if err != nil {
		t.Fatalf("Reconcile() second call error = %v", err)
	}

	if res.Created {
		t.Error("second call: created = true, want false")
	}
	if !res.Updated {
		t.Error("second call: updated = false, want true")
	}
	if !res.Position.Value.Equal(decimal.RequireFromString("1500.00")) {
		t.Errorf("position value = %s, want 1500", res.Position.Value)
	}

	stored, err := s.GetPosition(ctx, res.Position.ID)
	if err != nil {
		t.Fatalf("GetPosition() error = %v", err)
	}
	if !stored.Value.Equal(decimal.RequireFromString("1500.00")) {
		t.Errorf("stored value = %s, want 1500", stored.Value)
	}
}

func TestEngine_Reconcile_CreditCard(t *testing.T) {
	ctx := context.Background()
	s := memstore.New()
	engine := New(s, s, "USD")

	res, err := engine.Reconcile(ctx, "user-1", &extraction.Result{
		AccountSummary: extraction.AccountSummary{
			InstitutionName:     strp("Chase"),
			AccountNumberMasked: strp("****1234"),
			AccountType:         domain.AccountCreditCard,
			Currency:            strp("USD"),
			ClosingBalance:      decp("1250.00"),
			CreditCardSummary: &extraction.CreditCardSummary{
				CreditLimit:       decp("5000"),
				MinimumPaymentDue: decp("35"),
				PaymentDueDate:    &civil.Date{Year: 2024, Month: 2, Day: 10},
			},
		},
	})
	if err != nil {
		t.Fatalf("Reconcile() error = %v", err)
	}

	pos := res.Position
	if pos.Kind != domain.KindLiability {
		t.Errorf("position kind = %s, want %s", pos.Kind, domain.KindLiability)
	}
	if pos.Subtype != string(domain.LiabilityCreditCard) {
		t.Errorf("position subtype = %s, want %s", pos.Subtype, domain.LiabilityCreditCard)
	}
	if want := "Chase - ****1234"; pos.Name != want {
		t.Errorf("position name = %q, want %q", pos.Name, want)
	}
	if pos.CreditLimit == nil || !pos.CreditLimit.Equal(decimal.NewFromInt(5000)) {
		t.Errorf("credit limit = %v, want 5000", pos.CreditLimit)
	}
	if pos.MonthlyPayment == nil || !pos.MonthlyPayment.Equal(decimal.NewFromInt(35)) {
		t.Errorf("monthly payment = %v, want 35", pos.MonthlyPayment)
	}
	if pos.PaymentDueDay == nil || *pos.PaymentDueDay != 10 {
		t.Errorf("payment due day = %v, want 10", pos.PaymentDueDay)
	}
}

func TestEngine_Reconcile_LoanSubtypes(t *testing.T) {
	tests := []struct {
		name        string
		institution string
		wantSubtype domain.LiabilityType
	}{
		{"mortgage lender", "Quicken Mortgage Services", domain.LiabilityMortgage},
		{"auto lender", "Toyota Auto Finance", domain.LiabilityAutoLoan},
		{"generic lender", "Generic Lending Co", domain.LiabilityPersonalLoan},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			s := memstore.New()
			engine := New(s, s, "USD")

			res, err := engine.Reconcile(ctx, "user-1", &extraction.Result{
				AccountSummary: extraction.AccountSummary{
					InstitutionName:     strp(tt.institution),
					AccountNumberMasked: strp("****9876"),
					AccountType:         domain.AccountLoan,
					ClosingBalance:      decp("245000.00"),
				},
			})
			if err != nil {
				t.Fatalf("Reconcile() error = %v", err)
			}
			if res.Position.Kind != domain.KindLiability {
				t.Errorf("position kind = %s, want %s", res.Position.Kind, domain.KindLiability)
			}
			if res.Position.Subtype != string(tt.wantSubtype) {
				t.Errorf("position subtype = %s, want %s", res.Position.Subtype, tt.wantSubtype)
			}
		})
	}
}

func TestEngine_Reconcile_UnsupportedAccountType(t *testing.T) {
	ctx := context.Background()
	s := memstore.New()
	engine := New(s, s, "USD")

	_, err := engine.Reconcile(ctx, "user-1", &extraction.Result{
		AccountSummary: extraction.AccountSummary{
			InstitutionName: strp("Fidelity"),
			AccountType:     domain.AccountType("BROKERAGE"),
			ClosingBalance:  decp("10000.00"),
		},
	})
	if !errors.Is(err, ErrUnsupportedAccountType) {
		t.Fatalf("Reconcile() error = %v, want ErrUnsupportedAccountType", err)
	}

	positions, listErr := s.ListPositions(ctx, "user-1")
	if listErr != nil {
		t.Fatalf("ListPositions() error = %v", listErr)
	}
	if len(positions) != 0 {
		t.Errorf("rejected statement left %d positions behind", len(positions))
	}
}

func TestEngine_Reconcile_CurrencyFallback(t *testing.T) {
	ctx := context.Background()
	s := memstore.New()
	engine := New(s, s, "eur")

	res, err := engine.Reconcile(ctx, "user-1", &extraction.Result{
		AccountSummary: extraction.AccountSummary{
			InstitutionName:     strp("N26"),
			AccountNumberMasked: strp("****0001"),
			AccountType:         domain.AccountChecking,
			ClosingBalance:      decp("800.00"),
		},
	})
	if err != nil {
		t.Fatalf("Reconcile() error = %v", err)
	}
	if res.Position.CurrencyCode != "EUR" {
		t.Errorf("position currency = %s, want EUR fallback", res.Position.CurrencyCode)
	}

	currencies, err := s.ListCurrencies(ctx)
	if err != nil {
		t.Fatalf("ListCurrencies() error = %v", err)
	}
	if len(currencies) != 1 || currencies[0].Code != "EUR" {
		t.Errorf("currencies = %+v, want single EUR row", currencies)
	}
	if currencies[0].Name != "EUR" || currencies[0].Symbol != "EUR" {
		t.Errorf("auto-created currency = %+v, want code as name and symbol", currencies[0])
	}
}

func TestEngine_Reconcile_InstitutionFallbacks(t *testing.T) {
	tests := []struct {
		name        string
		accountType domain.AccountType
		wantInst    string
	}{
		{"deposit without institution", domain.AccountSavings, "Unknown Bank"},
		{"card without institution", domain.AccountCreditCard, "Unknown Bank"},
		{"loan without institution", domain.AccountPersonalLoan, "Unknown Lender"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			s := memstore.New()
			engine := New(s, s, "USD")

			res, err := engine.Reconcile(ctx, "user-1", &extraction.Result{
				AccountSummary: extraction.AccountSummary{
					AccountNumberMasked: strp("****7777"),
					AccountType:         tt.accountType,
					ClosingBalance:      decp("100.00"),
				},
			})
			if err != nil {
				t.Fatalf("Reconcile() error = %v", err)
			}
			if res.Position.Institution != tt.wantInst {
				t.Errorf("institution = %q, want %q", res.Position.Institution, tt.wantInst)
			}
		})
	}
}

func TestEngine_Reconcile_NamesWithoutMaskedNumber(t *testing.T) {
	ctx := context.Background()
	s := memstore.New()
	engine := New(s, s, "USD")

	res, err := engine.Reconcile(ctx, "user-1", &extraction.Result{
		AccountSummary: extraction.AccountSummary{
			InstitutionName: strp("Vanguard"),
			AccountType:     domain.AccountMoneyMarket,
			ClosingBalance:  decp("42000.00"),
		},
	})
	if err != nil {
		t.Fatalf("Reconcile() error = %v", err)
	}
	if want := "Vanguard Money Market"; res.Position.Name != want {
		t.Errorf("position name = %q, want %q (no masked suffix)", res.Position.Name, want)
	}
}

func TestEngine_Reconcile_MissingClosingBalanceDefaultsToZero(t *testing.T) {
	ctx := context.Background()
	s := memstore.New()
	engine := New(s, s, "USD")

	res, err := engine.Reconcile(ctx, "user-1", &extraction.Result{
		AccountSummary: extraction.AccountSummary{
			InstitutionName:     strp("Ally"),
			AccountNumberMasked: strp("****3210"),
			AccountType:         domain.AccountSavings,
			StatementPeriod: &extraction.StatementPeriod{
				StartDate: &civil.Date{Year: 2024, Month: 1, Day: 1},
				EndDate:   &civil.Date{Year: 2024, Month: 1, Day: 31},
			},
		},
	})
	if err != nil {
		t.Fatalf("Reconcile() error = %v", err)
	}
	if !res.Position.Value.IsZero() {
		t.Errorf("position value = %s, want 0", res.Position.Value)
	}
}

func TestEngine_Reconcile_DistinctAccountsStayDistinct(t *testing.T) {
	ctx := context.Background()
	s := memstore.New()
	engine := New(s, s, "USD")

	first := checkingResult("100.00")
	second := checkingResult("200.00")
	second.AccountSummary.AccountNumberMasked = strp("****9999")

	if _, err := engine.Reconcile(ctx, "user-1", first); err != nil {
		t.Fatalf("Reconcile() first account error = %v", err)
	}
	if _, err := engine.Reconcile(ctx, "user-1", second); err != nil {
		t.Fatalf("Reconcile() second account error = %v", err)
	}

	positions, err := s.ListPositions(ctx, "user-1")
	if err != nil {
		t.Fatalf("ListPositions() error = %v", err)
	}
	if len(positions) != 2 {
		t.Errorf("positions = %d, want 2 distinct accounts", len(positions))
	}
}
