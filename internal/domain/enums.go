package domain

import "strings"

// AccountType classifies the source account described by a statement.
type AccountType string

const (
	AccountChecking     AccountType = "CHECKING"
	AccountSavings      AccountType = "SAVINGS"
	AccountCurrent      AccountType = "CURRENT"
	AccountMoneyMarket  AccountType = "MONEY_MARKET"
	AccountCreditCard   AccountType = "CREDIT_CARD"
	AccountLoan         AccountType = "LOAN"
	AccountMortgage     AccountType = "MORTGAGE"
	AccountAutoLoan     AccountType = "AUTO_LOAN"
	AccountStudentLoan  AccountType = "STUDENT_LOAN"
	AccountPersonalLoan AccountType = "PERSONAL_LOAN"
)

// ParseAccountType returns the typed account type and whether s is a known value.
func ParseAccountType(s string) (AccountType, bool) {
	at := AccountType(s)
	switch at {
	case AccountChecking, AccountSavings, AccountCurrent, AccountMoneyMarket,
		AccountCreditCard, AccountLoan, AccountMortgage, AccountAutoLoan,
		AccountStudentLoan, AccountPersonalLoan:
		return at, true
	}
	return "", false
}

// IsDeposit reports whether the account holds customer deposits (cash assets).
func (a AccountType) IsDeposit() bool {
	switch a {
	case AccountChecking, AccountSavings, AccountCurrent, AccountMoneyMarket:
		return true
	}
	return false
}

// IsLoan reports whether the account is any kind of loan liability.
func (a AccountType) IsLoan() bool {
	switch a {
	case AccountLoan, AccountMortgage, AccountAutoLoan, AccountStudentLoan, AccountPersonalLoan:
		return true
	}
	return false
}

// DisplayName renders the enum value for humans: MONEY_MARKET -> "Money Market".
func (a AccountType) DisplayName() string {
	words := strings.Split(string(a), "_")
	for i, w := range words {
		if w == "" {
			continue
		}
		words[i] = w[:1] + strings.ToLower(w[1:])
	}
	return strings.Join(words, " ")
}

// AccountTypeValues lists every valid account type, in declaration order.
func AccountTypeValues() []string {
	return []string{
		string(AccountChecking), string(AccountSavings), string(AccountCurrent),
		string(AccountMoneyMarket), string(AccountCreditCard), string(AccountLoan),
		string(AccountMortgage), string(AccountAutoLoan), string(AccountStudentLoan),
		string(AccountPersonalLoan),
	}
}

// TransactionType classifies a single statement line item.
type TransactionType string

const (
	TransactionDebit      TransactionType = "DEBIT"
	TransactionCredit     TransactionType = "CREDIT"
	TransactionFee        TransactionType = "FEE"
	TransactionInterest   TransactionType = "INTEREST"
	TransactionTransfer   TransactionType = "TRANSFER"
	TransactionPayment    TransactionType = "PAYMENT"
	TransactionWithdrawal TransactionType = "WITHDRAWAL"
	TransactionDeposit    TransactionType = "DEPOSIT"
	TransactionPurchase   TransactionType = "PURCHASE"
	TransactionRefund     TransactionType = "REFUND"
	TransactionOther      TransactionType = "OTHER"
)

// ParseTransactionType returns the typed transaction type and whether s is a known value.
func ParseTransactionType(s string) (TransactionType, bool) {
	tt := TransactionType(s)
	switch tt {
	case TransactionDebit, TransactionCredit, TransactionFee, TransactionInterest,
		TransactionTransfer, TransactionPayment, TransactionWithdrawal,
		TransactionDeposit, TransactionPurchase, TransactionRefund, TransactionOther:
		return tt, true
	}
	return "", false
}

// TransactionTypeValues lists every valid transaction type, in declaration order.
func TransactionTypeValues() []string {
	return []string{
		string(TransactionDebit), string(TransactionCredit), string(TransactionFee),
		string(TransactionInterest), string(TransactionTransfer), string(TransactionPayment),
		string(TransactionWithdrawal), string(TransactionDeposit), string(TransactionPurchase),
		string(TransactionRefund), string(TransactionOther),
	}
}

// PositionKind separates what the user owns from what the user owes.
type PositionKind string

const (
	KindAsset     PositionKind = "ASSET"
	KindLiability PositionKind = "LIABILITY"
)

// AssetType is the subtype of an asset position.
type AssetType string

const (
	AssetCash           AssetType = "CASH"
	AssetInvestment     AssetType = "INVESTMENT"
	AssetRealEstate     AssetType = "REAL_ESTATE"
	AssetVehicle        AssetType = "VEHICLE"
	AssetPreciousMetals AssetType = "PRECIOUS_METALS"
	AssetCrypto         AssetType = "CRYPTOCURRENCY"
	AssetOther          AssetType = "OTHER"
)

// ParseAssetType returns the typed asset subtype and whether s is a known value.
func ParseAssetType(s string) (AssetType, bool) {
	at := AssetType(s)
	switch at {
	case AssetCash, AssetInvestment, AssetRealEstate, AssetVehicle,
		AssetPreciousMetals, AssetCrypto, AssetOther:
		return at, true
	}
	return "", false
}

// LiabilityType is the subtype of a liability position.
type LiabilityType string

const (
	LiabilityCreditCard   LiabilityType = "CREDIT_CARD"
	LiabilityMortgage     LiabilityType = "MORTGAGE"
	LiabilityAutoLoan     LiabilityType = "AUTO_LOAN"
	LiabilityStudentLoan  LiabilityType = "STUDENT_LOAN"
	LiabilityMedicalLoan  LiabilityType = "MEDICAL_LOAN"
	LiabilityPersonalLoan LiabilityType = "PERSONAL_LOAN"
	LiabilityLineOfCredit LiabilityType = "LINE_OF_CREDIT"
	LiabilityOther        LiabilityType = "OTHER"
)

// ParseLiabilityType returns the typed liability subtype and whether s is a known value.
func ParseLiabilityType(s string) (LiabilityType, bool) {
	lt := LiabilityType(s)
	switch lt {
	case LiabilityCreditCard, LiabilityMortgage, LiabilityAutoLoan, LiabilityStudentLoan,
		LiabilityMedicalLoan, LiabilityPersonalLoan, LiabilityLineOfCredit, LiabilityOther:
		return lt, true
	}
	return "", false
}

// ValidSubtype reports whether subtype is a known subtype for the kind.
func ValidSubtype(kind PositionKind, subtype string) bool {
	switch kind {
	case KindAsset:
		_, ok := ParseAssetType(subtype)
		return ok
	case KindLiability:
		_, ok := ParseLiabilityType(subtype)
		return ok
	}
	return false
}

// HistorySource records what produced a position history entry.
type HistorySource string

const (
	SourceManual          HistorySource = "MANUAL"
	SourceStatementUpload HistorySource = "STATEMENT_UPLOAD"
	SourceAPISync         HistorySource = "API_SYNC"
)

// UploadType is the user-declared document category of an upload.
type UploadType string

const (
	UploadBankStatement       UploadType = "BANK_STATEMENT"
	UploadCreditCardStatement UploadType = "CREDIT_CARD_STATEMENT"
	UploadInvestmentStatement UploadType = "INVESTMENT_STATEMENT"
	UploadLoanStatement       UploadType = "LOAN_STATEMENT"
	UploadPropertyValuation   UploadType = "PROPERTY_VALUATION"
	UploadOther               UploadType = "OTHER"
)

// ParseUploadType returns the typed upload type and whether s is a known value.
func ParseUploadType(s string) (UploadType, bool) {
	ut := UploadType(s)
	switch ut {
	case UploadBankStatement, UploadCreditCardStatement, UploadInvestmentStatement,
		UploadLoanStatement, UploadPropertyValuation, UploadOther:
		return ut, true
	}
	return "", false
}
