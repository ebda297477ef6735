package reconcile

import (
	"strings"

	"github.com/networth-labs/tracker/internal/domain"
)

// loanKeywords is matched in order against the lowercased institution and
// display name. The first group with any hit decides the subtype; order
// matters because groups are not mutually exclusive in natural text.
var loanKeywords = []struct {
	subtype  domain.LiabilityType
	keywords []string
}{
	{domain.LiabilityMortgage, []string{"mortgage", "home loan", "housing"}},
	{domain.LiabilityAutoLoan, []string{"auto", "car", "vehicle"}},
	{domain.LiabilityStudentLoan, []string{"student", "education", "tuition"}},
	{domain.LiabilityMedicalLoan, []string{"medical", "health", "hospital"}},
}

// InferLoanType guesses the concrete loan subtype from the lender name and
// the composed display name. Case-insensitive substring matching, deliberate
// heuristic; unmatched text falls through to PERSONAL_LOAN.
func InferLoanType(institution, name string) domain.LiabilityType {
	text := strings.ToLower(institution + " " + name)
	for _, group := range loanKeywords {
		for _, kw := range group.keywords {
			if strings.Contains(text, kw) {
				return group.subtype
			}
		}
	}
	return domain.LiabilityPersonalLoan
}
