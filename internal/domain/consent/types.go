package consent

// Type identifies a distinct category of data processing the user can
// consent to. The set is fixed at process start by the catalog.
type Type string

const (
	TypeEssentialServices       Type = "essential_services"
	TypeAccountAggregation      Type = "account_aggregation"
	TypeLegalCompliance         Type = "legal_compliance"
	TypeAnalyticsTracking       Type = "analytics_tracking"
	TypeFeatureUsageTracking    Type = "feature_usage_tracking"
	TypePersonalizedInsights    Type = "personalized_insights"
	TypeMarketingCommunications Type = "marketing_communications"
	TypeThirdPartyOffers        Type = "third_party_offers"
	TypeCrashDiagnostics        Type = "crash_diagnostics"
)

func AllTypes() []Type {
	return []Type{
		TypeEssentialServices,
		TypeAccountAggregation,
		TypeLegalCompliance,
		TypeAnalyticsTracking,
		TypeFeatureUsageTracking,
		TypePersonalizedInsights,
		TypeMarketingCommunications,
		TypeThirdPartyOffers,
		TypeCrashDiagnostics,
	}
}

type LegalBasis string

const (
	BasisContract           LegalBasis = "contract"
	BasisLegalObligation    LegalBasis = "legal_obligation"
	BasisConsent            LegalBasis = "consent"
	BasisLegitimateInterest LegalBasis = "legitimate_interest"
)

// Config describes the rules for one consent type. Read-only after
// catalog construction.
type Config struct {
	Type         Type       `json:"type"`
	LegalBasis   LegalBasis `json:"legalBasis"`
	Required     bool       `json:"isRequired"`
	CanWithdraw  bool       `json:"canWithdraw"`
	ExpiryMonths int        `json:"expiryMonths,omitempty"`
	Category     string     `json:"category"`
}

// Bundle groups related consent types for the settings UI.
type Bundle struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Types       []Type `json:"types"`
}
