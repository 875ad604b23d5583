package consent

import "fmt"

// catalogVersion is stamped onto every record so an exported history
// shows which policy generation a decision was made under.
const catalogVersion = "2025.2"

var defaultConfigs = []Config{
	{Type: TypeEssentialServices, LegalBasis: BasisContract, Required: true, CanWithdraw: false, Category: "core"},
	{Type: TypeAccountAggregation, LegalBasis: BasisContract, Required: false, CanWithdraw: true, Category: "core"},
	{Type: TypeLegalCompliance, LegalBasis: BasisLegalObligation, Required: true, CanWithdraw: false, Category: "core"},
	{Type: TypeAnalyticsTracking, LegalBasis: BasisConsent, Required: false, CanWithdraw: true, ExpiryMonths: 12, Category: "analytics"},
	{Type: TypeFeatureUsageTracking, LegalBasis: BasisConsent, Required: false, CanWithdraw: true, ExpiryMonths: 12, Category: "analytics"},
	{Type: TypePersonalizedInsights, LegalBasis: BasisConsent, Required: false, CanWithdraw: true, ExpiryMonths: 12, Category: "analytics"},
	{Type: TypeMarketingCommunications, LegalBasis: BasisConsent, Required: false, CanWithdraw: true, ExpiryMonths: 24, Category: "marketing"},
	{Type: TypeThirdPartyOffers, LegalBasis: BasisConsent, Required: false, CanWithdraw: true, ExpiryMonths: 6, Category: "marketing"},
	{Type: TypeCrashDiagnostics, LegalBasis: BasisLegitimateInterest, Required: false, CanWithdraw: true, Category: "diagnostics"},
}

var defaultBundles = []Bundle{
	{
		Name:        "Core Services",
		Description: "Processing required to operate your account and meet legal obligations.",
		Types:       []Type{TypeEssentialServices, TypeAccountAggregation, TypeLegalCompliance},
	},
	{
		Name:        "Analytics & Insights",
		Description: "Usage analytics and personalized financial insights.",
		Types:       []Type{TypeAnalyticsTracking, TypeFeatureUsageTracking, TypePersonalizedInsights},
	},
	{
		Name:        "Marketing",
		Description: "Product news and partner offers.",
		Types:       []Type{TypeMarketingCommunications, TypeThirdPartyOffers},
	},
	{
		Name:        "Diagnostics",
		Description: "Crash and stability reporting.",
		Types:       []Type{TypeCrashDiagnostics},
	},
}

// Catalog is the single source of truth for consent policy constants.
// Every other component looks configurations up here instead of
// hand-coding them.
type Catalog struct {
	version string
	configs map[Type]Config
	bundles []Bundle
}

// NewCatalog builds and validates the static catalog. It fails when a
// known type lacks a configuration or a configuration breaks the
// required/withdrawable rules, so a bad catalog is caught at startup
// rather than at first use.
func NewCatalog() (*Catalog, error) {
	configs := make(map[Type]Config, len(defaultConfigs))
	for _, cfg := range defaultConfigs {
		if _, dup := configs[cfg.Type]; dup {
			return nil, fmt.Errorf("duplicate consent configuration for %s", cfg.Type)
		}
		if cfg.Required && cfg.CanWithdraw {
			return nil, fmt.Errorf("consent %s is required but marked withdrawable", cfg.Type)
		}
		if cfg.Required && cfg.ExpiryMonths > 0 {
			return nil, fmt.Errorf("consent %s is required but has an expiry", cfg.Type)
		}
		if cfg.ExpiryMonths < 0 {
			return nil, fmt.Errorf("consent %s has a negative expiry", cfg.Type)
		}
		configs[cfg.Type] = cfg
	}
	for _, t := range AllTypes() {
		if _, ok := configs[t]; !ok {
			return nil, fmt.Errorf("consent type %s has no configuration", t)
		}
	}
	for _, bundle := range defaultBundles {
		for _, t := range bundle.Types {
			if _, ok := configs[t]; !ok {
				return nil, fmt.Errorf("bundle %q references unknown type %s", bundle.Name, t)
			}
		}
	}
	return &Catalog{version: catalogVersion, configs: configs, bundles: defaultBundles}, nil
}

func (c *Catalog) Version() string {
	return c.version
}

func (c *Catalog) Config(t Type) (Config, bool) {
	cfg, ok := c.configs[t]
	return cfg, ok
}

func (c *Catalog) Known(t Type) bool {
	_, ok := c.configs[t]
	return ok
}

// Configurations returns every configuration in catalog order.
func (c *Catalog) Configurations() []Config {
	out := make([]Config, 0, len(c.configs))
	for _, t := range AllTypes() {
		out = append(out, c.configs[t])
	}
	return out
}

func (c *Catalog) Bundles() []Bundle {
	out := make([]Bundle, len(c.bundles))
	copy(out, c.bundles)
	return out
}
