package retention

import "time"

// Category identifies a class of purgeable user data.
type Category string

const (
	CategoryTransactions    Category = "transactions"
	CategoryAuditLogs       Category = "audit_logs"
	CategoryAnalyticsEvents Category = "analytics_events"
	CategoryCrashReports    Category = "crash_reports"
	CategoryNotifications   Category = "notifications"
	CategoryExports         Category = "exports"
	CategorySupportMessages Category = "support_messages"
)

func AllCategories() []Category {
	return []Category{
		CategoryTransactions,
		CategoryAuditLogs,
		CategoryAnalyticsEvents,
		CategoryCrashReports,
		CategoryNotifications,
		CategoryExports,
		CategorySupportMessages,
	}
}

type Period string

const (
	PeriodLegalMinimum Period = "legal_minimum"
	PeriodOneYear      Period = "one_year"
	PeriodTwoYears     Period = "two_years"
	PeriodFiveYears    Period = "five_years"
)

// Policy is the user-adjustable retention setting for one category.
type Policy struct {
	Category   Category `json:"category"`
	Period     Period   `json:"retentionPeriod"`
	AutoDelete bool     `json:"autoDelete"`
}

// Item is one deletable record in the externally supplied data
// inventory.
type Item struct {
	Ref       string    `json:"ref"`
	Category  Category  `json:"category"`
	Timestamp time.Time `json:"timestamp"`
}

// PurgeReport is the immutable result of one purge run.
type PurgeReport struct {
	ID                  string         `json:"id"`
	Timestamp           time.Time      `json:"timestamp"`
	CategoriesProcessed []string       `json:"categoriesProcessed"`
	DeletedByCategory   map[string]int `json:"deletedByCategory,omitempty"`
	TotalItemsDeleted   int            `json:"totalItemsDeleted"`
	NextScheduledPurge  time.Time      `json:"nextScheduledPurge"`
	Errors              []string       `json:"errors,omitempty"`
}

const day = 24 * time.Hour

// categoryRule carries the jurisdiction constants for a category:
// its statutory minimum retention, whether the user may adjust the
// policy, and the policy applied before the user changes anything.
type categoryRule struct {
	legalMinimum  time.Duration
	fixed         bool
	defaultPolicy Policy
}

var categoryRules = map[Category]categoryRule{
	CategoryTransactions: {
		legalMinimum:  7 * 365 * day,
		fixed:         true,
		defaultPolicy: Policy{Category: CategoryTransactions, Period: PeriodLegalMinimum, AutoDelete: false},
	},
	CategoryAuditLogs: {
		legalMinimum:  2 * 365 * day,
		fixed:         true,
		defaultPolicy: Policy{Category: CategoryAuditLogs, Period: PeriodLegalMinimum, AutoDelete: true},
	},
	CategoryAnalyticsEvents: {
		legalMinimum:  90 * day,
		defaultPolicy: Policy{Category: CategoryAnalyticsEvents, Period: PeriodOneYear, AutoDelete: true},
	},
	CategoryCrashReports: {
		legalMinimum:  30 * day,
		defaultPolicy: Policy{Category: CategoryCrashReports, Period: PeriodOneYear, AutoDelete: true},
	},
	CategoryNotifications: {
		legalMinimum:  30 * day,
		defaultPolicy: Policy{Category: CategoryNotifications, Period: PeriodOneYear, AutoDelete: true},
	},
	CategoryExports: {
		legalMinimum:  30 * day,
		defaultPolicy: Policy{Category: CategoryExports, Period: PeriodLegalMinimum, AutoDelete: true},
	},
	CategorySupportMessages: {
		legalMinimum:  180 * day,
		defaultPolicy: Policy{Category: CategorySupportMessages, Period: PeriodTwoYears, AutoDelete: true},
	},
}

var periodDurations = map[Period]time.Duration{
	PeriodOneYear:   365 * day,
	PeriodTwoYears:  2 * 365 * day,
	PeriodFiveYears: 5 * 365 * day,
}
