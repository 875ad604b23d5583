package consent

import "time"

// Record is an immutable, timestamped consent fact. Records are only
// ever appended; the effective status is derived from the newest one.
type Record struct {
	ID               string            `json:"id"`
	Type             Type              `json:"consentType"`
	Granted          bool              `json:"granted"`
	Version          string            `json:"version"`
	Timestamp        time.Time         `json:"timestamp"`
	ExpiryDate       *time.Time        `json:"expiryDate,omitempty"`
	WithdrawnAt      *time.Time        `json:"withdrawnAt,omitempty"`
	WithdrawalReason string            `json:"withdrawalReason,omitempty"`
	LegalBasis       LegalBasis        `json:"legalBasis"`
	Metadata         map[string]string `json:"metadata,omitempty"`
}

// History is the derived per-type view: the recent records newest
// first, capped to HistoryCap.
type History struct {
	Records       []Record  `json:"records"`
	CurrentStatus bool      `json:"currentStatus"`
	LastUpdated   time.Time `json:"lastUpdated"`
	EffectiveDate time.Time `json:"effectiveDate"`
}

// Export is the full compliance snapshot.
type Export struct {
	History        map[Type]History `json:"history"`
	AllRecords     []Record         `json:"allRecords"`
	Configurations []Config         `json:"configurations"`
	ExportDate     time.Time        `json:"exportDate"`
}
