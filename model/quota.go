package model

import "time"

// TierSpec is a named quota policy: at most Limit requests per Window.
type TierSpec struct {
	Name   string        `json:"name"`
	Limit  int           `json:"limit"`
	Window time.Duration `json:"window"`
}

// QuotaRecord is the consumption state of one identity against one tier.
type QuotaRecord struct {
	IdentityKey   string    `json:"identity_key"`
	TierName      string    `json:"tier_name"`
	Limit         int       `json:"limit"`
	Used          int       `json:"used"`
	WindowResetAt time.Time `json:"window_reset_at"`
}

// Remaining returns how many more requests the record admits in its window.
func (r QuotaRecord) Remaining() int {
	if r.Used >= r.Limit {
		return 0
	}
	return r.Limit - r.Used
}

// Admission is the outcome of a quota check. A denial is a normal outcome,
// not an error.
type Admission struct {
	Admitted  bool      `json:"admitted"`
	Tier      string    `json:"tier"`
	Limit     int       `json:"limit"`
	Remaining int       `json:"remaining"`
	ResetAt   time.Time `json:"reset_at"`
}

// ModelTier pairs a model type with the tier it resolves to.
type ModelTier struct {
	Model string   `json:"model"`
	Tier  TierSpec `json:"tier"`
}
