package models

// ProtectionMode is the operational state shown by the extension and dashboard
type ProtectionMode string

const (
	ModeOff    ProtectionMode = "off"
	ModeDaily  ProtectionMode = "daily"
	ModeCrisis ProtectionMode = "crisis"
)

// Valid reports whether m is one of the three known modes.
func (m ProtectionMode) Valid() bool {
	switch m {
	case ModeOff, ModeDaily, ModeCrisis:
		return true
	}
	return false
}

// ProtectionStatus is derived from the settings table plus a live log count
type ProtectionStatus struct {
	Mode             ProtectionMode `json:"mode"`
	ActivatedAt      *string        `json:"activatedAt"`
	InterceptedCount int            `json:"interceptedCount"`
}

// LogStats is recomputed from the log table on every query
type LogStats struct {
	TotalIntercepted int            `json:"totalIntercepted"`
	Last24h          int            `json:"last24h"`
	ByCategory       map[string]int `json:"byCategory"`
}

// StatusSnapshot is the payload pushed on the live status stream
type StatusSnapshot struct {
	Mode             ProtectionMode `json:"mode"`
	ActivatedAt      *string        `json:"activatedAt"`
	InterceptedCount int            `json:"interceptedCount"`
	Stats            LogStats       `json:"stats"`
}

// SetModeRequest for explicit mode changes
type SetModeRequest struct {
	Mode ProtectionMode `json:"mode" binding:"required"`
}
