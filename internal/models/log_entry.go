package models

// LogAction is the disposition recorded for an intercepted text
type LogAction string

const (
	LogActionHidden    LogAction = "hidden"
	LogActionDeleted   LogAction = "deleted"
	LogActionReview    LogAction = "review"
	LogActionAutoReply LogAction = "auto_reply"
)

// LogActionFor maps a classifier action onto the log action space.
// Anything other than delete or review, including an empty action, is hidden.
func LogActionFor(action string) LogAction {
	switch action {
	case ActionDelete:
		return LogActionDeleted
	case ActionReview:
		return LogActionReview
	default:
		return LogActionHidden
	}
}

// DefaultPlatform is recorded when the caller does not name one
const DefaultPlatform = "twitter"

// LogEntry is an immutable record of one toxic verdict
type LogEntry struct {
	ID        string           `json:"id"`
	Text      string           `json:"text"`
	Result    ModerationResult `json:"result"`
	Action    LogAction        `json:"action"`
	Platform  string           `json:"platform"`
	CreatedAt string           `json:"createdAt"`
}

// LogPage is one page of log entries plus the unpaginated total
type LogPage struct {
	Data  []LogEntry `json:"data"`
	Total int        `json:"total"`
}
