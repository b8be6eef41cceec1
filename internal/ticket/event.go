package ticket

import "context"

// 安全事件类型
const (
	EventTGTIssued           = "TGT_ISSUED"
	EventTicketRenewed       = "TICKET_RENEWED"
	EventServiceTicketIssued = "SERVICE_TICKET_ISSUED"
	EventValidationFailed    = "VALIDATION_FAILED"
	EventAuthFailed          = "AUTH_FAILED"
	EventLogout              = "LOGOUT"
)

// Event 票据相关安全事件，由调用方交给 EventSink 持久化
type Event struct {
	Type          string `json:"event_type"`
	UserID        string `json:"userid"`
	Detail        string `json:"detail"`
	ClientAddress string `json:"client_address"`
	UserAgent     string `json:"user_agent"`
}

// EventSink 安全事件接收方
type EventSink interface {
	Record(ctx context.Context, event Event) error
}
