package ticket

import "time"

// sessionKeyPreviewLen 展示时保留的会话密钥前缀长度
const sessionKeyPreviewLen = 8

// Info 票据状态页展示信息
type Info struct {
	Principal         string    `json:"principal"`
	Realm             string    `json:"realm"`
	Service           string    `json:"service"`
	IssuedAt          time.Time `json:"issued_at"`
	ExpiresAt         time.Time `json:"expires_at"`
	RemainingSeconds  int64     `json:"time_remaining_seconds"`
	RemainingMinutes  int64     `json:"time_remaining_minutes"`
	SessionKeyPreview string    `json:"session_key_preview"`
	Renewable         bool      `json:"renewable"`
}

// Inspect 生成展示信息，不做任何校验
func (s *service) Inspect(t *Ticket) *Info {
	if t == nil {
		return nil
	}

	remaining := t.ExpiresAt - s.now()
	if remaining < 0 {
		remaining = 0
	}

	preview := t.SessionKey
	if len(preview) > sessionKeyPreviewLen {
		preview = preview[:sessionKeyPreviewLen]
	}

	return &Info{
		Principal:         t.Principal,
		Realm:             t.Realm,
		Service:           t.Service,
		IssuedAt:          time.Unix(t.IssuedAt, 0),
		ExpiresAt:         time.Unix(t.ExpiresAt, 0),
		RemainingSeconds:  remaining,
		RemainingMinutes:  remaining / 60,
		SessionKeyPreview: preview + "...",
		Renewable:         time.Duration(remaining)*time.Second > s.cfg.RenewalThreshold,
	}
}
