package ticket

import "errors"

// Reason 票据校验失败原因
type Reason int

// 所有原因都会让当前票据作废，调用方应要求重新认证
const (
	ReasonMissingTicket Reason = iota + 1
	ReasonExpired
	ReasonAddressMismatch
	ReasonSignatureInvalid
	ReasonRealmInvalid
)

var reasonCodes = map[Reason]string{
	ReasonMissingTicket:    "missing_ticket",
	ReasonExpired:          "expired",
	ReasonAddressMismatch:  "address_mismatch",
	ReasonSignatureInvalid: "signature_invalid",
	ReasonRealmInvalid:     "realm_invalid",
}

var reasonMessages = map[Reason]string{
	ReasonMissingTicket:    "未提供票据",
	ReasonExpired:          "票据已过期（超出 TGT 有效期）",
	ReasonAddressMismatch:  "客户端地址不匹配（票据可能被盗用）",
	ReasonSignatureInvalid: "票据签名无效（检测到篡改）",
	ReasonRealmInvalid:     "票据域无效",
}

// Code 原因代码
func (r Reason) Code() string {
	if code, ok := reasonCodes[r]; ok {
		return code
	}
	return "unknown"
}

// String 原因描述
func (r Reason) String() string {
	if msg, ok := reasonMessages[r]; ok {
		return msg
	}
	return "未知原因"
}

// ValidationError 票据校验失败
type ValidationError struct {
	Reason Reason
}

func (e *ValidationError) Error() string {
	return e.Reason.String()
}

// Is 按原因比较，便于 errors.Is(err, ErrExpired)
func (e *ValidationError) Is(target error) bool {
	t, ok := target.(*ValidationError)
	return ok && t.Reason == e.Reason
}

// 可用于 errors.Is 的哨兵错误
var (
	ErrMissingTicket    = &ValidationError{Reason: ReasonMissingTicket}
	ErrExpired          = &ValidationError{Reason: ReasonExpired}
	ErrAddressMismatch  = &ValidationError{Reason: ReasonAddressMismatch}
	ErrSignatureInvalid = &ValidationError{Reason: ReasonSignatureInvalid}
	ErrRealmInvalid     = &ValidationError{Reason: ReasonRealmInvalid}
)

// ReasonOf 提取校验失败原因，非校验错误返回 0
func ReasonOf(err error) Reason {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve.Reason
	}
	return 0
}
