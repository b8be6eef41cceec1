package response

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/bpalanga/cryptoweb/internal/ticket"
	"github.com/gin-gonic/gin"
)

func TestCodeToHTTPStatus(t *testing.T) {
	tests := []struct {
		code int
		want int
	}{
		{CodeSuccess, http.StatusOK},
		{CodeInvalidRequest, http.StatusBadRequest},
		{CodeInvalidCredentials, http.StatusUnauthorized},
		{CodeNotLoggedIn, http.StatusUnauthorized},
		{CodeAccountLocked, http.StatusForbidden},
		{CodeForbidden, http.StatusForbidden},
		{CodeTicketExpired, http.StatusUnauthorized},
		{CodeAddressMismatch, http.StatusUnauthorized},
		{CodeTicketTampered, http.StatusUnauthorized},
		{CodeServiceNameEmpty, http.StatusBadRequest},
		{CodeUserNotFound, http.StatusNotFound},
		{CodeUserExists, http.StatusConflict},
		{CodeTooManyReq, http.StatusTooManyRequests},
		{CodeServerError, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := codeToHTTPStatus(tt.code); got != tt.want {
			t.Errorf("codeToHTTPStatus(%d) = %d, 期望 %d", tt.code, got, tt.want)
		}
	}
}

func TestTicketCode(t *testing.T) {
	tests := map[ticket.Reason]int{
		ticket.ReasonMissingTicket:    CodeTicketMissing,
		ticket.ReasonExpired:          CodeTicketExpired,
		ticket.ReasonAddressMismatch:  CodeAddressMismatch,
		ticket.ReasonSignatureInvalid: CodeTicketTampered,
		ticket.ReasonRealmInvalid:     CodeRealmInvalid,
	}
	for reason, want := range tests {
		if got := TicketCode(reason); got != want {
			t.Errorf("TicketCode(%s) = %d, 期望 %d", reason.Code(), got, want)
		}
	}
}

func TestError(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	Error(c, CodeAddressMismatch)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("期望状态码 401, 实际 %d", w.Code)
	}
	var resp Response
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("解析响应失败: %v", err)
	}
	if resp.Code != CodeAddressMismatch || resp.Msg != codeMessages[CodeAddressMismatch] {
		t.Errorf("响应不符: %+v", resp)
	}
}
