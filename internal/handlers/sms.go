package handlers

import (
	"fmt"
	"net/http"
	"strings"

	"familyweather-backend/internal/notifications"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

type SMSInviteRow struct {
	Phone string `json:"phone"`
	Token string `json:"token"`
	Link  string `json:"link"`
}

type SendSMSRequest struct {
	EventID    string         `json:"eventId"`
	EventTitle string         `json:"eventTitle"`
	Message    string         `json:"message"`
	Invites    []SMSInviteRow `json:"invites"`
}

// SendResult is the per-recipient outcome of a fan-out batch.
type SendResult struct {
	Phone     string `json:"phone,omitempty"`
	Email     string `json:"email,omitempty"`
	Token     string `json:"token"`
	OK        bool   `json:"ok"`
	Error     string `json:"error,omitempty"`
	MessageID string `json:"messageId,omitempty"`
}

// BatchResponse aggregates a fan-out. The call itself succeeds even when
// every recipient fails; only structural errors fail the request.
type BatchResponse struct {
	OK      bool         `json:"ok"`
	EventID *string      `json:"eventId"`
	BatchID string       `json:"batchId,omitempty"`
	Total   int          `json:"total"`
	Sent    int          `json:"sent"`
	Failed  int          `json:"failed"`
	Results []SendResult `json:"results"`
}

// SendSMS fans an invite message out to a batch of phone numbers. Rows are
// handled independently: a malformed row or a provider rejection is recorded
// in results and never short-circuits the rest of the batch.
func (h *InviteHandler) SendSMS(c echo.Context) error {
	req := new(SendSMSRequest)
	if err := c.Bind(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	if len(req.Invites) == 0 {
		return fail(c, http.StatusBadRequest, errInvitesRequired)
	}
	if h.SmsClient == nil {
		return fail(c, http.StatusInternalServerError, errSmsCredentials)
	}

	ctx := c.Request().Context()
	results := make([]SendResult, 0, len(req.Invites))

	for _, row := range req.Invites {
		phone := strings.TrimSpace(row.Phone)
		token := strings.TrimSpace(row.Token)
		link := strings.TrimSpace(row.Link)

		if phone == "" || link == "" {
			results = append(results, SendResult{Phone: phone, Token: token, Error: errInvalidInviteRow})
			continue
		}

		text := h.inviteText(req.Message, req.EventTitle, link)

		messageID, err := h.SmsClient.Send(ctx, phone, text)
		if err != nil {
			c.Logger().Errorf("SMS send to %s failed: %v", phone, err)
			results = append(results, SendResult{Phone: phone, Token: token, Error: err.Error()})
			continue
		}

		results = append(results, SendResult{Phone: phone, Token: token, OK: true, MessageID: messageID})
	}

	resp := h.batchResponse(req.EventID, results)

	_ = notifications.SendTelegramNotification(
		h.batchSummary("SMS", req.EventID, resp), h.Config)

	return c.JSON(http.StatusOK, resp)
}

func (h *InviteHandler) batchResponse(eventID string, results []SendResult) BatchResponse {
	sent := 0
	for _, r := range results {
		if r.OK {
			sent++
		}
	}

	resp := BatchResponse{
		OK:      true,
		Total:   len(results),
		Sent:    sent,
		Failed:  len(results) - sent,
		Results: results,
	}
	if eventID != "" {
		resp.EventID = &eventID
	}
	if batchID, err := uuid.NewV7(); err == nil {
		resp.BatchID = batchID.String()
	}
	return resp
}

// batchSummary is the operator ping sent after each fan-out.
func (h *InviteHandler) batchSummary(transport, eventID string, resp BatchResponse) string {
	if eventID == "" {
		eventID = "unknown event"
	}
	return fmt.Sprintf("%s invite batch for %s: %d sent, %d failed", transport, eventID, resp.Sent, resp.Failed)
}
