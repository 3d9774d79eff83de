package handlers

import (
	"net/http"
	"strings"

	"familyweather-backend/internal/notifications"

	"github.com/go-playground/validator"
	"github.com/labstack/echo/v4"
)

var validate = validator.New()

type EmailInviteRow struct {
	Email string `json:"email"`
	Token string `json:"token"`
	Link  string `json:"link"`
}

type SendEmailRequest struct {
	EventID    string           `json:"eventId"`
	EventTitle string           `json:"eventTitle"`
	Message    string           `json:"message"`
	Invites    []EmailInviteRow `json:"invites"`
}

// SendEmail is the email twin of SendSMS: same per-row contract, same
// aggregate, with the address format checked per row so one bad address
// never rejects the whole batch.
func (h *InviteHandler) SendEmail(c echo.Context) error {
	req := new(SendEmailRequest)
	if err := c.Bind(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	if len(req.Invites) == 0 {
		return fail(c, http.StatusBadRequest, errInvitesRequired)
	}
	if h.EmailClient == nil {
		return fail(c, http.StatusInternalServerError, errEmailCredentials)
	}

	results := make([]SendResult, 0, len(req.Invites))

	for _, row := range req.Invites {
		address := strings.TrimSpace(row.Email)
		token := strings.TrimSpace(row.Token)
		link := strings.TrimSpace(row.Link)

		if link == "" || validate.Var(address, "required,email") != nil {
			results = append(results, SendResult{Email: address, Token: token, Error: errInvalidInviteRow})
			continue
		}

		text := h.inviteText(req.Message, req.EventTitle, link)

		messageID, err := h.EmailClient.SendInvite(address, strings.TrimSpace(req.EventTitle), link, text)
		if err != nil {
			c.Logger().Errorf("Invite email to %s failed: %v", address, err)
			results = append(results, SendResult{Email: address, Token: token, Error: err.Error()})
			continue
		}

		results = append(results, SendResult{Email: address, Token: token, OK: true, MessageID: messageID})
	}

	resp := h.batchResponse(req.EventID, results)

	_ = notifications.SendTelegramNotification(
		h.batchSummary("Email", req.EventID, resp), h.Config)

	return c.JSON(http.StatusOK, resp)
}
