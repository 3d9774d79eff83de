package handlers

import (
	"io"
	"net/http"
	"regexp"

	"github.com/labstack/echo/v4"
)

var bearerPattern = regexp.MustCompile(`(?i)^Bearer\s+(.+)$`)

func bearerToken(c echo.Context) string {
	m := bearerPattern.FindStringSubmatch(c.Request().Header.Get("Authorization"))
	if m == nil {
		return ""
	}
	return m[1]
}

// verifyWebhook authenticates a provider callback before its payload is
// touched. Returns false with the error response already written when the
// request must not proceed.
func (h *InviteHandler) verifyWebhook(c echo.Context) (bool, error) {
	secret := h.Config.Vonage.SignatureSecret
	if secret == "" {
		return false, fail(c, http.StatusInternalServerError, errSigSecretMissing)
	}

	token := bearerToken(c)
	if token == "" {
		return false, fail(c, http.StatusUnauthorized, errMissingBearer)
	}

	if !h.Verifier.Verify(token, secret) {
		return false, fail(c, http.StatusUnauthorized, errBadSignature)
	}

	return true, nil
}

// Inbound receives provider-originated SMS messages. The payload is only
// logged; replies do not feed back into the invite lifecycle.
func (h *InviteHandler) Inbound(c echo.Context) error {
	if ok, err := h.verifyWebhook(c); !ok {
		return err
	}

	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return fail(c, http.StatusInternalServerError, errServer)
	}
	c.Logger().Infof("Inbound SMS: %s", body)

	return c.String(http.StatusOK, "ok")
}

// DeliveryReceipt receives the provider's delivery status callbacks.
func (h *InviteHandler) DeliveryReceipt(c echo.Context) error {
	if ok, err := h.verifyWebhook(c); !ok {
		return err
	}

	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return fail(c, http.StatusInternalServerError, errServer)
	}
	c.Logger().Infof("Delivery receipt: %s", body)

	return c.String(http.StatusOK, "ok")
}

// WebhookProbe answers the GET variants of the webhook URLs, kept open for
// quick manual checks from the provider dashboard.
func (h *InviteHandler) WebhookProbe(c echo.Context) error {
	return c.String(http.StatusOK, "ok")
}
