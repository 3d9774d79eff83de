package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"familyweather-backend/internal/common"
	"familyweather-backend/internal/config"
	"familyweather-backend/internal/models"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"
)

const defaultExpiresHours = 72

// Wire-level error codes, aligned with the frontend's expectations.
const (
	errMissingEventID      = "missing_eventId"
	errMissingInviterEmail = "missing_inviterEmail"
	errMissingToken        = "missing_token"
	errTokenNotFound       = "token_not_found"
	errTokenExpired        = "token_expired"
	errBadResponse         = "bad_response"
	errInvitesRequired     = "invites_required"
	errInvalidInviteRow    = "invalid_invite_row"
	errSmsCredentials      = "sms_credentials_missing"
	errEmailCredentials    = "email_credentials_missing"
	errSigSecretMissing    = "sig_secret_not_configured"
	errMissingBearer       = "missing_bearer"
	errBadSignature        = "bad_signature"
	errServer              = "server_error"
)

// APIError is the envelope every failed call returns. ExpiresAt is only
// populated for token_expired so the RSVP page can show the cutoff.
type APIError struct {
	OK        bool       `json:"ok"`
	Error     string     `json:"error"`
	ExpiresAt *time.Time `json:"expiresAt,omitempty"`
}

func fail(c echo.Context, status int, code string) error {
	return c.JSON(status, APIError{OK: false, Error: code})
}

func failExpired(c echo.Context, expiresAt time.Time) error {
	return c.JSON(http.StatusGone, APIError{OK: false, Error: errTokenExpired, ExpiresAt: &expiresAt})
}

type InviteHandler struct {
	common.ServerState
}

func NewInviteHandler(db *gorm.DB, cfg *config.Config) *InviteHandler {
	return &InviteHandler{
		ServerState: common.ServerState{
			DB:     db,
			Config: cfg,
		},
	}
}

func (h *InviteHandler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]bool{"ok": true})
}

type CreateInviteRequest struct {
	EventID      string  `json:"eventId"`
	InviterEmail string  `json:"inviterEmail"`
	InvitedEmail string  `json:"invitedEmail"`
	InvitedPhone string  `json:"invitedPhone"`
	ExpiresHours float64 `json:"expiresHours"`
}

type CreateInviteResponse struct {
	OK        bool      `json:"ok"`
	Token     string    `json:"token"`
	EventID   string    `json:"eventId"`
	ExpiresAt time.Time `json:"expiresAt"`
	RSVPURL   string    `json:"rsvpUrl"`
}

// Create mints a new invite token. Protected by the API-key middleware; the
// eventId is an opaque external reference and is not checked for existence.
func (h *InviteHandler) Create(c echo.Context) error {
	req := new(CreateInviteRequest)
	if err := c.Bind(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	if strings.TrimSpace(req.EventID) == "" {
		return fail(c, http.StatusBadRequest, errMissingEventID)
	}
	if strings.TrimSpace(req.InviterEmail) == "" {
		return fail(c, http.StatusBadRequest, errMissingInviterEmail)
	}

	// Zero means "not provided". Negative values are accepted and produce a
	// token that is born expired, which some callers use to revoke links.
	hours := req.ExpiresHours
	if hours == 0 {
		hours = defaultExpiresHours
	}

	now := time.Now().UTC()
	invite := models.Invite{
		EventID:      strings.TrimSpace(req.EventID),
		InviterEmail: strings.TrimSpace(req.InviterEmail),
		InvitedPhone: strings.TrimSpace(req.InvitedPhone),
		ExpiresAt:    now.Add(time.Duration(hours * float64(time.Hour))),
	}
	if invitedEmail := strings.TrimSpace(req.InvitedEmail); invitedEmail != "" {
		invite.InvitedEmail = &invitedEmail
	}

	if err := h.DB.Create(&invite).Error; err != nil {
		c.Logger().Errorf("Failed to create invite: %v", err)
		return fail(c, http.StatusInternalServerError, errServer)
	}

	return c.JSON(http.StatusOK, CreateInviteResponse{
		OK:        true,
		Token:     invite.Token,
		EventID:   invite.EventID,
		ExpiresAt: invite.ExpiresAt,
		RSVPURL:   h.rsvpURL(invite.Token),
	})
}

type ResolveResponse struct {
	OK     bool           `json:"ok"`
	Invite *models.Invite `json:"invite"`
}

// Resolve is the public view action behind the RSVP link. The token itself
// is the capability, so no API key is required.
func (h *InviteHandler) Resolve(c echo.Context) error {
	token := strings.TrimSpace(c.QueryParam("token"))
	if token == "" {
		return fail(c, http.StatusBadRequest, errMissingToken)
	}

	invite, err := models.GetInviteByToken(h.DB, token)
	if errors.Is(err, models.ErrInviteNotFound) {
		return fail(c, http.StatusNotFound, errTokenNotFound)
	}
	if err != nil {
		c.Logger().Errorf("Failed to load invite: %v", err)
		return fail(c, http.StatusInternalServerError, errServer)
	}

	now := time.Now().UTC()
	if invite.Expired(now) {
		return failExpired(c, invite.ExpiresAt)
	}

	if err := invite.MarkOpened(h.DB, now); err != nil {
		c.Logger().Errorf("Failed to record invite open: %v", err)
		return fail(c, http.StatusInternalServerError, errServer)
	}

	return c.JSON(http.StatusOK, ResolveResponse{OK: true, Invite: invite})
}

type RespondRequest struct {
	Token          string `json:"token"`
	Response       string `json:"response"`
	ResponderEmail string `json:"responderEmail"`
}

type RespondResponse struct {
	OK       bool   `json:"ok"`
	Token    string `json:"token"`
	Response string `json:"response"`
}

// Respond records an RSVP. Expiry is checked here independently of Resolve:
// a client may respond without ever having resolved the token.
func (h *InviteHandler) Respond(c echo.Context) error {
	req := new(RespondRequest)
	if err := c.Bind(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	token := strings.TrimSpace(req.Token)
	if token == "" {
		return fail(c, http.StatusBadRequest, errMissingToken)
	}

	response, ok := models.NormalizeResponse(req.Response)
	if !ok {
		return fail(c, http.StatusBadRequest, errBadResponse)
	}

	invite, err := models.GetInviteByToken(h.DB, token)
	if errors.Is(err, models.ErrInviteNotFound) {
		return fail(c, http.StatusNotFound, errTokenNotFound)
	}
	if err != nil {
		c.Logger().Errorf("Failed to load invite: %v", err)
		return fail(c, http.StatusInternalServerError, errServer)
	}

	now := time.Now().UTC()
	if invite.Expired(now) {
		return failExpired(c, invite.ExpiresAt)
	}

	if err := invite.RecordResponse(h.DB, response, strings.TrimSpace(req.ResponderEmail), now); err != nil {
		c.Logger().Errorf("Failed to record response: %v", err)
		return fail(c, http.StatusInternalServerError, errServer)
	}

	return c.JSON(http.StatusOK, RespondResponse{OK: true, Token: token, Response: response})
}

func (h *InviteHandler) rsvpURL(token string) string {
	return fmt.Sprintf("%s?token=%s", h.Config.Invites.RSVPBaseURL, token)
}

// inviteText composes the outbound message: the caller's text when provided,
// otherwise the stock template.
func (h *InviteHandler) inviteText(message, eventTitle, link string) string {
	if text := strings.TrimSpace(message); text != "" {
		return text
	}

	title := strings.TrimSpace(eventTitle)
	if title == "" {
		title = "an event"
	}
	return fmt.Sprintf("You're invited to %s on %s. RSVP: %s", title, h.Config.Invites.ProductName, link)
}
