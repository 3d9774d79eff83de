package models

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Accepted RSVP answers. The enum is closed; UI-level aliases like
// "Can't Go" are folded into "no" before they ever reach this service.
const (
	ResponseYes   = "yes"
	ResponseMaybe = "maybe"
	ResponseNo    = "no"
)

const inviteTokenBytes = 24

var ErrInviteNotFound = errors.New("invite not found")

// Invite is a capability row: whoever holds the token may view the invite
// and record an RSVP until it expires. Expired rows are kept for auditing,
// never deleted.
type Invite struct {
	ID           string     `json:"-" gorm:"primaryKey"`
	Token        string     `json:"token" gorm:"uniqueIndex;not null"`
	EventID      string     `json:"eventId" gorm:"not null;index"`
	InviterEmail string     `json:"inviterEmail" gorm:"not null"`
	InvitedEmail *string    `json:"invitedEmail"`
	InvitedPhone string     `json:"invitedPhone,omitempty"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    time.Time  `json:"-"`
	ExpiresAt    time.Time  `json:"expiresAt" gorm:"not null"`
	OpenedAt     *time.Time `json:"openedAt"`
	RespondedAt  *time.Time `json:"respondedAt"`
	Response     *string    `json:"response"`
}

func (i *Invite) BeforeCreate(tx *gorm.DB) (err error) {
	// Using uuid v7 to be indexable with B-tree
	uuidV7, err := uuid.NewV7()
	if err != nil {
		return err
	}
	i.ID = uuidV7.String()

	if i.Token == "" {
		token, err := NewInviteToken()
		if err != nil {
			return err
		}
		i.Token = token
	}

	return
}

// NewInviteToken returns a URL-safe random token with 24 bytes of entropy.
// RawURLEncoding keeps padding characters out so the token can sit in a
// query string untouched.
func NewInviteToken() (string, error) {
	buf := make([]byte, inviteTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// Expired reports whether the invite is past its TTL. Expiry dominates the
// rest of the lifecycle and is checked before any other access.
func (i *Invite) Expired(now time.Time) bool {
	return !now.Before(i.ExpiresAt)
}

func GetInviteByToken(db *gorm.DB, token string) (*Invite, error) {
	var invite Invite
	result := db.Where("token = ?", token).First(&invite)

	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrInviteNotFound
		}
		return nil, result.Error
	}
	return &invite, nil
}

// MarkOpened records the first time the invite was viewed. The write is a
// single conditional UPDATE so concurrent resolves cannot move opened_at
// once it has been set.
func (i *Invite) MarkOpened(db *gorm.DB, now time.Time) error {
	result := db.Model(&Invite{}).
		Where("token = ? AND opened_at IS NULL", i.Token).
		Update("opened_at", now)
	if result.Error != nil {
		return result.Error
	}

	if result.RowsAffected > 0 {
		i.OpenedAt = &now
		return nil
	}

	if i.OpenedAt == nil {
		// Lost the race to a concurrent resolve; reload the recorded time.
		fresh, err := GetInviteByToken(db, i.Token)
		if err != nil {
			return err
		}
		i.OpenedAt = fresh.OpenedAt
	}

	return nil
}

// RecordResponse overwrites the RSVP unconditionally: repeat responses are
// "change my RSVP", not an error. invited_email is only filled while still
// null, so the first known address wins.
func (i *Invite) RecordResponse(db *gorm.DB, response, responderEmail string, now time.Time) error {
	var email interface{}
	if responderEmail != "" {
		email = responderEmail
	}

	result := db.Model(&Invite{}).
		Where("token = ?", i.Token).
		Updates(map[string]interface{}{
			"responded_at":  now,
			"response":      response,
			"invited_email": gorm.Expr("COALESCE(invited_email, ?)", email),
		})
	if result.Error != nil {
		return result.Error
	}

	i.RespondedAt = &now
	i.Response = &response
	if i.InvitedEmail == nil && responderEmail != "" {
		i.InvitedEmail = &responderEmail
	}
	return nil
}

// NormalizeResponse lowercases and trims a submitted RSVP value. ok is false
// when the value is not one of the three accepted answers.
func NormalizeResponse(raw string) (string, bool) {
	response := strings.ToLower(strings.TrimSpace(raw))
	switch response {
	case ResponseYes, ResponseMaybe, ResponseNo:
		return response, true
	}
	return "", false
}
