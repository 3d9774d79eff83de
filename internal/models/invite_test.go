package models

import (
	"encoding/base64"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	// A named shared in-memory database so all pooled connections see the
	// same data within one test.
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&Invite{}))
	return db
}

func createTestInvite(t *testing.T, db *gorm.DB, expiresAt time.Time) *Invite {
	t.Helper()

	invite := &Invite{
		EventID:      "evt_1",
		InviterEmail: "a@x.com",
		ExpiresAt:    expiresAt,
	}
	require.NoError(t, db.Create(invite).Error)
	return invite
}

func TestNewInviteToken(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		token, err := NewInviteToken()
		require.NoError(t, err)

		// 24 bytes of entropy, unpadded URL-safe encoding.
		raw, err := base64.RawURLEncoding.DecodeString(token)
		require.NoError(t, err)
		assert.Len(t, raw, 24)
		assert.NotContains(t, token, "=")
		assert.NotContains(t, token, "+")
		assert.NotContains(t, token, "/")

		assert.False(t, seen[token], "token %q repeated", token)
		seen[token] = true
	}
}

func TestBeforeCreateFillsIDAndToken(t *testing.T) {
	db := newTestDB(t)

	invite := createTestInvite(t, db, time.Now().UTC().Add(72*time.Hour))
	assert.NotEmpty(t, invite.ID)
	assert.NotEmpty(t, invite.Token)

	// A caller-supplied token must survive the hook.
	fixed := &Invite{
		Token:        "fixed-token",
		EventID:      "evt_2",
		InviterEmail: "a@x.com",
		ExpiresAt:    time.Now().UTC().Add(time.Hour),
	}
	require.NoError(t, db.Create(fixed).Error)
	assert.Equal(t, "fixed-token", fixed.Token)
}

func TestExpired(t *testing.T) {
	now := time.Now().UTC()
	invite := &Invite{ExpiresAt: now.Add(time.Hour)}

	assert.False(t, invite.Expired(now))
	assert.True(t, invite.Expired(now.Add(time.Hour)))
	assert.True(t, invite.Expired(now.Add(2*time.Hour)))
}

func TestGetInviteByToken(t *testing.T) {
	db := newTestDB(t)
	invite := createTestInvite(t, db, time.Now().UTC().Add(time.Hour))

	found, err := GetInviteByToken(db, invite.Token)
	require.NoError(t, err)
	assert.Equal(t, invite.ID, found.ID)

	_, err = GetInviteByToken(db, "no-such-token")
	assert.ErrorIs(t, err, ErrInviteNotFound)
}

func TestMarkOpenedFirstViewWins(t *testing.T) {
	db := newTestDB(t)
	invite := createTestInvite(t, db, time.Now().UTC().Add(time.Hour))

	first := time.Now().UTC().Add(-10 * time.Minute)
	require.NoError(t, invite.MarkOpened(db, first))
	require.NotNil(t, invite.OpenedAt)
	assert.WithinDuration(t, first, *invite.OpenedAt, time.Second)

	// A later open, even through a fresh load, must not move the timestamp.
	fresh, err := GetInviteByToken(db, invite.Token)
	require.NoError(t, err)
	second := time.Now().UTC()
	require.NoError(t, fresh.MarkOpened(db, second))
	require.NotNil(t, fresh.OpenedAt)
	assert.WithinDuration(t, first, *fresh.OpenedAt, time.Second)

	stored, err := GetInviteByToken(db, invite.Token)
	require.NoError(t, err)
	require.NotNil(t, stored.OpenedAt)
	assert.WithinDuration(t, first, *stored.OpenedAt, time.Second)
}

func TestMarkOpenedRaceReload(t *testing.T) {
	db := newTestDB(t)
	invite := createTestInvite(t, db, time.Now().UTC().Add(time.Hour))

	// Simulate losing the conditional write to a concurrent resolve: the
	// row is already opened but our copy still has a nil OpenedAt.
	first := time.Now().UTC().Add(-time.Minute)
	stale, err := GetInviteByToken(db, invite.Token)
	require.NoError(t, err)
	require.NoError(t, invite.MarkOpened(db, first))

	require.NoError(t, stale.MarkOpened(db, time.Now().UTC()))
	require.NotNil(t, stale.OpenedAt)
	assert.WithinDuration(t, first, *stale.OpenedAt, time.Second)
}

func TestRecordResponseLastWriteWins(t *testing.T) {
	db := newTestDB(t)
	invite := createTestInvite(t, db, time.Now().UTC().Add(time.Hour))

	t1 := time.Now().UTC().Add(-5 * time.Minute)
	require.NoError(t, invite.RecordResponse(db, ResponseYes, "", t1))

	t2 := time.Now().UTC()
	fresh, err := GetInviteByToken(db, invite.Token)
	require.NoError(t, err)
	require.NoError(t, fresh.RecordResponse(db, ResponseNo, "", t2))

	stored, err := GetInviteByToken(db, invite.Token)
	require.NoError(t, err)
	require.NotNil(t, stored.Response)
	assert.Equal(t, ResponseNo, *stored.Response)
	require.NotNil(t, stored.RespondedAt)
	assert.WithinDuration(t, t2, *stored.RespondedAt, time.Second)
}

func TestRecordResponseKeepsFirstEmail(t *testing.T) {
	db := newTestDB(t)
	invite := createTestInvite(t, db, time.Now().UTC().Add(time.Hour))

	now := time.Now().UTC()

	// Responding anonymously leaves the address null.
	require.NoError(t, invite.RecordResponse(db, ResponseMaybe, "", now))
	stored, err := GetInviteByToken(db, invite.Token)
	require.NoError(t, err)
	assert.Nil(t, stored.InvitedEmail)

	// The first known address sticks.
	require.NoError(t, stored.RecordResponse(db, ResponseYes, "b@x.com", now))
	stored, err = GetInviteByToken(db, invite.Token)
	require.NoError(t, err)
	require.NotNil(t, stored.InvitedEmail)
	assert.Equal(t, "b@x.com", *stored.InvitedEmail)

	// Later responders cannot overwrite it.
	require.NoError(t, stored.RecordResponse(db, ResponseNo, "c@x.com", now))
	stored, err = GetInviteByToken(db, invite.Token)
	require.NoError(t, err)
	require.NotNil(t, stored.InvitedEmail)
	assert.Equal(t, "b@x.com", *stored.InvitedEmail)
}

func TestNormalizeResponse(t *testing.T) {
	cases := []struct {
		in   string
		want string
		ok   bool
	}{
		{"yes", ResponseYes, true},
		{"YES ", ResponseYes, true},
		{" Maybe", ResponseMaybe, true},
		{"No", ResponseNo, true},
		{"maybe-not", "", false},
		{"", "", false},
		{"going", "", false},
	}

	for _, tc := range cases {
		got, ok := NormalizeResponse(tc.in)
		assert.Equal(t, tc.ok, ok, "input %q", tc.in)
		assert.Equal(t, tc.want, got, "input %q", tc.in)
	}
}
