package handlers

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

type fakeEmailClient struct {
	failFor map[string]error
	sent    []string
}

func (f *fakeEmailClient) SendInvite(toEmail, eventTitle, link, text string) (string, error) {
	if err, ok := f.failFor[toEmail]; ok {
		return "", err
	}
	f.sent = append(f.sent, toEmail)
	return "email-" + toEmail, nil
}

func TestSendEmailWithoutClient(t *testing.T) {
	h := newTestHandler(t)

	rec := doJSON(t, h.SendEmail, http.MethodPost, "/api/invites/send-email",
		`{"invites":[{"email":"b@x.com","token":"t1","link":"https://r/1"}]}`)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "email_credentials_missing", gjson.Get(rec.Body.String(), "error").String())
}

func TestSendEmailSkipsBadAddresses(t *testing.T) {
	h := newTestHandler(t)
	client := &fakeEmailClient{}
	h.EmailClient = client

	rec := doJSON(t, h.SendEmail, http.MethodPost, "/api/invites/send-email", `{
		"eventId": "evt_1",
		"eventTitle": "Dinner",
		"invites": [
			{"email":"b@x.com","token":"t1","link":"https://r/1"},
			{"email":"not-an-email","token":"t2","link":"https://r/2"},
			{"email":"c@x.com","token":"t3","link":""}
		]
	}`)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body := rec.Body.String()
	assert.Equal(t, int64(3), gjson.Get(body, "total").Int())
	assert.Equal(t, int64(1), gjson.Get(body, "sent").Int())
	assert.Equal(t, int64(2), gjson.Get(body, "failed").Int())
	assert.Equal(t, "invalid_invite_row", gjson.Get(body, "results.1.error").String())
	assert.Equal(t, "invalid_invite_row", gjson.Get(body, "results.2.error").String())
	assert.Equal(t, []string{"b@x.com"}, client.sent)
}

func TestSendEmailProviderFailureDoesNotAbort(t *testing.T) {
	h := newTestHandler(t)
	client := &fakeEmailClient{
		failFor: map[string]error{"b@x.com": fmt.Errorf("delivery refused")},
	}
	h.EmailClient = client

	rec := doJSON(t, h.SendEmail, http.MethodPost, "/api/invites/send-email", `{
		"invites": [
			{"email":"b@x.com","token":"t1","link":"https://r/1"},
			{"email":"c@x.com","token":"t2","link":"https://r/2"}
		]
	}`)

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.True(t, gjson.Get(body, "ok").Bool())
	assert.Equal(t, int64(1), gjson.Get(body, "sent").Int())
	assert.Contains(t, gjson.Get(body, "results.0.error").String(), "delivery refused")
	assert.Equal(t, []string{"c@x.com"}, client.sent)
}
