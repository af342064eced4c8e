package api

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/farmbridge/notify/internal/conf"
	"github.com/farmbridge/notify/internal/errors"
)

const testBaseURL = "https://backend.test"

func newTestClient(t *testing.T) *Client {
	t.Helper()

	settings := &conf.Settings{}
	settings.Backend.BaseURL = testBaseURL
	settings.Backend.Token = "test-token"
	settings.Backend.Timeout = 5 * time.Second

	client := NewClient(settings)
	httpmock.ActivateNonDefault(client.httpClient)
	t.Cleanup(httpmock.DeactivateAndReset)

	return client
}

func TestFetchNotifications(t *testing.T) {
	client := newTestClient(t)

	httpmock.RegisterResponder(http.MethodGet, testBaseURL+"/api/notifications",
		func(req *http.Request) (*http.Response, error) {
			assert.Equal(t, "Bearer test-token", req.Header.Get("Authorization"))
			resp := httpmock.NewStringResponse(http.StatusOK, `[
				{"id":"2","kind":"alert","title":"Aphids detected"},
				{"notificationId":"1","type":"alert","message":"Late blight #77"}
			]`)
			resp.Header.Set("Content-Type", "application/json")
			return resp, nil
		})

	items, err := client.FetchNotifications(context.Background())
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "2", items[0].ID)
	assert.Equal(t, "1", items[1].ID, "alternate id field names decode to the same identifier")
}

func TestFetchNotificationsServerError(t *testing.T) {
	client := newTestClient(t)

	httpmock.RegisterResponder(http.MethodGet, testBaseURL+"/api/notifications",
		httpmock.NewStringResponder(http.StatusInternalServerError, `{"error":"boom"}`))

	_, err := client.FetchNotifications(context.Background())
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryHTTP))
}

func TestFetchNotificationsNonJSONResponse(t *testing.T) {
	client := newTestClient(t)

	// A misconfigured proxy answering 200 with an HTML page must surface
	// as a decode error, not a half-parsed snapshot.
	resp := httpmock.NewStringResponder(http.StatusOK, "<html>login required</html>")
	httpmock.RegisterResponder(http.MethodGet, testBaseURL+"/api/notifications",
		resp.HeaderSet(http.Header{"Content-Type": []string{"text/html; charset=utf-8"}}))

	_, err := client.FetchNotifications(context.Background())
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryJSONParsing))
}

func TestFetchNotificationsWithoutCredential(t *testing.T) {
	client := newTestClient(t)
	client.SetCredentialProvider(StaticCredential(""))

	_, err := client.FetchNotifications(context.Background())
	assert.ErrorIs(t, err, ErrNoCredential)
	assert.Zero(t, httpmock.GetTotalCallCount(), "no request leaves the process without a credential")
}

func TestMarkNotificationRead(t *testing.T) {
	client := newTestClient(t)

	httpmock.RegisterResponder(http.MethodPost, testBaseURL+"/api/notifications/42/read",
		httpmock.NewStringResponder(http.StatusNoContent, ""))

	require.NoError(t, client.MarkNotificationRead(context.Background(), "42"))
	assert.Equal(t, 1, httpmock.GetTotalCallCount())
}

func TestMarkNotificationReadFailure(t *testing.T) {
	client := newTestClient(t)

	httpmock.RegisterResponder(http.MethodPost, testBaseURL+"/api/notifications/42/read",
		httpmock.NewStringResponder(http.StatusNotFound, `{"error":"unknown notification"}`))

	err := client.MarkNotificationRead(context.Background(), "42")
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryHTTP))
}

func TestCreateSubscription(t *testing.T) {
	client := newTestClient(t)

	httpmock.RegisterResponder(http.MethodPost, testBaseURL+"/api/subscriptions",
		func(req *http.Request) (*http.Response, error) {
			var body CreateSubscriptionRequest
			require.NoError(t, json.NewDecoder(req.Body).Decode(&body))
			assert.Equal(t, "ord-1", body.OrderID)
			resp, err := httpmock.NewJsonResponse(http.StatusOK, CreateSubscriptionResponse{
				Success:        true,
				SubscriptionID: "sub-9",
			})
			return resp, err
		})

	resp, err := client.CreateSubscription(context.Background(), &CreateSubscriptionRequest{
		UserID:  "farmer-9",
		TierID:  "tier-premium",
		OrderID: "ord-1",
		Amount:  49.90,
	})
	require.NoError(t, err)
	assert.True(t, resp.Success)
	assert.Equal(t, "sub-9", resp.SubscriptionID)
}

func TestHasCredential(t *testing.T) {
	settings := &conf.Settings{}
	settings.Backend.BaseURL = testBaseURL

	client := NewClient(settings)
	assert.False(t, client.HasCredential())

	client.SetCredentialProvider(StaticCredential("tok"))
	assert.True(t, client.HasCredential())
}
