package services

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPushService_Send(t *testing.T) {
	var got []pushMessage
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer access", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"data":[{"status":"ok","id":"ticket-1"}]}`))
	}))
	defer srv.Close()

	p := NewPushService(srv.URL, "access", time.Second)
	err := p.Send(context.Background(), "ExponentPushToken[x]", "New message from Alice", "hi", map[string]string{"chatId": "c1"})
	require.NoError(t, err)

	require.Len(t, got, 1)
	assert.Equal(t, "ExponentPushToken[x]", got[0].To)
	assert.Equal(t, "hi", got[0].Body)
	assert.Equal(t, "c1", got[0].Data["chatId"])
}

func TestPushService_TicketError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data":[{"status":"error","message":"not registered","details":{"error":"DeviceNotRegistered"}}]}`))
	}))
	defer srv.Close()

	err := NewPushService(srv.URL, "", time.Second).Send(context.Background(), "tok", "t", "b", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DeviceNotRegistered")
}

func TestPushService_HTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	err := NewPushService(srv.URL, "", time.Second).Send(context.Background(), "tok", "t", "b", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status=503")
}

func TestPushService_ContextCanceled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := NewPushService(srv.URL, "", time.Second).Send(ctx, "tok", "t", "b", nil)
	require.Error(t, err)
}
