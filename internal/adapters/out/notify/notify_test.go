package notify_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"dispatch/internal/adapters/out/notify"
	"dispatch/internal/core/ports"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) Notify(ctx context.Context, channel, recipient, message string) error {
	args := m.Called(ctx, channel, recipient, message)
	return args.Error(0)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRouter_Notify_FansOutToRegisteredNotifiers(t *testing.T) {
	first := new(MockNotifier)
	second := new(MockNotifier)
	first.On("Notify", mock.Anything, ports.ChannelOperations, "", "delay alert").Return(nil).Once()
	second.On("Notify", mock.Anything, ports.ChannelOperations, "", "delay alert").Return(nil).Once()

	router := notify.NewRouter(discardLogger())
	router.Route(ports.ChannelOperations, first, second)

	err := router.Notify(context.Background(), ports.ChannelOperations, "", "delay alert")

	require.NoError(t, err)
	first.AssertExpectations(t)
	second.AssertExpectations(t)
}

func TestRouter_Notify_UnroutedChannelIsDropped(t *testing.T) {
	router := notify.NewRouter(discardLogger())

	err := router.Notify(context.Background(), ports.ChannelFinance, "", "never delivered")

	require.NoError(t, err)
}

func TestRouter_Notify_FailureDoesNotStopRemainingNotifiers(t *testing.T) {
	failing := new(MockNotifier)
	healthy := new(MockNotifier)
	failing.On("Notify", mock.Anything, ports.ChannelAgent, "alex@example.com", "hello").
		Return(errors.New("smtp down")).Once()
	healthy.On("Notify", mock.Anything, ports.ChannelAgent, "alex@example.com", "hello").
		Return(nil).Once()

	router := notify.NewRouter(discardLogger())
	router.Route(ports.ChannelAgent, failing, healthy)

	err := router.Notify(context.Background(), ports.ChannelAgent, "alex@example.com", "hello")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "smtp down")
	healthy.AssertExpectations(t)
}

func TestWebhookNotifier_Notify_PostsPayload(t *testing.T) {
	var received map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	notifier := notify.NewWebhookNotifier(server.URL, server.Client())

	err := notifier.Notify(context.Background(), ports.ChannelOperations, "", "cash discrepancy on delivery")

	require.NoError(t, err)
	assert.Equal(t, "operations", received["channel"])
	assert.Equal(t, "cash discrepancy on delivery", received["message"])
	assert.NotContains(t, received, "recipient")
}

func TestWebhookNotifier_Notify_NonSuccessStatusFails(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	notifier := notify.NewWebhookNotifier(server.URL, server.Client())

	err := notifier.Notify(context.Background(), ports.ChannelFinance, "", "fraud alert")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
}
