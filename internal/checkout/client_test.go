package checkout

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/haffnet/portal/internal/model"
)

func newTestClient(server *httptest.Server) *Client {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewClient(server.Client(), logger, server.URL, "backend-key")
}

func TestCreateSession_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/checkout/sessions" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer backend-key" {
			t.Errorf("Authorization = %q", got)
		}

		var input CreateSessionInput
		if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if input.CustomerEmail != "anna@example.com" {
			t.Errorf("customerEmail = %q", input.CustomerEmail)
		}

		w.Write([]byte(`{"status":"ok","data":{
			"sessionId":"cs-1","productId":"prod-1","amount":24900,
			"currency":"EUR","paymentMethod":"stripe","status":"pending"
		}}`))
	}))
	defer server.Close()

	client := newTestClient(server)
	session, apiErr, err := client.CreateSession(context.Background(), CreateSessionInput{
		OrganizationID: "org-1",
		ProductID:      "prod-1",
		CustomerEmail:  "anna@example.com",
		CustomerName:   "Anna Muster",
		PaymentMethod:  "stripe",
	})
	if err != nil {
		t.Fatalf("CreateSession() error = %v", err)
	}
	if apiErr != nil {
		t.Fatalf("CreateSession() apiErr = %v", apiErr)
	}
	if session.SessionID != "cs-1" || session.Amount != 24900 {
		t.Errorf("unexpected session: %+v", session)
	}
}

func TestCreateSession_BusinessRejectionIsNotAnError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnprocessableEntity)
		w.Write([]byte(`{"message":"Registration is closed"}`))
	}))
	defer server.Close()

	client := newTestClient(server)
	session, apiErr, err := client.CreateSession(context.Background(), CreateSessionInput{})
	if err != nil {
		t.Fatalf("business rejection should not be a transport error: %v", err)
	}
	if session != nil {
		t.Error("session should be nil on rejection")
	}
	if apiErr == nil || apiErr.Code != model.ErrCodePaymentFailed {
		t.Fatalf("apiErr = %+v, want PAYMENT_FAILED", apiErr)
	}
}

func TestConfirm_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/checkout/confirm" {
			t.Errorf("path = %q", r.URL.Path)
		}
		w.Write([]byte(`{"data":{"ticketId":"tk-1","ticketNumber":"T-0001","transactionId":"tx-1"}}`))
	}))
	defer server.Close()

	client := newTestClient(server)
	result, apiErr, err := client.Confirm(context.Background(), ConfirmInput{
		SessionID:         "cs-1",
		CheckoutSessionID: "cs-1",
		PaymentIntentID:   "free",
	})
	if err != nil || apiErr != nil {
		t.Fatalf("Confirm() err = %v, apiErr = %v", err, apiErr)
	}
	if !result.Success || result.TicketID != "tk-1" {
		t.Errorf("unexpected result: %+v", result)
	}
}

func TestConfirm_ServerErrorIsTransportError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	}))
	defer server.Close()

	client := newTestClient(server)
	_, apiErr, err := client.Confirm(context.Background(), ConfirmInput{})
	if err == nil {
		t.Error("expected transport error for 502")
	}
	if apiErr != nil {
		t.Errorf("apiErr = %+v, want nil for server failure", apiErr)
	}
}

func TestCreateSession_EnvelopeWithoutDataField(t *testing.T) {
	// 一部のエンドポイントはエンベロープなしで直接オブジェクトを返す
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"sessionId":"cs-2","amount":0,"paymentMethod":"free","status":"pending"}`))
	}))
	defer server.Close()

	client := newTestClient(server)
	session, apiErr, err := client.CreateSession(context.Background(), CreateSessionInput{})
	if err != nil || apiErr != nil {
		t.Fatalf("err = %v, apiErr = %v", err, apiErr)
	}
	if session.SessionID != "cs-2" {
		t.Errorf("sessionId = %q", session.SessionID)
	}
}
