//go:build !integration

package web_test

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"lingua-billing/internal/domain/model"
	"lingua-billing/internal/domain/ports/adapter"
	"lingua-billing/internal/usecase"
)

func postWebhook(t *testing.T, handler http.Handler, body string, headers map[string]string) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/webhooks/mercadopago", bytes.NewBufferString(body))
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	var decoded map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &decoded); err != nil {
		t.Fatalf("response is not JSON: %v (body %q)", err, rec.Body.String())
	}
	return rec, decoded
}

func TestWebhookHandler(t *testing.T) {
	t.Run("approved payment is reconciled and acked", func(t *testing.T) {
		// --- Arrange ---
		deps := newTestServer("", "")
		router := deps.srv.Router()

		// --- Act ---
		rec, body := postWebhook(t, router, `{"type":"payment","data":{"id":"mp-77"}}`, nil)

		// --- Assert ---
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		if body["status"] != "ok" {
			t.Errorf("expected status ok, got %v", body)
		}
		if len(deps.reconcileUC.Calls) != 1 {
			t.Fatalf("expected 1 reconcile call, got %d", len(deps.reconcileUC.Calls))
		}
		in := deps.reconcileUC.Calls[0]
		if in.ExternalID != "mp-77" || in.Status != model.PaymentStatusApproved || in.UserID != "user-1" {
			t.Errorf("unexpected reconcile input: %+v", in)
		}
	})

	t.Run("unknown event type is acknowledged and ignored", func(t *testing.T) {
		// --- Arrange ---
		deps := newTestServer("", "")
		router := deps.srv.Router()

		// --- Act ---
		rec, body := postWebhook(t, router, `{"type":"plan","data":{"id":"123"}}`, nil)

		// --- Assert ---
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		if body["status"] != "ignored" {
			t.Errorf("expected status ignored, got %v", body)
		}
		if len(deps.reconcileUC.Calls) != 0 {
			t.Error("expected no reconcile call for an ignored type")
		}
	})

	t.Run("malformed body still answers 200", func(t *testing.T) {
		deps := newTestServer("", "")
		rec, body := postWebhook(t, deps.srv.Router(), `{{{not json`, nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		if body["status"] != "error" {
			t.Errorf("expected status error, got %v", body)
		}
	})

	t.Run("gateway fetch failure still answers 200 with an error body", func(t *testing.T) {
		// --- Arrange ---
		deps := newTestServer("", "")
		deps.gateway.GetPaymentFunc = func(ctx context.Context, externalID string) (*adapter.PaymentDetail, error) {
			return nil, errors.New("503 from provider")
		}

		// --- Act ---
		rec, body := postWebhook(t, deps.srv.Router(), `{"type":"payment","data":{"id":"mp-88"}}`, nil)

		// --- Assert ---
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		if body["status"] != "error" || body["error"] == "" {
			t.Errorf("expected error body, got %v", body)
		}
	})

	t.Run("reconcile failure still answers 200 with an error body", func(t *testing.T) {
		// --- Arrange ---
		deps := newTestServer("", "")
		deps.reconcileUC.ReconcileFunc = func(ctx context.Context, in usecase.ReconcileInput) (*model.Payment, error) {
			return nil, errors.New("deadlock detected")
		}

		// --- Act ---
		rec, body := postWebhook(t, deps.srv.Router(), `{"type":"payment","data":{"id":"mp-99"}}`, nil)

		// --- Assert ---
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		if body["status"] != "error" {
			t.Errorf("expected error body, got %v", body)
		}
	})

	t.Run("signature is enforced when a secret is configured", func(t *testing.T) {
		// --- Arrange ---
		secret := "whsec_test"
		deps := newTestServer("", secret)
		router := deps.srv.Router()

		h := hmac.New(sha256.New, []byte(secret))
		h.Write([]byte("mp-55payment"))
		good := hex.EncodeToString(h.Sum(nil))

		// --- Act: valid signature ---
		rec, body := postWebhook(t, router, `{"type":"payment","data":{"id":"mp-55"}}`,
			map[string]string{"X-Signature": good})

		// --- Assert ---
		if rec.Code != http.StatusOK || body["status"] != "ok" {
			t.Fatalf("expected ok with valid signature, got %d %v", rec.Code, body)
		}

		// --- Act: bad signature is rejected but still 200 ---
		rec, body = postWebhook(t, router, `{"type":"payment","data":{"id":"mp-55"}}`,
			map[string]string{"X-Signature": "deadbeef"})
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		if body["status"] != "error" {
			t.Errorf("expected error body for bad signature, got %v", body)
		}
		if len(deps.reconcileUC.Calls) != 1 {
			t.Errorf("expected only the signed delivery reconciled, got %d calls", len(deps.reconcileUC.Calls))
		}
	})
}
