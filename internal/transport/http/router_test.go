package transport_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/softside/user-message/internal/authz"
	"github.com/softside/user-message/internal/jwtsigner"
	"github.com/softside/user-message/internal/observability/metrics"
	"github.com/softside/user-message/internal/service"
	"github.com/softside/user-message/internal/store"
	transport "github.com/softside/user-message/internal/transport/http"

	"github.com/google/uuid"
	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

const (
	testSecret = "test-secret"
	testIssuer = "usermsg"
)

var metricsOnce sync.Once

func setupServer(t *testing.T) *httptest.Server {
	t.Helper()

	metricsOnce.Do(func() { metrics.MustRegister("usermsg") })

	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	st := store.New(db)
	if err := st.AutoMigrate(context.Background()); err != nil {
		t.Fatalf("automigrate: %v", err)
	}

	validator := authz.NewHMACValidator(testSecret, testIssuer)
	router := transport.NewRouter(service.New(st), transport.Options{
		AuthMiddleware: validator.Middleware,
	})

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return srv
}

func tokenFor(t *testing.T, user uuid.UUID) string {
	t.Helper()
	signer, err := jwtsigner.New(testSecret, testIssuer)
	if err != nil {
		t.Fatalf("signer: %v", err)
	}
	tok, err := signer.Sign(user.String(), time.Hour, nil)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return tok
}

func doJSON(t *testing.T, method, url, token string, body any) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode: %v", err)
		}
	}
	req, err := http.NewRequest(method, url, &buf)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do: %v", err)
	}
	return resp
}

func TestAuthRequired(t *testing.T) {
	srv := setupServer(t)

	resp := doJSON(t, http.MethodGet, srv.URL+"/contacts", "", nil)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", resp.StatusCode)
	}

	resp = doJSON(t, http.MethodGet, srv.URL+"/healthz", "", nil)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected healthz open, got %d", resp.StatusCode)
	}
}

func TestSendAndConversationFlow(t *testing.T) {
	srv := setupServer(t)

	a, b := uuid.New(), uuid.New()
	tokA, tokB := tokenFor(t, a), tokenFor(t, b)

	resp := doJSON(t, http.MethodPost, srv.URL+"/messages", tokA, map[string]string{
		"receiverId": b.String(),
		"body":       "hello over http",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}
	var sent struct {
		ID       string `json:"id"`
		SenderID string `json:"senderId"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&sent); err != nil {
		t.Fatalf("decode: %v", err)
	}
	resp.Body.Close()
	if sent.SenderID != a.String() {
		t.Fatalf("expected sender from token subject, got %s", sent.SenderID)
	}

	// blank body rejected at the transport
	resp = doJSON(t, http.MethodPost, srv.URL+"/messages", tokA, map[string]string{
		"receiverId": b.String(),
		"body":       "   ",
	})
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for blank body, got %d", resp.StatusCode)
	}

	// self-send rejected by the service
	resp = doJSON(t, http.MethodPost, srv.URL+"/messages", tokA, map[string]string{
		"receiverId": a.String(),
		"body":       "me again",
	})
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for self-send, got %d", resp.StatusCode)
	}

	resp = doJSON(t, http.MethodGet, srv.URL+"/conversations/"+a.String(), tokB, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var conv []struct {
		ID   string `json:"id"`
		Body string `json:"body"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&conv); err != nil {
		t.Fatalf("decode conversation: %v", err)
	}
	resp.Body.Close()
	if len(conv) != 1 || conv[0].Body != "hello over http" {
		t.Fatalf("unexpected conversation: %+v", conv)
	}

	resp = doJSON(t, http.MethodGet, srv.URL+"/messages/unread/count", tokB, nil)
	var unread struct {
		Count int64 `json:"count"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&unread); err != nil {
		t.Fatalf("decode unread: %v", err)
	}
	resp.Body.Close()
	if unread.Count != 1 {
		t.Fatalf("expected 1 unread, got %d", unread.Count)
	}

	// the sender cannot mark the message read
	resp = doJSON(t, http.MethodPost, fmt.Sprintf("%s/messages/%s/read", srv.URL, sent.ID), tokA, nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403 for sender read, got %d", resp.StatusCode)
	}

	resp = doJSON(t, http.MethodPost, fmt.Sprintf("%s/messages/%s/read", srv.URL, sent.ID), tokB, nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", resp.StatusCode)
	}

	resp = doJSON(t, http.MethodGet, srv.URL+"/messages/unread/count?from="+a.String(), tokB, nil)
	if err := json.NewDecoder(resp.Body).Decode(&unread); err != nil {
		t.Fatalf("decode pair unread: %v", err)
	}
	resp.Body.Close()
	if unread.Count != 0 {
		t.Fatalf("expected 0 unread from a after read, got %d", unread.Count)
	}
}

func TestContactListAndDelete(t *testing.T) {
	srv := setupServer(t)

	a, b := uuid.New(), uuid.New()
	tokA, tokB := tokenFor(t, a), tokenFor(t, b)

	resp := doJSON(t, http.MethodPost, srv.URL+"/messages", tokA, map[string]string{
		"receiverId": b.String(),
		"body":       "one two three four five six seven eight nine ten eleven twelve",
	})
	var sent struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&sent); err != nil {
		t.Fatalf("decode: %v", err)
	}
	resp.Body.Close()

	resp = doJSON(t, http.MethodGet, srv.URL+"/contacts", tokB, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var contacts []struct {
		WithUserID string `json:"withUserId"`
		Preview    string `json:"preview"`
		Unread     int64  `json:"unread"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&contacts); err != nil {
		t.Fatalf("decode contacts: %v", err)
	}
	resp.Body.Close()
	if len(contacts) != 1 {
		t.Fatalf("expected 1 contact, got %d", len(contacts))
	}
	if contacts[0].WithUserID != a.String() {
		t.Fatalf("expected contact with a, got %s", contacts[0].WithUserID)
	}
	if contacts[0].Preview != "one two three four five six seven eight nine ten ..." {
		t.Fatalf("unexpected preview: %q", contacts[0].Preview)
	}
	if contacts[0].Unread != 1 {
		t.Fatalf("expected 1 unread in contact row, got %d", contacts[0].Unread)
	}

	// a stranger cannot delete the message
	resp = doJSON(t, http.MethodDelete, srv.URL+"/messages/"+sent.ID, tokenFor(t, uuid.New()), nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403 for stranger delete, got %d", resp.StatusCode)
	}

	resp = doJSON(t, http.MethodDelete, srv.URL+"/messages/"+sent.ID, tokB, nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", resp.StatusCode)
	}

	resp = doJSON(t, http.MethodGet, srv.URL+"/conversations/"+a.String(), tokB, nil)
	var conv []json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&conv); err != nil {
		t.Fatalf("decode conversation: %v", err)
	}
	resp.Body.Close()
	if len(conv) != 0 {
		t.Fatalf("expected empty conversation after receiver delete, got %d", len(conv))
	}
}
