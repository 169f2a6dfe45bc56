package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/elllyers/ineza/internal/app"
	"github.com/elllyers/ineza/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	adminToken    = "token-admin"
	customerToken = "token-jane"
	otherToken    = "token-eric"
)

type stubResolver map[string]string

func (s stubResolver) ResolveUserID(ctx context.Context, token string) (string, error) {
	userID, ok := s[token]
	if !ok {
		return "", errors.New("token is expired")
	}
	return userID, nil
}

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	db, err := store.OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "ineza.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	service := app.NewService(store.NewSQLiteRepository(db), nil, nil, logger)
	resolver := stubResolver{
		adminToken:    "user_admin",
		customerToken: "user_jane",
		otherToken:    "user_eric",
	}
	auth := NewAuthenticator(resolver, app.NewAdminList([]string{"user_admin"}), logger)
	router := NewRouter(NewHandler(service, logger), auth, NewMetrics(), []string{"https://*"})

	server := httptest.NewServer(router)
	t.Cleanup(server.Close)
	return server
}

type apiResponse struct {
	status int
	body   map[string]interface{}
}

func doJSON(t *testing.T, server *httptest.Server, method, path, token string, payload interface{}) apiResponse {
	t.Helper()
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		require.NoError(t, err)
		body = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, server.URL+path, body)
	require.NoError(t, err)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := server.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	decoded := map[string]interface{}{}
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if len(bytes.TrimSpace(raw)) > 0 && strings.HasPrefix(resp.Header.Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(raw, &decoded))
	}
	return apiResponse{status: resp.StatusCode, body: decoded}
}

func data(t *testing.T, resp apiResponse) map[string]interface{} {
	t.Helper()
	obj, ok := resp.body["data"].(map[string]interface{})
	require.True(t, ok, "expected object under data, got %v", resp.body)
	return obj
}

func birthCertificateBody() map[string]interface{} {
	return map[string]interface{}{
		"title":       "Birth Certificate",
		"description": "Certified birth certificate through Irembo",
		"type":        "IREMBO",
		"price":       0,
		"formFields": map[string]interface{}{
			"name": map[string]interface{}{"type": "text", "label": "Full Name", "required": true},
		},
	}
}

func createService(t *testing.T, server *httptest.Server) string {
	t.Helper()
	resp := doJSON(t, server, http.MethodPost, "/services", adminToken, birthCertificateBody())
	require.Equal(t, http.StatusCreated, resp.status, resp.body)
	return data(t, resp)["id"].(string)
}

func submitRequest(t *testing.T, server *httptest.Server, serviceID, token string) apiResponse {
	t.Helper()
	return doJSON(t, server, http.MethodPost, "/service-requests", token, map[string]interface{}{
		"serviceId":     serviceID,
		"formData":      map[string]interface{}{"name": "Jane", "paymentMethod": "MTN_MONEY"},
		"paymentMethod": "MTN_MONEY",
		"amount":        500,
	})
}

func TestHealthAndMetrics(t *testing.T) {
	server := newTestServer(t)

	resp, err := server.Client().Get(server.URL + "/health")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = server.Client().Get(server.URL + "/metrics")
	require.NoError(t, err)
	raw, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(raw), `ineza_http_requests_total{method="GET",route="/health",status="200"} 1`)
}

func TestAdminCreatesFreeServiceWithFourPaymentMethods(t *testing.T) {
	server := newTestServer(t)

	resp := doJSON(t, server, http.MethodPost, "/services", adminToken, birthCertificateBody())
	require.Equal(t, http.StatusCreated, resp.status)
	svc := data(t, resp)
	assert.Equal(t, "Birth Certificate", svc["title"])
	assert.Equal(t, "Free", svc["displayPrice"])
	assert.Equal(t, float64(0), svc["price"])
	assert.Len(t, svc["paymentMethods"], 4)

	get := doJSON(t, server, http.MethodGet, "/services/"+svc["id"].(string), "", nil)
	require.Equal(t, http.StatusOK, get.status)
	fetched := data(t, get)
	assert.Equal(t, svc["formFields"], fetched["formFields"])
	assert.Equal(t, "IREMBO", fetched["type"])

	list := doJSON(t, server, http.MethodGet, "/services?type=IREMBO", "", nil)
	require.Equal(t, http.StatusOK, list.status)
	assert.Len(t, list.body["data"], 1)
}

func TestCustomerSubmitsPendingRequest(t *testing.T) {
	server := newTestServer(t)
	serviceID := createService(t, server)

	resp := submitRequest(t, server, serviceID, customerToken)
	require.Equal(t, http.StatusCreated, resp.status, resp.body)
	req := data(t, resp)
	assert.Equal(t, "PENDING", req["status"])
	assert.Equal(t, "PENDING", req["paymentStatus"])
	assert.Equal(t, "user_jane", req["userId"])
	assert.Equal(t, float64(500), req["amount"])
	assert.Equal(t, map[string]interface{}{"name": "Jane", "paymentMethod": "MTN_MONEY"}, req["formData"])
	summary, ok := req["service"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "Birth Certificate", summary["title"])
}

func TestSubmitWithDisabledPaymentMethodIsRejected(t *testing.T) {
	server := newTestServer(t)
	serviceID := createService(t, server)

	toggle := doJSON(t, server, http.MethodPatch, "/services/"+serviceID+"/payment-methods/MTN_MONEY", adminToken, map[string]interface{}{"enabled": false})
	require.Equal(t, http.StatusOK, toggle.status, toggle.body)
	assert.Equal(t, false, data(t, toggle)["enabled"])

	resp := submitRequest(t, server, serviceID, customerToken)
	require.Equal(t, http.StatusBadRequest, resp.status)
	assert.Equal(t, "Invalid payment method", resp.body["error"])
	assert.Equal(t, "VALIDATION_ERROR", resp.body["code"])
	assert.Contains(t, resp.body["details"], "paymentMethod")

	public := doJSON(t, server, http.MethodGet, "/services/"+serviceID, "", nil)
	assert.Len(t, data(t, public)["paymentMethods"], 3)
	admin := doJSON(t, server, http.MethodGet, "/services/"+serviceID, adminToken, nil)
	assert.Len(t, data(t, admin)["paymentMethods"], 4)
}

func TestAdminCompletesRequestKeepsPaymentStatus(t *testing.T) {
	server := newTestServer(t)
	serviceID := createService(t, server)
	requestID := data(t, submitRequest(t, server, serviceID, customerToken))["id"].(string)

	patch := doJSON(t, server, http.MethodPatch, "/service-requests/"+requestID, adminToken, map[string]interface{}{"status": "COMPLETED"})
	require.Equal(t, http.StatusOK, patch.status, patch.body)

	get := doJSON(t, server, http.MethodGet, "/service-requests/"+requestID, customerToken, nil)
	require.Equal(t, http.StatusOK, get.status)
	req := data(t, get)
	assert.Equal(t, "COMPLETED", req["status"])
	assert.Equal(t, "PENDING", req["paymentStatus"])
}

func TestAnonymousRequestListIsUnauthorized(t *testing.T) {
	server := newTestServer(t)
	serviceID := createService(t, server)
	submitRequest(t, server, serviceID, customerToken)

	resp := doJSON(t, server, http.MethodGet, "/service-requests", "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.status)
	assert.Equal(t, map[string]interface{}{"error": "Unauthorized", "code": "UNAUTHORIZED"}, resp.body)

	expired := doJSON(t, server, http.MethodGet, "/service-requests", "token-expired", nil)
	assert.Equal(t, http.StatusUnauthorized, expired.status)
}

func TestNonAdminCannotUpdateRequest(t *testing.T) {
	server := newTestServer(t)
	serviceID := createService(t, server)
	requestID := data(t, submitRequest(t, server, serviceID, customerToken))["id"].(string)

	patch := doJSON(t, server, http.MethodPatch, "/service-requests/"+requestID, customerToken, map[string]interface{}{"status": "CANCELLED"})
	assert.Equal(t, http.StatusForbidden, patch.status)
	assert.Equal(t, "FORBIDDEN", patch.body["code"])

	get := doJSON(t, server, http.MethodGet, "/service-requests/"+requestID, customerToken, nil)
	assert.Equal(t, "PENDING", data(t, get)["status"])

	other := doJSON(t, server, http.MethodGet, "/service-requests/"+requestID, otherToken, nil)
	assert.Equal(t, http.StatusForbidden, other.status)
	assert.Equal(t, "Access denied", other.body["error"])
}

func TestListRequestsAndStats(t *testing.T) {
	server := newTestServer(t)
	serviceID := createService(t, server)
	for i := 0; i < 3; i++ {
		submitRequest(t, server, serviceID, customerToken)
	}
	submitRequest(t, server, serviceID, otherToken)

	own := doJSON(t, server, http.MethodGet, "/service-requests?limit=2&page=1&sortBy=createdAt&sortOrder=desc", customerToken, nil)
	require.Equal(t, http.StatusOK, own.status, own.body)
	assert.Len(t, own.body["data"], 2)
	assert.Equal(t, map[string]interface{}{"page": float64(1), "perPage": float64(2), "total": float64(3)}, own.body["metadata"])

	bad := doJSON(t, server, http.MethodGet, "/service-requests?limit=500", customerToken, nil)
	assert.Equal(t, http.StatusBadRequest, bad.status)
	assert.Equal(t, "Invalid search parameters", bad.body["error"])

	stats := doJSON(t, server, http.MethodGet, "/service-requests/stats", adminToken, nil)
	require.Equal(t, http.StatusOK, stats.status)
	assert.Equal(t, map[string]interface{}{
		"total":      float64(4),
		"pending":    float64(4),
		"processing": float64(0),
		"completed":  float64(0),
		"cancelled":  float64(0),
	}, stats.body)

	ownStats := doJSON(t, server, http.MethodGet, "/service-requests/stats", customerToken, nil)
	assert.Equal(t, float64(3), ownStats.body["total"])
}

func TestDeleteEndpoints(t *testing.T) {
	server := newTestServer(t)
	serviceID := createService(t, server)
	requestID := data(t, submitRequest(t, server, serviceID, customerToken))["id"].(string)

	forbidden := doJSON(t, server, http.MethodDelete, "/service-requests/"+requestID, customerToken, nil)
	assert.Equal(t, http.StatusForbidden, forbidden.status)

	deleted := doJSON(t, server, http.MethodDelete, "/service-requests/"+requestID, adminToken, nil)
	require.Equal(t, http.StatusOK, deleted.status)
	assert.Equal(t, map[string]interface{}{"message": "Service request deleted successfully", "id": requestID}, deleted.body["data"])

	missing := doJSON(t, server, http.MethodGet, "/service-requests/"+requestID, adminToken, nil)
	assert.Equal(t, http.StatusBadRequest, missing.status)
	assert.Equal(t, "Service request not found", missing.body["error"])

	svcDeleted := doJSON(t, server, http.MethodDelete, "/services/"+serviceID, adminToken, nil)
	require.Equal(t, http.StatusOK, svcDeleted.status)
	assert.Equal(t, "Service deleted successfully", svcDeleted.body["message"])
	assert.Equal(t, map[string]interface{}{"id": serviceID}, svcDeleted.body["data"])

	gone := doJSON(t, server, http.MethodGet, "/services/"+serviceID, "", nil)
	assert.Equal(t, http.StatusNotFound, gone.status)
	assert.Equal(t, "NOT_FOUND", gone.body["code"])
}

func TestRequestBodyValidation(t *testing.T) {
	server := newTestServer(t)

	req, err := http.NewRequest(http.MethodPost, server.URL+"/services", strings.NewReader(`{"title":"x"}`))
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+adminToken)
	req.Header.Set("Content-Type", "text/plain")
	resp, err := server.Client().Do(req)
	require.NoError(t, err)
	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "Invalid content type. Expected application/json", body["error"])

	req, err = http.NewRequest(http.MethodPost, server.URL+"/service-requests", strings.NewReader(`{"serviceId":`))
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+customerToken)
	req.Header.Set("Content-Type", "application/json; charset=utf-8")
	resp, err = server.Client().Do(req)
	require.NoError(t, err)
	body = nil
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "Invalid JSON payload", body["error"])

	invalidID := doJSON(t, server, http.MethodGet, "/service-requests/not-a-uuid", customerToken, nil)
	assert.Equal(t, http.StatusBadRequest, invalidID.status)
	assert.Equal(t, "Invalid request ID format", invalidID.body["error"])
	assert.Equal(t, map[string]interface{}{"requestId": []interface{}{"Must be a valid UUID"}}, invalidID.body["details"])
}

func TestNonAdminCannotMutateCatalog(t *testing.T) {
	server := newTestServer(t)

	resp := doJSON(t, server, http.MethodPost, "/services", customerToken, birthCertificateBody())
	assert.Equal(t, http.StatusForbidden, resp.status)
	assert.Equal(t, "Admin access required", resp.body["error"])

	anon := doJSON(t, server, http.MethodPost, "/services", "", birthCertificateBody())
	assert.Equal(t, http.StatusUnauthorized, anon.status)
}

func TestMe(t *testing.T) {
	server := newTestServer(t)

	admin := doJSON(t, server, http.MethodGet, "/me", adminToken, nil)
	require.Equal(t, http.StatusOK, admin.status)
	assert.Equal(t, map[string]interface{}{"userId": "user_admin", "isAdmin": true}, admin.body["data"])

	customer := doJSON(t, server, http.MethodGet, "/me", customerToken, nil)
	assert.Equal(t, map[string]interface{}{"userId": "user_jane", "isAdmin": false}, customer.body["data"])
}
