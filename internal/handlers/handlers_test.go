package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v76/webhook"

	"couponme/api/internal/config"
	"couponme/api/internal/i18n"
	"couponme/api/internal/ids"
	"couponme/api/internal/models"
	"couponme/api/internal/payment"
	"couponme/api/internal/repository/memory"
	"couponme/api/internal/security"
	"couponme/api/internal/service"
	"couponme/api/internal/storage"
)

const testWebhookSecret = "whsec_handlers_test"

type testApp struct {
	t        *testing.T
	router   *gin.Engine
	store    *memory.Store
	category models.Category
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := &config.AppConfig{
		Environment: "test",
		Security: config.SecurityConfig{
			JWTAccessSecret: "handlers-secret",
			JWTAccessTTL:    15 * time.Minute,
			RefreshTTL:      24 * time.Hour,
			MaxSessions:     5,
		},
		Payment: config.PaymentConfig{
			AppURL:      "http://localhost:3000",
			Currency:    "eur",
			PriceCents:  1000,
			ProductName: "CouponMe Annual Membership",
		},
		Membership: config.MembershipConfig{Duration: 365 * 24 * time.Hour},
		Uploads:    config.UploadConfig{MaxBytes: 5 << 20, Prefix: "coupons"},
	}

	store := memory.New()
	stores := service.Stores{
		Users:      store.Users(),
		Sessions:   store.Sessions(),
		Categories: store.Categories(),
		Coupons:    store.Coupons(),
		Uploads:    store.Uploads(),
	}
	services := service.NewSet(cfg, stores, service.Infra{
		Objects:  storage.NewLocalStore(t.TempDir(), "/uploads"),
		Provider: payment.NewStripeProvider("sk_test_x", testWebhookSecret),
	}, zerolog.Nop())

	tr, err := i18n.New()
	require.NoError(t, err)

	router := gin.New()
	NewHandlerSet(zerolog.Nop(), cfg, services, tr, HealthCheck{Name: "store", Ping: store.Ping}).
		Register(router.Group("/api"))

	category := models.Category{ID: ids.New(), NameEn: "Food", NameEl: "Φαγητό", Slug: "food"}
	require.NoError(t, store.Categories().Create(context.Background(), category))

	return &testApp{t: t, router: router, store: store, category: category}
}

type response struct {
	Code int
	Body map[string]any
}

func (a *testApp) do(method, path, token string, body any, headers ...string) response {
	a.t.Helper()
	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case []byte:
		reader = bytes.NewReader(b)
	default:
		raw, err := json.Marshal(b)
		require.NoError(a.t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)

	resp := response{Code: w.Code}
	if w.Body.Len() > 0 {
		require.NoError(a.t, json.Unmarshal(w.Body.Bytes(), &resp.Body), w.Body.String())
	}
	return resp
}

// signup registers through the API and returns the access token and user id.
func (a *testApp) signup(email string, role models.UserRole) (string, string) {
	a.t.Helper()
	resp := a.do(http.MethodPost, "/api/register", "", gin.H{
		"email": email, "password": "password123", "name": "Test User", "role": role,
	})
	require.Equal(a.t, http.StatusCreated, resp.Code, resp.Body)
	user := resp.Body["user"].(map[string]any)
	return resp.Body["accessToken"].(string), user["id"].(string)
}

// admin seeds an administrator directly and logs in.
func (a *testApp) admin() string {
	a.t.Helper()
	hash, err := security.HashPassword("adminpass123")
	require.NoError(a.t, err)
	require.NoError(a.t, a.store.Users().Create(context.Background(), models.User{
		ID: ids.New(), Email: "admin@couponme.test", PasswordHash: hash, Name: "Admin", Role: models.UserRoleAdmin,
	}))

	resp := a.do(http.MethodPost, "/api/auth/login", "", gin.H{"email": "admin@couponme.test", "password": "adminpass123"})
	require.Equal(a.t, http.StatusOK, resp.Code, resp.Body)
	return resp.Body["accessToken"].(string)
}

func (a *testApp) couponBody(categoryID string) gin.H {
	return gin.H{
		"title":              "10% off",
		"description":        "Ten percent off everything in store",
		"discountPercentage": 10,
		"code":               "TEN10",
		"categoryId":         categoryID,
		"expirationDate":     time.Now().Add(30 * 24 * time.Hour).UTC().Format(time.RFC3339),
	}
}

func (a *testApp) createCoupon(token, categoryID string) string {
	a.t.Helper()
	resp := a.do(http.MethodPost, "/api/coupons", token, a.couponBody(categoryID))
	require.Equal(a.t, http.StatusCreated, resp.Code, resp.Body)
	return resp.Body["coupon"].(map[string]any)["id"].(string)
}

func couponIDs(body map[string]any) []string {
	var out []string
	for _, item := range body["coupons"].([]any) {
		out = append(out, item.(map[string]any)["id"].(string))
	}
	return out
}

func TestBusinessSubmitsAndAdminApproves(t *testing.T) {
	app := newTestApp(t)
	bizToken, _ := app.signup("biz@x.com", models.UserRoleBusiness)

	login := app.do(http.MethodPost, "/api/auth/login", "", gin.H{"email": "biz@x.com", "password": "password123"})
	require.Equal(t, http.StatusOK, login.Code)

	created := app.do(http.MethodPost, "/api/coupons", bizToken, app.couponBody(app.category.ID))
	require.Equal(t, http.StatusCreated, created.Code, created.Body)
	coupon := created.Body["coupon"].(map[string]any)
	assert.Equal(t, "PENDING", coupon["status"])
	assert.Equal(t, "TEN10", coupon["code"], "owners see their own code")
	id := coupon["id"].(string)

	public := app.do(http.MethodGet, "/api/coupons", "", nil)
	require.Equal(t, http.StatusOK, public.Code)
	assert.NotContains(t, couponIDs(public.Body), id)

	adminToken := app.admin()
	approved := app.do(http.MethodPost, "/api/coupons/"+id+"/approve", adminToken, gin.H{"status": "APPROVED"})
	require.Equal(t, http.StatusOK, approved.Code, approved.Body)
	assert.Equal(t, "APPROVED", approved.Body["coupon"].(map[string]any)["status"])

	public = app.do(http.MethodGet, "/api/coupons", "", nil)
	require.Equal(t, http.StatusOK, public.Code)
	assert.Contains(t, couponIDs(public.Body), id)

	invalid := app.do(http.MethodPost, "/api/coupons/"+id+"/approve", adminToken, gin.H{"status": "MAYBE"})
	assert.Equal(t, http.StatusBadRequest, invalid.Code)

	notAdmin := app.do(http.MethodPost, "/api/coupons/"+id+"/approve", bizToken, gin.H{"status": "REJECTED"})
	assert.Equal(t, http.StatusForbidden, notAdmin.Code)
}

func TestOtherBusinessCannotEditCoupon(t *testing.T) {
	app := newTestApp(t)
	ownerToken, _ := app.signup("owner@x.com", models.UserRoleBusiness)
	rivalToken, _ := app.signup("rival@x.com", models.UserRoleBusiness)
	id := app.createCoupon(ownerToken, app.category.ID)

	resp := app.do(http.MethodPatch, "/api/coupons/"+id, rivalToken, gin.H{"title": "Hijacked"})
	assert.Equal(t, http.StatusForbidden, resp.Code)

	current := app.do(http.MethodGet, "/api/coupons/"+id, "", nil)
	require.Equal(t, http.StatusOK, current.Code)
	assert.Equal(t, "10% off", current.Body["coupon"].(map[string]any)["title"])

	anonymous := app.do(http.MethodPatch, "/api/coupons/"+id, "", gin.H{"title": "Hijacked"})
	assert.Equal(t, http.StatusUnauthorized, anonymous.Code)

	missing := app.do(http.MethodGet, "/api/coupons/does-not-exist", "", nil)
	assert.Equal(t, http.StatusNotFound, missing.Code)
}

func TestCategoryInUseCannotBeDeleted(t *testing.T) {
	app := newTestApp(t)
	adminToken := app.admin()
	bizToken, _ := app.signup("biz@x.com", models.UserRoleBusiness)

	created := app.do(http.MethodPost, "/api/categories", adminToken, gin.H{"nameEn": "Books", "nameEl": "Βιβλία", "slug": "books"})
	require.Equal(t, http.StatusCreated, created.Code, created.Body)
	categoryID := created.Body["category"].(map[string]any)["id"].(string)

	duplicate := app.do(http.MethodPost, "/api/categories", adminToken, gin.H{"nameEn": "More books", "nameEl": "Βιβλία", "slug": "books"})
	assert.Equal(t, http.StatusBadRequest, duplicate.Code)
	assert.Equal(t, "conflict", duplicate.Body["code"])

	couponID := app.createCoupon(bizToken, categoryID)

	blocked := app.do(http.MethodDelete, "/api/categories/"+categoryID, adminToken, nil)
	require.Equal(t, http.StatusBadRequest, blocked.Code)
	assert.Equal(t, float64(1), blocked.Body["details"].(map[string]any)["count"])
	assert.Contains(t, blocked.Body["error"], "1 coupon")

	removed := app.do(http.MethodDelete, "/api/coupons/"+couponID, bizToken, nil)
	require.Equal(t, http.StatusOK, removed.Code)

	deleted := app.do(http.MethodDelete, "/api/categories/"+categoryID, adminToken, nil)
	assert.Equal(t, http.StatusOK, deleted.Code, deleted.Body)

	again := app.do(http.MethodDelete, "/api/categories/"+categoryID, adminToken, nil)
	assert.Equal(t, http.StatusNotFound, again.Code)
}

func signedWebhook(eventID, userID string) ([]byte, string) {
	payload := []byte(fmt.Sprintf(`{
		"id": %q,
		"object": "event",
		"type": "checkout.session.completed",
		"data": {"object": {"id": "cs_1", "object": "checkout.session", "client_reference_id": %q, "metadata": {"userId": %q}}}
	}`, eventID, userID, userID))
	signed := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload:   payload,
		Secret:    testWebhookSecret,
		Timestamp: time.Now(),
	})
	return payload, signed.Header
}

func TestPaymentWebhookActivatesMembership(t *testing.T) {
	app := newTestApp(t)
	userToken, userID := app.signup("member@x.com", models.UserRoleUser)
	bizToken, _ := app.signup("biz@x.com", models.UserRoleBusiness)
	couponID := app.createCoupon(bizToken, app.category.ID)

	locked := app.do(http.MethodGet, "/api/coupons/"+couponID, userToken, nil)
	require.Equal(t, http.StatusOK, locked.Code)
	assert.Nil(t, locked.Body["coupon"].(map[string]any)["code"])
	assert.Equal(t, true, locked.Body["coupon"].(map[string]any)["codeLocked"])

	unsigned := app.do(http.MethodPost, "/api/webhooks/payment", "", []byte(`{"id":"evt_0"}`))
	assert.Equal(t, http.StatusBadRequest, unsigned.Code)

	payload, signature := signedWebhook("evt_1", userID)
	resp := app.do(http.MethodPost, "/api/webhooks/payment", "", payload, "Stripe-Signature", signature)
	require.Equal(t, http.StatusOK, resp.Code, resp.Body)
	assert.Equal(t, true, resp.Body["received"])

	user, err := app.store.Users().GetByID(context.Background(), userID)
	require.NoError(t, err)
	require.NotNil(t, user.MembershipExpiry)
	assert.WithinDuration(t, time.Now().Add(365*24*time.Hour), *user.MembershipExpiry, time.Minute)

	payload, signature = signedWebhook("evt_2", userID)
	resp = app.do(http.MethodPost, "/api/webhooks/stripe", "", payload, "Stripe-Signature", signature)
	require.Equal(t, http.StatusOK, resp.Code)
	renewed, err := app.store.Users().GetByID(context.Background(), userID)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(365*24*time.Hour), *renewed.MembershipExpiry, time.Minute)

	visible := app.do(http.MethodGet, "/api/coupons/"+couponID, userToken, nil)
	require.Equal(t, http.StatusOK, visible.Code)
	assert.Equal(t, "TEN10", visible.Body["coupon"].(map[string]any)["code"])

	me := app.do(http.MethodGet, "/api/auth/me", userToken, nil)
	require.Equal(t, http.StatusOK, me.Code)
	assert.Equal(t, true, me.Body["user"].(map[string]any)["isMember"])
}

func TestRegisterRoutesIssueSession(t *testing.T) {
	app := newTestApp(t)

	for _, path := range []string{"/api/register", "/api/auth/register"} {
		email := strings.TrimPrefix(strings.ReplaceAll(path, "/", "."), ".") + "@x.com"
		resp := app.do(http.MethodPost, path, "", gin.H{
			"email": email, "password": "password123", "name": "Route Test", "role": "BUSINESS",
		})
		require.Equal(t, http.StatusCreated, resp.Code, resp.Body)
		assert.NotEmpty(t, resp.Body["accessToken"])
		assert.NotEmpty(t, resp.Body["message"])

		me := app.do(http.MethodGet, "/api/auth/me", resp.Body["accessToken"].(string), nil)
		require.Equal(t, http.StatusOK, me.Code, me.Body)
		assert.Equal(t, email, me.Body["user"].(map[string]any)["email"])
		assert.Equal(t, "BUSINESS", me.Body["user"].(map[string]any)["role"])
	}
}

func TestDuplicateEmailRejected(t *testing.T) {
	app := newTestApp(t)
	app.signup("dup@x.com", models.UserRoleUser)

	resp := app.do(http.MethodPost, "/api/register", "", gin.H{
		"email": "DUP@x.com", "password": "password123", "name": "Again", "role": "USER",
	})
	assert.Equal(t, http.StatusBadRequest, resp.Code)
	assert.Equal(t, "conflict", resp.Body["code"])

	greek := app.do(http.MethodPost, "/api/register?locale=el", "", gin.H{
		"email": "dup@x.com", "password": "password123", "name": "Again",
	})
	assert.Equal(t, "Υπάρχει ήδη χρήστης με αυτό το email", greek.Body["error"])
}

func TestAdminEndpoints(t *testing.T) {
	app := newTestApp(t)
	adminToken := app.admin()
	bizToken, bizID := app.signup("biz@x.com", models.UserRoleBusiness)
	userToken, userID := app.signup("user@x.com", models.UserRoleUser)
	app.createCoupon(bizToken, app.category.ID)

	assert.Equal(t, http.StatusForbidden, app.do(http.MethodGet, "/api/admin/stats", userToken, nil).Code)
	assert.Equal(t, http.StatusUnauthorized, app.do(http.MethodGet, "/api/admin/stats", "", nil).Code)

	stats := app.do(http.MethodGet, "/api/admin/stats", adminToken, nil)
	require.Equal(t, http.StatusOK, stats.Code)
	body := stats.Body["stats"].(map[string]any)
	assert.Equal(t, float64(1), body["totalCoupons"])
	assert.Equal(t, float64(1), body["pendingCoupons"])
	assert.Equal(t, float64(1), body["totalUsers"])
	assert.Equal(t, float64(1), body["totalBusinesses"])

	pending := app.do(http.MethodGet, "/api/admin/coupons/pending", adminToken, nil)
	require.Equal(t, http.StatusOK, pending.Code)
	assert.Len(t, pending.Body["coupons"], 1)

	users := app.do(http.MethodGet, "/api/admin/users?role=BUSINESS", adminToken, nil)
	require.Equal(t, http.StatusOK, users.Code)
	listed := users.Body["users"].([]any)
	require.Len(t, listed, 1)
	assert.Equal(t, float64(1), listed[0].(map[string]any)["couponCount"])

	updated := app.do(http.MethodPatch, "/api/admin/users/"+userID, adminToken, gin.H{"membershipExpiry": time.Now().Add(time.Hour).UTC().Format(time.RFC3339)})
	require.Equal(t, http.StatusOK, updated.Code, updated.Body)
	assert.Equal(t, true, updated.Body["user"].(map[string]any)["isMember"])

	deleted := app.do(http.MethodDelete, "/api/admin/users/"+bizID, adminToken, nil)
	require.Equal(t, http.StatusOK, deleted.Code)
	assert.Equal(t, http.StatusUnauthorized, app.do(http.MethodGet, "/api/auth/me", bizToken, nil).Code)

	after := app.do(http.MethodGet, "/api/admin/coupons/pending", adminToken, nil)
	assert.Empty(t, after.Body["coupons"])
}

func TestCheckoutRequiresAuthentication(t *testing.T) {
	app := newTestApp(t)
	resp := app.do(http.MethodPost, "/api/membership/checkout", "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.Code)
}

func TestHealth(t *testing.T) {
	app := newTestApp(t)
	resp := app.do(http.MethodGet, "/api/healthz", "", nil)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "ok", resp.Body["status"])
	assert.Equal(t, "ok", resp.Body["checks"].(map[string]any)["store"])
}
