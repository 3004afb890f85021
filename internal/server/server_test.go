package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/remitra/remitra/internal/bank"
	"github.com/remitra/remitra/internal/clock"
	"github.com/remitra/remitra/internal/codec"
	"github.com/remitra/remitra/internal/config"
	merchantrepo "github.com/remitra/remitra/internal/merchant/repository"
	payoutdomain "github.com/remitra/remitra/internal/payout/domain"
	"github.com/remitra/remitra/internal/webhook"
	webhookdomain "github.com/remitra/remitra/internal/webhook/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type stubPayoutService struct {
	payoutdomain.Service

	createErr error
	getErr    error
	cancelErr error
	applied   []payoutdomain.BankStatusUpdate
	payout    *payoutdomain.PayoutRequest
}

func (s *stubPayoutService) Create(ctx context.Context, req payoutdomain.CreatePayoutRequest) (*payoutdomain.PayoutRequest, error) {
	if s.createErr != nil {
		return nil, s.createErr
	}
	return s.payout, nil
}

func (s *stubPayoutService) GetByID(ctx context.Context, id string) (*payoutdomain.PayoutRequest, error) {
	if s.getErr != nil {
		return nil, s.getErr
	}
	return s.payout, nil
}

func (s *stubPayoutService) List(ctx context.Context, req payoutdomain.ListPayoutRequest) (payoutdomain.ListPayoutResponse, error) {
	return payoutdomain.ListPayoutResponse{Payouts: []payoutdomain.PayoutRequest{*s.payout}, Total: 1, Page: req.Page, Limit: req.Limit}, nil
}

func (s *stubPayoutService) Cancel(ctx context.Context, id string) (*payoutdomain.PayoutRequest, error) {
	if s.cancelErr != nil {
		return nil, s.cancelErr
	}
	return s.payout, nil
}

func (s *stubPayoutService) Retry(ctx context.Context, id string) (*payoutdomain.PayoutRequest, error) {
	return s.payout, nil
}

func (s *stubPayoutService) ApplyBankStatus(ctx context.Context, update payoutdomain.BankStatusUpdate) error {
	s.applied = append(s.applied, update)
	return nil
}

func newTestServer(t *testing.T, svc payoutdomain.Service) (*Server, *gorm.DB) {
	t.Helper()
	cfg := config.Config{EncryptionSalt: "test-salt", HTTPAddr: ":0"}
	profiles, err := bank.NewStaticRegistry(bank.DefaultProfiles())
	require.NoError(t, err)

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.Exec(`
		CREATE TABLE merchants (
			id INTEGER PRIMARY KEY,
			name TEXT NOT NULL,
			is_active BOOLEAN NOT NULL DEFAULT TRUE,
			webhook_url TEXT,
			webhook_secret TEXT,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL
		)
	`).Error)
	require.NoError(t, db.Exec(`
		CREATE TABLE webhook_deliveries (
			id INTEGER PRIMARY KEY,
			payout_id INTEGER NOT NULL,
			payload TEXT NOT NULL,
			signature TEXT,
			response_code INTEGER NOT NULL DEFAULT 0,
			delivered BOOLEAN NOT NULL DEFAULT FALSE,
			response_body TEXT,
			attempts INTEGER NOT NULL DEFAULT 0,
			created_at DATETIME NOT NULL
		)
	`).Error)

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	dispatcher := webhook.NewDispatcher(webhook.DispatcherParams{
		DB:        db,
		Log:       zap.NewNop(),
		Cfg:       cfg,
		Merchants: merchantrepo.Provide(db),
		GenID:     node,
		Clock:     clock.NewSystemClock(),
	})

	inbound := webhook.NewInbound(webhook.InboundParams{
		Log:       zap.NewNop(),
		Cfg:       cfg,
		Profiles:  profiles,
		Codec:     codec.New(cfg, zap.NewNop()),
		PayoutSvc: svc,
	})
	return New(Params{
		Cfg:        cfg,
		Log:        zap.NewNop(),
		PayoutSvc:  svc,
		Dispatcher: dispatcher,
		Inbound:    inbound,
	}), db
}

func stubPayout() *payoutdomain.PayoutRequest {
	return &payoutdomain.PayoutRequest{
		ID:         snowflake.ID(42),
		MerchantID: snowflake.ID(100),
		Amount:     50000,
		Currency:   "INR",
		Status:     payoutdomain.StatusPending,
	}
}

func doRequest(t *testing.T, s *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	w := httptest.NewRecorder()
	s.Engine().ServeHTTP(w, req)
	return w
}

func TestCreatePayoutReturns201(t *testing.T) {
	svc := &stubPayoutService{payout: stubPayout()}
	s, _ := newTestServer(t, svc)

	w := doRequest(t, s, http.MethodPost, "/v1/payouts", `{
		"merchant_id": "100",
		"amount": 50000,
		"method": "bank_transfer",
		"beneficiary_name": "Acme Traders",
		"account_number": "1234567890123456",
		"ifsc_code": "HDFC0001234"
	}`)

	require.Equal(t, http.StatusCreated, w.Code)
	var got payoutdomain.PayoutRequest
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, snowflake.ID(42), got.ID)
}

func TestCreatePayoutRejectsMalformedBody(t *testing.T) {
	svc := &stubPayoutService{payout: stubPayout()}
	s, _ := newTestServer(t, svc)

	w := doRequest(t, s, http.MethodPost, "/v1/payouts", `{"amount": -5}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCreatePayoutMapsInactiveMerchant(t *testing.T) {
	svc := &stubPayoutService{createErr: payoutdomain.ErrMerchantInactive}
	s, _ := newTestServer(t, svc)

	w := doRequest(t, s, http.MethodPost, "/v1/payouts", `{
		"merchant_id": "200",
		"amount": 50000,
		"method": "bank_transfer",
		"beneficiary_name": "Acme Traders"
	}`)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestGetPayoutNotFound(t *testing.T) {
	svc := &stubPayoutService{getErr: payoutdomain.ErrNotFound}
	s, _ := newTestServer(t, svc)

	w := doRequest(t, s, http.MethodGet, "/v1/payouts/999", "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	var resp struct {
		Error struct {
			Type string `json:"type"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "not_found", resp.Error.Type)
}

func TestListPayoutsRequiresMerchantID(t *testing.T) {
	svc := &stubPayoutService{payout: stubPayout()}
	s, _ := newTestServer(t, svc)

	w := doRequest(t, s, http.MethodGet, "/v1/payouts", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doRequest(t, s, http.MethodGet, "/v1/payouts?merchant_id=100", "")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestListDeliveriesReturnsHistory(t *testing.T) {
	svc := &stubPayoutService{payout: stubPayout()}
	s, db := newTestServer(t, svc)

	require.NoError(t, db.Exec(
		`INSERT INTO webhook_deliveries (id, payout_id, payload, signature, response_code, delivered, response_body, attempts, created_at)
		 VALUES (1, 42, '{"event":"payout.status_updated"}', '', 200, TRUE, '', 1, ?)`,
		time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	).Error)

	w := doRequest(t, s, http.MethodGet, "/v1/payouts/42/deliveries", "")
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Deliveries []webhookdomain.DeliveryRecord `json:"deliveries"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Deliveries, 1)
	assert.Equal(t, snowflake.ID(42), resp.Deliveries[0].PayoutID)
	assert.True(t, resp.Deliveries[0].Delivered)
	assert.Equal(t, 1, resp.Deliveries[0].Attempts)
}

func TestListDeliveriesUnknownPayout(t *testing.T) {
	svc := &stubPayoutService{getErr: payoutdomain.ErrNotFound}
	s, _ := newTestServer(t, svc)

	w := doRequest(t, s, http.MethodGet, "/v1/payouts/999/deliveries", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCancelConflictMapsTo409(t *testing.T) {
	svc := &stubPayoutService{cancelErr: payoutdomain.ErrInvalidStatus}
	s, _ := newTestServer(t, svc)

	w := doRequest(t, s, http.MethodPost, "/v1/payouts/42/cancel", "")
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestBankWebhookIngests(t *testing.T) {
	svc := &stubPayoutService{payout: stubPayout()}
	s, _ := newTestServer(t, svc)

	body, err := json.Marshal(payoutdomain.BankStatusUpdate{
		PayoutID:  "42",
		Status:    payoutdomain.StatusCompleted,
		UTRNumber: "UTR20260301120000",
		Timestamp: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	w := doRequest(t, s, http.MethodPost, "/v1/webhooks/bank/axis", string(body))
	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, svc.applied, 1)
	assert.Equal(t, "42", svc.applied[0].PayoutID)
}

func TestBankWebhookUnknownBank(t *testing.T) {
	svc := &stubPayoutService{payout: stubPayout()}
	s, _ := newTestServer(t, svc)

	w := doRequest(t, s, http.MethodPost, "/v1/webhooks/bank/sbi", `{}`)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Empty(t, svc.applied)
}

func TestHealthz(t *testing.T) {
	svc := &stubPayoutService{payout: stubPayout()}
	s, _ := newTestServer(t, svc)

	w := doRequest(t, s, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, w.Code)
}
