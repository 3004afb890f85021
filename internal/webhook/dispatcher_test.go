package webhook

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/remitra/remitra/internal/clock"
	"github.com/remitra/remitra/internal/codec"
	"github.com/remitra/remitra/internal/config"
	merchantrepo "github.com/remitra/remitra/internal/merchant/repository"
	payoutdomain "github.com/remitra/remitra/internal/payout/domain"
	"github.com/remitra/remitra/internal/retry"
	"github.com/remitra/remitra/internal/webhook/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var testNow = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

type deliveryRow struct {
	PayoutID     int64
	Payload      string
	Signature    string
	ResponseCode int
	Delivered    bool
	Attempts     int
}

func setupDispatcherDB(t *testing.T) *gorm.DB {
	t.Helper()
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
	return db
}

func insertMerchant(t *testing.T, db *gorm.DB, id int64, url, secret string) {
	t.Helper()
	require.NoError(t, db.Exec(
		`INSERT INTO merchants (id, name, is_active, webhook_url, webhook_secret, created_at, updated_at)
		 VALUES (?, 'Acme Traders', TRUE, ?, ?, ?, ?)`,
		id, url, secret, testNow, testNow,
	).Error)
}

func newTestDispatcher(t *testing.T, db *gorm.DB) *Dispatcher {
	t.Helper()
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	d := NewDispatcher(DispatcherParams{
		DB:        db,
		Log:       zap.NewNop(),
		Cfg:       config.Config{WebhookTimeout: time.Second},
		Merchants: merchantrepo.Provide(db),
		GenID:     node,
		Clock:     clock.NewFakeClock(testNow),
	})
	// Millisecond backoff keeps the exhaustion tests fast.
	d.policy = retry.Policy{MaxAttempts: 3, BaseDelay: time.Millisecond, Factor: 2}
	return d
}

func testPayout(merchantID int64) *payoutdomain.PayoutRequest {
	return &payoutdomain.PayoutRequest{
		ID:         snowflake.ID(42),
		MerchantID: snowflake.ID(merchantID),
		Amount:     50000,
		Currency:   "INR",
		Status:     payoutdomain.StatusCompleted,
		UTRNumber:  "UTR20260301120000",
	}
}

func lastDelivery(t *testing.T, db *gorm.DB) deliveryRow {
	t.Helper()
	var row deliveryRow
	require.NoError(t, db.Raw(
		`SELECT payout_id, payload, signature, response_code, delivered, attempts
		 FROM webhook_deliveries ORDER BY id DESC LIMIT 1`,
	).Scan(&row).Error)
	return row
}

func countDeliveries(t *testing.T, db *gorm.DB) int64 {
	t.Helper()
	var n int64
	require.NoError(t, db.Raw(`SELECT COUNT(1) FROM webhook_deliveries`).Scan(&n).Error)
	return n
}

func TestNotifyDeliversSignedEvent(t *testing.T) {
	db := setupDispatcherDB(t)

	var mu sync.Mutex
	var gotSig, gotEvent string
	var gotBody []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		gotSig = r.Header.Get("X-Webhook-Signature")
		gotEvent = r.Header.Get("X-Webhook-Event")
		gotBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	insertMerchant(t, db, 100, srv.URL, "merchant-secret")
	d := newTestDispatcher(t, db)

	d.Notify(context.Background(), testPayout(100))

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, domain.EventPayoutStatusUpdated, gotEvent)
	require.NotEmpty(t, gotSig)
	require.NoError(t, codec.VerifySignature(gotBody, gotSig, "merchant-secret"))

	var event domain.Event
	require.NoError(t, json.Unmarshal(gotBody, &event))
	assert.Equal(t, "42", event.PayoutID)
	assert.Equal(t, "completed", event.Status)
	assert.Equal(t, "UTR20260301120000", event.UTRNumber)

	records, err := d.Deliveries(context.Background(), snowflake.ID(42))
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.True(t, records[0].Delivered)
	assert.Equal(t, 1, records[0].Attempts)
	assert.Equal(t, http.StatusOK, records[0].ResponseCode)
	assert.Equal(t, snowflake.ID(42), records[0].PayoutID)
}

func TestNotifyRetriesUntilSuccess(t *testing.T) {
	db := setupDispatcherDB(t)

	var mu sync.Mutex
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		calls++
		n := calls
		mu.Unlock()
		if n < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	insertMerchant(t, db, 100, srv.URL, "")
	d := newTestDispatcher(t, db)

	d.Notify(context.Background(), testPayout(100))

	mu.Lock()
	assert.Equal(t, 3, calls)
	mu.Unlock()

	row := lastDelivery(t, db)
	assert.True(t, row.Delivered)
	assert.Equal(t, 3, row.Attempts)
	assert.Empty(t, row.Signature)
}

func TestNotifyExhaustsAfterThreeAttempts(t *testing.T) {
	db := setupDispatcherDB(t)

	var mu sync.Mutex
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		calls++
		mu.Unlock()
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	insertMerchant(t, db, 100, srv.URL, "merchant-secret")
	d := newTestDispatcher(t, db)

	d.Notify(context.Background(), testPayout(100))

	mu.Lock()
	assert.Equal(t, 3, calls)
	mu.Unlock()

	// Exactly one record per notify, delivered=false.
	assert.Equal(t, int64(1), countDeliveries(t, db))
	row := lastDelivery(t, db)
	assert.False(t, row.Delivered)
	assert.Equal(t, 3, row.Attempts)
	assert.Equal(t, http.StatusInternalServerError, row.ResponseCode)
}

func TestNotifySkipsMerchantWithoutURL(t *testing.T) {
	db := setupDispatcherDB(t)
	insertMerchant(t, db, 100, "", "")
	d := newTestDispatcher(t, db)

	d.Notify(context.Background(), testPayout(100))

	assert.Zero(t, countDeliveries(t, db))
}

func TestNotifySkipsUnknownMerchant(t *testing.T) {
	db := setupDispatcherDB(t)
	d := newTestDispatcher(t, db)

	d.Notify(context.Background(), testPayout(999))

	assert.Zero(t, countDeliveries(t, db))
}
