package codec

import (
	"encoding/base64"
	"testing"
	"time"

	"github.com/remitra/remitra/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestCodec(t *testing.T) *Codec {
	t.Helper()
	return New(config.Config{
		EncryptionSalt: "test-salt",
		BankSharedKey:  "shared-secret",
		BankSecrets: map[string]string{
			"hdfc": "hdfc-secret",
		},
	}, zap.NewNop())
}

func TestEncryptDecryptRoundtrip(t *testing.T) {
	c := newTestCodec(t)

	data := map[string]any{
		"amount":           float64(600000),
		"account_number":   "1234567890123456",
		"ifsc_code":        "HDFC0001234",
		"beneficiary_name": "Acme Traders",
	}
	env, err := c.Encrypt(data, "hdfc")
	require.NoError(t, err)
	assert.Equal(t, SchemeAESCBC, env.Scheme)
	assert.Equal(t, "hdfc", env.KeyRef)
	assert.NotEmpty(t, env.Ciphertext)
	assert.NotEmpty(t, env.IV)

	got, err := c.Decrypt(env, "hdfc")
	require.NoError(t, err)
	assert.Equal(t, data, got)
}

func TestEncryptFreshIVPerCall(t *testing.T) {
	c := newTestCodec(t)
	data := map[string]any{"amount": float64(1000)}

	first, err := c.Encrypt(data, "hdfc")
	require.NoError(t, err)
	second, err := c.Encrypt(data, "hdfc")
	require.NoError(t, err)

	assert.NotEqual(t, first.IV, second.IV)
	assert.NotEqual(t, first.Ciphertext, second.Ciphertext)
}

func TestEncryptFallsBackToSharedKey(t *testing.T) {
	c := newTestCodec(t)

	env, err := c.Encrypt(map[string]any{"amount": float64(1)}, "icici")
	require.NoError(t, err)
	assert.Equal(t, "shared", env.KeyRef)

	_, err = c.Decrypt(env, "icici")
	require.NoError(t, err)
}

func TestEncryptFailsWithoutKeyMaterial(t *testing.T) {
	c := New(config.Config{EncryptionSalt: "test-salt"}, zap.NewNop())

	_, err := c.Encrypt(map[string]any{"amount": float64(1)}, "hdfc")
	assert.ErrorIs(t, err, ErrMissingKey)
}

func TestDecryptFailsClosedOnTamper(t *testing.T) {
	c := newTestCodec(t)
	env, err := c.Encrypt(map[string]any{"amount": float64(42)}, "hdfc")
	require.NoError(t, err)

	raw, err := base64.StdEncoding.DecodeString(env.Ciphertext)
	require.NoError(t, err)
	raw[0] ^= 0x01
	env.Ciphertext = base64.StdEncoding.EncodeToString(raw)

	got, err := c.Decrypt(env, "hdfc")
	assert.Error(t, err)
	assert.Nil(t, got)
}

func TestDecryptRejectsMalformedEnvelope(t *testing.T) {
	c := newTestCodec(t)

	cases := []Envelope{
		{Scheme: "AES-128-GCM", Ciphertext: "x", IV: "y"},
		{Scheme: SchemeAESCBC, Ciphertext: "%%%", IV: "AAAA"},
		{Scheme: SchemeAESCBC, Ciphertext: base64.StdEncoding.EncodeToString([]byte("short")), IV: base64.StdEncoding.EncodeToString(make([]byte, 16))},
		{Scheme: SchemeAESCBC, Ciphertext: base64.StdEncoding.EncodeToString(make([]byte, 32)), IV: base64.StdEncoding.EncodeToString(make([]byte, 8))},
	}
	for _, env := range cases {
		_, err := c.Decrypt(env, "hdfc")
		assert.Error(t, err)
	}
}

func TestDecryptWrongKeyFailsClosed(t *testing.T) {
	c := newTestCodec(t)
	env, err := c.Encrypt(map[string]any{"amount": float64(42)}, "hdfc")
	require.NoError(t, err)

	other := New(config.Config{
		EncryptionSalt: "test-salt",
		BankSecrets:    map[string]string{"hdfc": "different-secret"},
	}, zap.NewNop())

	got, err := other.Decrypt(env, "hdfc")
	assert.Error(t, err)
	assert.Nil(t, got)
}

func TestSignVerify(t *testing.T) {
	body := []byte(`{"event":"payout.status_updated","payout_id":"42"}`)

	sig := Sign(body, "webhook-secret")
	require.NoError(t, VerifySignature(body, sig, "webhook-secret"))
}

func TestVerifyRejectsMutatedSignature(t *testing.T) {
	body := []byte(`{"payout_id":"42"}`)
	sig := Sign(body, "webhook-secret")

	// Flip one hex character.
	mutated := []byte(sig)
	if mutated[0] == 'a' {
		mutated[0] = 'b'
	} else {
		mutated[0] = 'a'
	}

	assert.ErrorIs(t, VerifySignature(body, string(mutated), "webhook-secret"), ErrInvalidSignature)
	assert.ErrorIs(t, VerifySignature(body, sig, "wrong-secret"), ErrInvalidSignature)
	assert.ErrorIs(t, VerifySignature([]byte(`{"payout_id":"43"}`), sig, "webhook-secret"), ErrInvalidSignature)
}

func TestEncryptPayoutDataCanonicalFields(t *testing.T) {
	c := newTestCodec(t)
	ts := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	env, err := c.EncryptPayoutData("hdfc", 600000, "1234567890123456", "HDFC0001234", "Acme Traders", ts)
	require.NoError(t, err)

	got, err := c.Decrypt(env, "hdfc")
	require.NoError(t, err)

	assert.Len(t, got, 5)
	assert.Equal(t, float64(600000), got["amount"])
	assert.Equal(t, "1234567890123456", got["account_number"])
	assert.Equal(t, "HDFC0001234", got["ifsc_code"])
	assert.Equal(t, "Acme Traders", got["beneficiary_name"])
	assert.Equal(t, ts.Format(time.RFC3339), got["timestamp"])
}

func TestEncryptMerchantTokenCanonicalFields(t *testing.T) {
	c := newTestCodec(t)
	issued := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	expires := issued.Add(15 * time.Minute)

	env, err := c.EncryptMerchantToken("hdfc", "tok_7f3a9c", "100", issued, expires)
	require.NoError(t, err)

	got, err := c.Decrypt(env, "hdfc")
	require.NoError(t, err)

	assert.Len(t, got, 4)
	assert.Equal(t, "tok_7f3a9c", got["token"])
	assert.Equal(t, "100", got["merchant_id"])
	assert.Equal(t, issued.Format(time.RFC3339), got["issued_at"])
	assert.Equal(t, expires.Format(time.RFC3339), got["expires_at"])
}
