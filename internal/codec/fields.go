package codec

import "time"

// EncryptPayoutData encrypts the canonical payout field subset. The
// shape is fixed so the partner's counterpart can always decrypt it.
func (c *Codec) EncryptPayoutData(bankCode string, amount int64, accountNumber, ifscCode, beneficiaryName string, ts time.Time) (Envelope, error) {
	return c.Encrypt(map[string]any{
		"amount":           amount,
		"account_number":   accountNumber,
		"ifsc_code":        ifscCode,
		"beneficiary_name": beneficiaryName,
		timestampField:     ts.UTC().Format(time.RFC3339),
	}, bankCode)
}

// EncryptMerchantToken encrypts the canonical merchant token subset.
func (c *Codec) EncryptMerchantToken(bankCode, token, merchantID string, issuedAt, expiresAt time.Time) (Envelope, error) {
	return c.Encrypt(map[string]any{
		"token":       token,
		"merchant_id": merchantID,
		"issued_at":   issuedAt.UTC().Format(time.RFC3339),
		"expires_at":  expiresAt.UTC().Format(time.RFC3339),
	}, bankCode)
}
