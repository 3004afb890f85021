package domain

import (
	"fmt"
	"strings"
)

// BankCode is the closed set of partner banks.
type BankCode string

const (
	BankHDFC  BankCode = "hdfc"
	BankICICI BankCode = "icici"
	BankAxis  BankCode = "axis"
)

// Method is a payout rail supported by a partner.
type Method string

const (
	MethodBankTransfer Method = "bank_transfer"
	MethodUPI          Method = "upi"
)

// ParseBankCode validates a partner code from config or a webhook path.
func ParseBankCode(raw string) (BankCode, error) {
	code := BankCode(strings.ToLower(strings.TrimSpace(raw)))
	switch code {
	case BankHDFC, BankICICI, BankAxis:
		return code, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownBank, raw)
	}
}

// BankProfile describes a partner bank's capabilities and encryption
// requirements.
type BankProfile struct {
	Code               BankCode `mapstructure:"code"`
	Name               string   `mapstructure:"name"`
	SupportedMethods   []Method `mapstructure:"supported_methods"`
	BaseFee            int64    `mapstructure:"base_fee"`
	PercentFee         float64  `mapstructure:"percent_fee"`
	MinAmount          int64    `mapstructure:"min_amount"`
	MaxAmount          int64    `mapstructure:"max_amount"`
	EncryptionRequired bool     `mapstructure:"encryption_required"`
	WebhookEncryption  bool     `mapstructure:"webhook_encryption"`
	ResponseEncryption bool     `mapstructure:"response_encryption"`
	SignatureMethod    string   `mapstructure:"signature_method"`
	EncryptedFields    []string `mapstructure:"encrypted_fields"`
}

func (p BankProfile) Validate() error {
	if _, err := ParseBankCode(string(p.Code)); err != nil {
		return err
	}
	if p.MinAmount < 0 || p.MaxAmount <= 0 || p.MinAmount >= p.MaxAmount {
		return fmt.Errorf("%w: %s amount bounds [%d, %d]", ErrInvalidProfile, p.Code, p.MinAmount, p.MaxAmount)
	}
	if len(p.SupportedMethods) == 0 {
		return fmt.Errorf("%w: %s has no supported methods", ErrInvalidProfile, p.Code)
	}
	for _, m := range p.SupportedMethods {
		if m != MethodBankTransfer && m != MethodUPI {
			return fmt.Errorf("%w: %s method %q", ErrInvalidProfile, p.Code, m)
		}
	}
	if p.EncryptionRequired && len(p.EncryptedFields) == 0 {
		return fmt.Errorf("%w: %s requires encryption but lists no fields", ErrInvalidProfile, p.Code)
	}
	return nil
}

func (p BankProfile) Supports(m Method) bool {
	for _, supported := range p.SupportedMethods {
		if supported == m {
			return true
		}
	}
	return false
}

func (p BankProfile) EncryptsField(name string) bool {
	for _, field := range p.EncryptedFields {
		if field == name {
			return true
		}
	}
	return false
}
