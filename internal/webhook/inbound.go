package webhook

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/remitra/remitra/internal/bank"
	bankdomain "github.com/remitra/remitra/internal/bank/domain"
	"github.com/remitra/remitra/internal/codec"
	"github.com/remitra/remitra/internal/config"
	payoutdomain "github.com/remitra/remitra/internal/payout/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type InboundParams struct {
	fx.In

	Log       *zap.Logger
	Cfg       config.Config
	Profiles  *bank.ProfileRegistry
	Codec     *codec.Codec
	PayoutSvc payoutdomain.Service
}

// Inbound ingests partner-bank status callbacks: unwraps the encrypted
// envelope when the partner's profile requires it, checks the HMAC when
// a shared secret is configured, and hands the terminal status to the
// payout service.
type Inbound struct {
	log       *zap.Logger
	secrets   map[string]string
	profiles  *bank.ProfileRegistry
	codec     *codec.Codec
	payoutSvc payoutdomain.Service
}

func NewInbound(p InboundParams) *Inbound {
	return &Inbound{
		log:       p.Log.Named("webhook.inbound"),
		secrets:   p.Cfg.BankSecrets,
		profiles:  p.Profiles,
		codec:     p.Codec,
		payoutSvc: p.PayoutSvc,
	}
}

type encryptedBody struct {
	EncryptedData string `json:"encrypted_data"`
	IV            string `json:"iv"`
}

// Ingest processes one inbound callback body for a partner.
func (i *Inbound) Ingest(ctx context.Context, bankCode string, body []byte, signature string) error {
	code, err := bankdomain.ParseBankCode(bankCode)
	if err != nil {
		return err
	}
	profile, err := i.profiles.Get(code)
	if err != nil {
		return err
	}

	if secret, ok := i.secrets[string(code)]; ok && secret != "" {
		if err := codec.VerifySignature(body, signature, secret); err != nil {
			i.log.Warn("inbound webhook signature rejected", zap.String("bank_code", string(code)))
			return err
		}
	} else if signature == "" {
		// Unsigned partner; accepted but visible in the logs.
		i.log.Info("inbound webhook accepted without signature", zap.String("bank_code", string(code)))
	}

	payload := body
	if profile.WebhookEncryption {
		var wrapped encryptedBody
		if err := json.Unmarshal(body, &wrapped); err != nil {
			return codec.ErrInvalidEnvelope
		}
		decrypted, err := i.codec.Decrypt(codec.Envelope{
			Scheme:     codec.SchemeAESCBC,
			Ciphertext: wrapped.EncryptedData,
			IV:         wrapped.IV,
			KeyRef:     string(code),
		}, string(code))
		if err != nil {
			return err
		}
		payload, err = json.Marshal(decrypted)
		if err != nil {
			return err
		}
	}

	var update payoutdomain.BankStatusUpdate
	if err := json.Unmarshal(payload, &update); err != nil {
		return payoutdomain.ErrInvalidRequest
	}
	if !payoutdomain.ValidStatus(update.Status) {
		return fmt.Errorf("%w: unknown status %q", payoutdomain.ErrInvalidRequest, update.Status)
	}

	return i.payoutSvc.ApplyBankStatus(ctx, update)
}
