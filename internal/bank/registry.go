package bank

import (
	"fmt"
	"log"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/remitra/remitra/internal/bank/domain"
	"github.com/remitra/remitra/internal/config"
	"github.com/spf13/viper"
)

// DefaultProfiles is the compiled-in partner table; a banks.yml file
// overrides it and is hot-reloaded.
func DefaultProfiles() []domain.BankProfile {
	return []domain.BankProfile{
		{
			Code:               domain.BankHDFC,
			Name:               "HDFC Bank",
			SupportedMethods:   []domain.Method{domain.MethodBankTransfer, domain.MethodUPI},
			BaseFee:            10,
			PercentFee:         0.004,
			MinAmount:          100,
			MaxAmount:          10_000_000,
			EncryptionRequired: true,
			WebhookEncryption:  true,
			ResponseEncryption: false,
			SignatureMethod:    "HMAC-SHA256",
			EncryptedFields:    []string{"amount", "account_number", "ifsc_code", "beneficiary_name", "timestamp"},
		},
		{
			Code:               domain.BankICICI,
			Name:               "ICICI Bank",
			SupportedMethods:   []domain.Method{domain.MethodBankTransfer, domain.MethodUPI},
			BaseFee:            8,
			PercentFee:         0.0045,
			MinAmount:          100,
			MaxAmount:          500_000,
			EncryptionRequired: true,
			WebhookEncryption:  false,
			ResponseEncryption: false,
			SignatureMethod:    "HMAC-SHA256",
			EncryptedFields:    []string{"account_number", "ifsc_code", "beneficiary_name"},
		},
		{
			Code:               domain.BankAxis,
			Name:               "Axis Bank",
			SupportedMethods:   []domain.Method{domain.MethodBankTransfer, domain.MethodUPI},
			BaseFee:            5,
			PercentFee:         0.005,
			MinAmount:          10,
			MaxAmount:          100_000,
			EncryptionRequired: false,
			WebhookEncryption:  false,
			ResponseEncryption: false,
			SignatureMethod:    "HMAC-SHA256",
			EncryptedFields:    nil,
		},
	}
}

// ProfileRegistry holds the validated partner table behind an
// atomic.Value so reloads never race readers.
type ProfileRegistry struct {
	current atomic.Value // holds map[domain.BankCode]domain.BankProfile
}

// NewProfileRegistry loads defaults, then an optional banks.yml via
// viper with fsnotify hot reload. Invalid profiles are rejected at load
// time; an invalid reload is ignored.
func NewProfileRegistry(cfg config.Config) (*ProfileRegistry, error) {
	registry := &ProfileRegistry{}

	profiles, err := indexProfiles(DefaultProfiles())
	if err != nil {
		return nil, err
	}
	registry.current.Store(profiles)

	v := viper.New()
	v.SetConfigName("banks")
	v.SetConfigType("yml")
	if cfg.BankProfilePath != "" {
		v.AddConfigPath(cfg.BankProfilePath)
	}
	v.AddConfigPath("/etc/remitra")
	v.AddConfigPath(".")
	v.SetEnvPrefix("REMITRA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		return registry, nil
	}

	loaded, err := unmarshalProfiles(v)
	if err != nil {
		return nil, err
	}
	registry.current.Store(loaded)

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		updated, err := unmarshalProfiles(v)
		if err != nil {
			log.Printf("[bank-config] invalid config ignored: %v", err)
			return
		}
		registry.current.Store(updated)
		log.Printf("[bank-config] reloaded from %s", e.Name)
	})

	return registry, nil
}

// NewStaticRegistry builds a registry from fixed profiles, for tests
// and embedded use.
func NewStaticRegistry(profiles []domain.BankProfile) (*ProfileRegistry, error) {
	indexed, err := indexProfiles(profiles)
	if err != nil {
		return nil, err
	}
	registry := &ProfileRegistry{}
	registry.current.Store(indexed)
	return registry, nil
}

func unmarshalProfiles(v *viper.Viper) (map[domain.BankCode]domain.BankProfile, error) {
	var raw struct {
		Banks []domain.BankProfile `mapstructure:"banks"`
	}
	if err := v.Unmarshal(&raw); err != nil {
		return nil, err
	}
	if len(raw.Banks) == 0 {
		return nil, fmt.Errorf("%w: banks list is empty", domain.ErrInvalidProfile)
	}
	return indexProfiles(raw.Banks)
}

func indexProfiles(profiles []domain.BankProfile) (map[domain.BankCode]domain.BankProfile, error) {
	indexed := make(map[domain.BankCode]domain.BankProfile, len(profiles))
	for _, profile := range profiles {
		if err := profile.Validate(); err != nil {
			return nil, err
		}
		if _, dup := indexed[profile.Code]; dup {
			return nil, fmt.Errorf("%w: duplicate code %s", domain.ErrInvalidProfile, profile.Code)
		}
		indexed[profile.Code] = profile
	}
	return indexed, nil
}

func (r *ProfileRegistry) Get(code domain.BankCode) (domain.BankProfile, error) {
	profiles := r.current.Load().(map[domain.BankCode]domain.BankProfile)
	profile, ok := profiles[code]
	if !ok {
		return domain.BankProfile{}, domain.ErrUnknownBank
	}
	return profile, nil
}

func (r *ProfileRegistry) All() []domain.BankProfile {
	profiles := r.current.Load().(map[domain.BankCode]domain.BankProfile)
	out := make([]domain.BankProfile, 0, len(profiles))
	for _, profile := range profiles {
		out = append(out, profile)
	}
	return out
}
