// Package codec implements per-partner field encryption and HMAC
// signing for bank submissions and merchant webhooks.
package codec

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"strings"

	"github.com/remitra/remitra/internal/config"
	"go.uber.org/zap"
	"golang.org/x/crypto/pbkdf2"
)

const (
	// SchemeAESCBC is the partner-facing algorithm identifier carried
	// on envelopes and bank profiles.
	SchemeAESCBC = "AES-256-CBC"

	keyLength      = 32
	ivLength       = 16
	kdfIterations  = 10000
	sharedKeyRef   = "shared"
	SignatureHMAC  = "HMAC-SHA256"
	timestampField = "timestamp"
)

var (
	ErrMissingKey       = errors.New("encryption key material missing")
	ErrDecryptFailed    = errors.New("decrypt failed")
	ErrInvalidEnvelope  = errors.New("invalid envelope")
	ErrInvalidSignature = errors.New("invalid signature")
)

// Envelope is the single ciphertext container used for both field-level
// and whole-payload encryption.
type Envelope struct {
	Scheme     string `json:"scheme"`
	Ciphertext string `json:"ciphertext"`
	IV         string `json:"iv"`
	KeyRef     string `json:"key_ref"`
}

// Codec derives one 256-bit key per configured bank secret at
// construction; keys are immutable for the process lifetime.
type Codec struct {
	log  *zap.Logger
	keys map[string][]byte
}

func New(cfg config.Config, log *zap.Logger) *Codec {
	keys := make(map[string][]byte, len(cfg.BankSecrets)+1)
	salt := []byte(cfg.EncryptionSalt)
	if cfg.BankSharedKey != "" {
		keys[sharedKeyRef] = deriveKey(cfg.BankSharedKey, salt)
	}
	for code, secret := range cfg.BankSecrets {
		keys[strings.ToLower(code)] = deriveKey(secret, salt)
	}
	return &Codec{
		log:  log.Named("codec"),
		keys: keys,
	}
}

func deriveKey(secret string, salt []byte) []byte {
	return pbkdf2.Key([]byte(secret), salt, kdfIterations, keyLength, sha256.New)
}

func (c *Codec) key(bankCode string) ([]byte, string, error) {
	bankCode = strings.ToLower(strings.TrimSpace(bankCode))
	if key, ok := c.keys[bankCode]; ok {
		return key, bankCode, nil
	}
	if key, ok := c.keys[sharedKeyRef]; ok {
		return key, sharedKeyRef, nil
	}
	return nil, "", ErrMissingKey
}

// Encrypt serializes data as JSON and encrypts it under the bank's key
// with a fresh random IV.
func (c *Codec) Encrypt(data map[string]any, bankCode string) (Envelope, error) {
	key, keyRef, err := c.key(bankCode)
	if err != nil {
		c.log.Warn("encrypt rejected, no key material", zap.String("bank_code", bankCode))
		return Envelope{}, err
	}

	plaintext, err := json.Marshal(data)
	if err != nil {
		return Envelope{}, err
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return Envelope{}, err
	}
	iv := make([]byte, ivLength)
	if _, err := rand.Read(iv); err != nil {
		return Envelope{}, err
	}

	padded := pkcs7Pad(plaintext, aes.BlockSize)
	ciphertext := make([]byte, len(padded))
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(ciphertext, padded)

	return Envelope{
		Scheme:     SchemeAESCBC,
		Ciphertext: base64.StdEncoding.EncodeToString(ciphertext),
		IV:         base64.StdEncoding.EncodeToString(iv),
		KeyRef:     keyRef,
	}, nil
}

// Decrypt is the exact inverse of Encrypt. Malformed envelopes and key
// mismatches fail closed; no partial payload is ever returned.
func (c *Codec) Decrypt(env Envelope, bankCode string) (map[string]any, error) {
	if env.Scheme != "" && env.Scheme != SchemeAESCBC {
		return nil, ErrInvalidEnvelope
	}
	key, _, err := c.key(bankCode)
	if err != nil {
		return nil, err
	}

	ciphertext, err := base64.StdEncoding.DecodeString(env.Ciphertext)
	if err != nil {
		return nil, ErrInvalidEnvelope
	}
	iv, err := base64.StdEncoding.DecodeString(env.IV)
	if err != nil {
		return nil, ErrInvalidEnvelope
	}
	if len(iv) != ivLength || len(ciphertext) == 0 || len(ciphertext)%aes.BlockSize != 0 {
		return nil, ErrInvalidEnvelope
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	plaintext := make([]byte, len(ciphertext))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(plaintext, ciphertext)

	plaintext, err = pkcs7Unpad(plaintext, aes.BlockSize)
	if err != nil {
		return nil, ErrDecryptFailed
	}

	var out map[string]any
	if err := json.Unmarshal(plaintext, &out); err != nil {
		return nil, ErrDecryptFailed
	}
	return out, nil
}

// Sign computes a hex HMAC-SHA256 over body.
func Sign(body []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	_, _ = mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature checks a hex HMAC-SHA256 signature in constant time.
func VerifySignature(body []byte, signature, secret string) error {
	expected := Sign(body, secret)
	if !hmac.Equal([]byte(expected), []byte(strings.TrimSpace(signature))) {
		return ErrInvalidSignature
	}
	return nil
}

func pkcs7Pad(data []byte, blockSize int) []byte {
	padding := blockSize - len(data)%blockSize
	return append(data, bytes.Repeat([]byte{byte(padding)}, padding)...)
}

func pkcs7Unpad(data []byte, blockSize int) ([]byte, error) {
	if len(data) == 0 || len(data)%blockSize != 0 {
		return nil, ErrDecryptFailed
	}
	padding := int(data[len(data)-1])
	if padding == 0 || padding > blockSize || padding > len(data) {
		return nil, ErrDecryptFailed
	}
	for _, b := range data[len(data)-padding:] {
		if int(b) != padding {
			return nil, ErrDecryptFailed
		}
	}
	return data[:len(data)-padding], nil
}
