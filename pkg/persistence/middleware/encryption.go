package middleware

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/aretw0/flowgraph/pkg/domain"
	"github.com/aretw0/flowgraph/pkg/ports"
)

// envelopeKey is the passport key holding the sealed payload.
const envelopeKey = "__encrypted__"

// EncryptionConfig holds the keys for encryption and decryption.
type EncryptionConfig struct {
	// ActiveKey is the key used for encrypting new data.
	// Must be 32 bytes for AES-256.
	ActiveKey []byte

	// FallbackKeys is a list of old keys to try when decryption fails.
	// This enables zero-downtime key rotation.
	FallbackKeys [][]byte
}

// sealed is the encrypted part of a session.
type sealed struct {
	Passport    domain.Passport    `json:"passport"`
	Breadcrumbs domain.Breadcrumbs `json:"breadcrumbs"`
}

type encryptionMiddleware struct {
	next   ports.SessionStore
	config EncryptionConfig
}

// NewEncryptionMiddleware creates a middleware that seals passport and
// breadcrumbs with AES-GCM. Identifiers, flow version and timestamps stay
// readable so the store can still index and list sessions.
func NewEncryptionMiddleware(config EncryptionConfig) Middleware {
	if len(config.ActiveKey) != 32 {
		panic("active key must be 32 bytes (AES-256)")
	}
	return func(next ports.SessionStore) ports.SessionStore {
		return &encryptionMiddleware{
			next:   next,
			config: config,
		}
	}
}

func (m *encryptionMiddleware) SaveSession(ctx context.Context, session *domain.Session) error {
	plainText, err := json.Marshal(sealed{Passport: session.Passport, Breadcrumbs: session.Breadcrumbs})
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	ciphertext, err := encrypt(plainText, m.config.ActiveKey)
	if err != nil {
		return fmt.Errorf("failed to encrypt session: %w", err)
	}

	envelope := *session
	envelope.Passport = domain.Passport{Data: map[string]any{
		envelopeKey: base64.StdEncoding.EncodeToString(ciphertext),
	}}
	envelope.Breadcrumbs = domain.Breadcrumbs{}
	if session.LockedAt != nil {
		t := *session.LockedAt
		envelope.LockedAt = &t
	}

	return m.next.SaveSession(ctx, &envelope)
}

func (m *encryptionMiddleware) GetSession(ctx context.Context, sessionID string) (*domain.Session, error) {
	envelope, err := m.next.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	encryptedStr, ok := envelope.Passport.Data[envelopeKey].(string)
	if !ok {
		// Fail secure: a plain session under an encrypting store is an error.
		return nil, errors.New("session is missing encrypted data envelope")
	}

	ciphertext, err := base64.StdEncoding.DecodeString(encryptedStr)
	if err != nil {
		return nil, fmt.Errorf("failed to decode ciphertext base64: %w", err)
	}

	plainText, err := decryptWithRotation(ciphertext, m.config.ActiveKey, m.config.FallbackKeys)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt session: %w", err)
	}

	var payload sealed
	if err := json.Unmarshal(plainText, &payload); err != nil {
		return nil, fmt.Errorf("failed to unmarshal decrypted session: %w", err)
	}

	out := *envelope
	out.Passport = payload.Passport
	out.Breadcrumbs = payload.Breadcrumbs
	if out.Passport.Data == nil {
		out.Passport.Data = make(map[string]any)
	}
	if out.Breadcrumbs == nil {
		out.Breadcrumbs = make(domain.Breadcrumbs)
	}
	return &out, nil
}

// UpdateBreadcrumbs re-seals the whole payload. It is a read-modify-write;
// callers serialise it per session with session.Manager.
func (m *encryptionMiddleware) UpdateBreadcrumbs(ctx context.Context, sessionID string, breadcrumbs domain.Breadcrumbs, flowVersion int) error {
	session, err := m.GetSession(ctx, sessionID)
	if err != nil {
		return err
	}
	session.Breadcrumbs = breadcrumbs.Clone()
	if session.Breadcrumbs == nil {
		session.Breadcrumbs = make(domain.Breadcrumbs)
	}
	session.FlowVersion = flowVersion
	return m.SaveSession(ctx, session)
}

func (m *encryptionMiddleware) DeleteSession(ctx context.Context, sessionID string) error {
	return m.next.DeleteSession(ctx, sessionID)
}

func (m *encryptionMiddleware) ListSessions(ctx context.Context) ([]string, error) {
	return m.next.ListSessions(ctx)
}

// Helpers

func encrypt(plaintext []byte, key []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, err
	}

	return gcm.Seal(nonce, nonce, plaintext, nil), nil
}

func decryptWithRotation(ciphertext []byte, activeKey []byte, fallbackKeys [][]byte) ([]byte, error) {
	if plain, err := decrypt(ciphertext, activeKey); err == nil {
		return plain, nil
	}

	for _, key := range fallbackKeys {
		if plain, err := decrypt(ciphertext, key); err == nil {
			return plain, nil
		}
	}

	return nil, errors.New("decryption failed with all available keys")
}

func decrypt(ciphertext []byte, key []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}

	if len(ciphertext) < gcm.NonceSize() {
		return nil, errors.New("ciphertext too short")
	}

	nonce := ciphertext[:gcm.NonceSize()]
	ciphertextBytes := ciphertext[gcm.NonceSize():]

	return gcm.Open(nil, nonce, ciphertextBytes, nil)
}
