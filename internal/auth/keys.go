package auth

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"io"

	"github.com/aegis-identity/aegis/internal"
	userdm "github.com/aegis-identity/aegis/internal/core/datamodel/user"
)

const rsaKeyBits = 2048

// KeyService mints and loads per-user RSA signing keys. Private keys are
// persisted AES-GCM-encrypted under the system symmetric key and are only
// decrypted for the duration of a single signing operation.
type KeyService struct {
	repo      RepositoryAPI
	systemKey []byte
}

func NewKeyService(repo RepositoryAPI, systemKey []byte) *KeyService {
	return &KeyService{repo: repo, systemKey: systemKey}
}

// MintSignatureKey generates a fresh key pair for the user and stores it.
func (k *KeyService) MintSignatureKey(ctx context.Context, userID int64) error {
	priv, err := rsa.GenerateKey(rand.Reader, rsaKeyBits)
	if err != nil {
		return internal.NewInternalError("failed to generate signature key").WithCause(err)
	}

	encrypted, err := k.seal(x509.MarshalPKCS1PrivateKey(priv))
	if err != nil {
		return internal.NewInternalError("failed to encrypt signature key").WithCause(err)
	}

	pubDER, err := x509.MarshalPKIXPublicKey(&priv.PublicKey)
	if err != nil {
		return internal.NewInternalError("failed to encode public key").WithCause(err)
	}
	pubPEM := pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: pubDER})

	return k.repo.CreateSignatureKey(ctx, &userdm.SignatureKey{
		UserID:              userID,
		PublicKeyPEM:        string(pubPEM),
		EncryptedPrivateKey: encrypted,
	})
}

// SigningKey decrypts and parses the user's private key. Callers must not
// retain the returned key beyond the signing operation.
func (k *KeyService) SigningKey(ctx context.Context, userID int64) (*rsa.PrivateKey, error) {
	row, err := k.repo.GetSignatureKey(ctx, userID)
	if err != nil {
		return nil, err
	}
	if row == nil {
		return nil, internal.NewNotFoundError("signature key not found", internal.ErrCodeSignatureKeyNotFound)
	}

	der, err := k.open(row.EncryptedPrivateKey)
	if err != nil {
		return nil, internal.NewInternalError("failed to decrypt signature key").WithCause(err)
	}
	priv, err := x509.ParsePKCS1PrivateKey(der)
	if err != nil {
		return nil, internal.NewInternalError("failed to parse signature key").WithCause(err)
	}
	return priv, nil
}

// VerificationKey parses the user's stored public key.
func (k *KeyService) VerificationKey(ctx context.Context, userID int64) (*rsa.PublicKey, error) {
	row, err := k.repo.GetSignatureKey(ctx, userID)
	if err != nil {
		return nil, err
	}
	if row == nil {
		return nil, internal.NewNotFoundError("signature key not found", internal.ErrCodeSignatureKeyNotFound)
	}

	block, _ := pem.Decode([]byte(row.PublicKeyPEM))
	if block == nil {
		return nil, internal.NewInternalError("malformed stored public key")
	}
	pub, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		return nil, internal.NewInternalError("failed to parse public key").WithCause(err)
	}
	rsaPub, ok := pub.(*rsa.PublicKey)
	if !ok {
		return nil, internal.NewInternalError("stored public key is not RSA")
	}
	return rsaPub, nil
}

// seal encrypts plaintext with AES-GCM; the nonce is prepended to the
// ciphertext.
func (k *KeyService) seal(plaintext []byte) ([]byte, error) {
	gcm, err := k.aead()
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, err
	}
	return gcm.Seal(nonce, nonce, plaintext, nil), nil
}

func (k *KeyService) open(sealed []byte) ([]byte, error) {
	gcm, err := k.aead()
	if err != nil {
		return nil, err
	}
	if len(sealed) < gcm.NonceSize() {
		return nil, errors.New("ciphertext shorter than nonce")
	}
	nonce, ciphertext := sealed[:gcm.NonceSize()], sealed[gcm.NonceSize():]
	return gcm.Open(nil, nonce, ciphertext, nil)
}

func (k *KeyService) aead() (cipher.AEAD, error) {
	block, err := aes.NewCipher(k.systemKey)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}
