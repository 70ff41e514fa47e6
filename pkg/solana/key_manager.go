package solana

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/blocto/solana-go-sdk/types"
)

// KeyStoreEntry represents an encrypted escrow keystore entry
type KeyStoreEntry struct {
	Address      string `json:"address"`
	EncryptedKey string `json:"encrypted_key"`
	Version      int    `json:"version"`
}

// KeyManager handles escrow wallet generation, encryption and storage.
// Each arena gets a dedicated escrow wallet holding its reward pool; the
// payout transaction flow lives elsewhere and only needs the keystore.
type KeyManager struct {
	keystoreDir string
}

// NewKeyManager creates a KeyManager writing to keystoreDir (defaults to
// configs/keystore when empty).
func NewKeyManager(keystoreDir string) *KeyManager {
	if keystoreDir == "" {
		keystoreDir = "configs/keystore"
	}
	return &KeyManager{keystoreDir: keystoreDir}
}

// GenerateEscrowWallet generates a new Solana key pair for an arena escrow
func (km *KeyManager) GenerateEscrowWallet() (*types.Account, error) {
	account := types.NewAccount()
	return &account, nil
}

// deriveKey derives a 32-byte AES-256 key from the password
func deriveKey(password string) []byte {
	hash := sha256.Sum256([]byte(password))
	return hash[:]
}

// EncryptPrivateKey encrypts a private key using AES-256-GCM
func (km *KeyManager) EncryptPrivateKey(privateKey []byte, password string) (string, error) {
	key := deriveKey(password)
	block, err := aes.NewCipher(key)
	if err != nil {
		return "", fmt.Errorf("failed to create cipher: %w", err)
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", fmt.Errorf("failed to create GCM: %w", err)
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}

	// Nonce and ciphertext are stored together
	ciphertext := gcm.Seal(nonce, nonce, privateKey, nil)
	return base64.StdEncoding.EncodeToString(ciphertext), nil
}

// DecryptPrivateKey decrypts a private key using AES-256-GCM
func (km *KeyManager) DecryptPrivateKey(encryptedKey string, password string) ([]byte, error) {
	ciphertext, err := base64.StdEncoding.DecodeString(encryptedKey)
	if err != nil {
		return nil, fmt.Errorf("failed to decode base64: %w", err)
	}

	key := deriveKey(password)
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}

	if len(ciphertext) < gcm.NonceSize() {
		return nil, errors.New("ciphertext too short")
	}

	nonce := ciphertext[:gcm.NonceSize()]
	ciphertext = ciphertext[gcm.NonceSize():]

	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt: %w", err)
	}

	return plaintext, nil
}

// SaveKeyStoreEntry encrypts and persists an escrow account, keyed by its
// base58 address.
func (km *KeyManager) SaveKeyStoreEntry(account *types.Account, password string) error {
	encrypted, err := km.EncryptPrivateKey(account.PrivateKey, password)
	if err != nil {
		return fmt.Errorf("failed to encrypt private key: %w", err)
	}

	address := account.PublicKey.ToBase58()
	entry := KeyStoreEntry{
		Address:      address,
		EncryptedKey: encrypted,
		Version:      1,
	}

	jsonData, err := json.MarshalIndent(entry, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal keystore entry: %w", err)
	}

	if err := os.MkdirAll(km.keystoreDir, 0700); err != nil {
		return fmt.Errorf("failed to create keystore directory: %w", err)
	}

	filename := filepath.Join(km.keystoreDir, address+".json")
	if err := os.WriteFile(filename, jsonData, 0600); err != nil {
		return fmt.Errorf("failed to write keystore entry to file: %w", err)
	}

	return nil
}

// LoadKeyStoreEntry loads and decrypts an escrow account by address
func (km *KeyManager) LoadKeyStoreEntry(address string, password string) (*types.Account, error) {
	filename := filepath.Join(km.keystoreDir, address+".json")

	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read keystore entry: %w", err)
	}

	var entry KeyStoreEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, fmt.Errorf("failed to unmarshal keystore entry: %w", err)
	}

	if entry.Address != address {
		return nil, fmt.Errorf("address mismatch: expected %s, got %s", address, entry.Address)
	}

	privateKey, err := km.DecryptPrivateKey(entry.EncryptedKey, password)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt private key: %w", err)
	}

	account, err := types.AccountFromBytes(privateKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create account from private key: %w", err)
	}

	return &account, nil
}
