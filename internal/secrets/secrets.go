// Package secrets encrypts and decrypts configuration values such as the
// directory bind password and the ticket system token.
//
// Encrypted values are written as "{AES256}" followed by the base64 of the
// AES-256-CBC ciphertext. The key file holds 48 raw bytes: a 32-byte key
// followed by a 16-byte IV.
package secrets

import (
	"bytes"
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"io"
	"os"
	"strings"

	"github.com/agentstation/dirsync/pkg/constants"
	"github.com/agentstation/dirsync/pkg/errors"
	"github.com/agentstation/dirsync/pkg/logging"
)

// Prefix marks an encrypted value.
const Prefix = "{AES256}"

const (
	keySize    = 32
	ivSize     = aes.BlockSize
	secretSize = keySize + ivSize
)

// Cipher encrypts and decrypts prefixed values with one key.
type Cipher struct {
	block cipher.Block
	iv    []byte
}

// New returns a Cipher for a 48-byte secret.
func New(secret []byte) (*Cipher, error) {
	if len(secret) != secretSize {
		return nil, errors.NewValidationError("secrets.key-file", len(secret), "key material must be 48 bytes")
	}
	block, err := aes.NewCipher(secret[:keySize])
	if err != nil {
		return nil, err
	}
	return &Cipher{block: block, iv: bytes.Clone(secret[keySize:])}, nil
}

// LoadOrCreate reads the key file at path, generating it with read-only
// permissions when it does not exist.
func LoadOrCreate(ctx context.Context, path string) (*Cipher, error) {
	if path == "" {
		path = constants.DefaultKeyFile
	}
	logger := logging.FromContext(ctx).With().Str("path", path).Logger()

	secret, err := os.ReadFile(path)
	switch {
	case err == nil:
		logger.Debug().Msg("Loaded secret key file")
		return New(secret)
	case !os.IsNotExist(err):
		return nil, errors.WrapIO("read", path, err)
	}

	secret = make([]byte, secretSize)
	if _, err := io.ReadFull(rand.Reader, secret); err != nil {
		return nil, errors.WrapIO("generate", path, err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, constants.ReadOnlyFilePermissions)
	if err != nil {
		return nil, errors.WrapIO("create", path, err)
	}
	if _, err := f.Write(secret); err != nil {
		f.Close()
		return nil, errors.WrapIO("write", path, err)
	}
	if err := f.Close(); err != nil {
		return nil, errors.WrapIO("close", path, err)
	}
	logger.Info().Msg("Created secret key file")
	return New(secret)
}

// Encrypt returns the prefixed ciphertext of plain.
func (c *Cipher) Encrypt(plain string) string {
	data := pad([]byte(plain))
	out := make([]byte, len(data))
	cipher.NewCBCEncrypter(c.block, c.iv).CryptBlocks(out, data)
	return Prefix + base64.StdEncoding.EncodeToString(out)
}

// Decrypt returns the plain text of a prefixed value. Values without the
// prefix are returned unchanged.
func (c *Cipher) Decrypt(value string) (string, error) {
	if !IsEncrypted(value) {
		return value, nil
	}
	data, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(value, Prefix))
	if err != nil {
		return "", errors.NewParseError("base64", "", "encrypted value is not valid base64", err)
	}
	if len(data) == 0 || len(data)%aes.BlockSize != 0 {
		return "", errors.NewValidationError("secret", nil, "ciphertext is not a whole number of blocks")
	}
	out := make([]byte, len(data))
	cipher.NewCBCDecrypter(c.block, c.iv).CryptBlocks(out, data)
	plain, err := unpad(out)
	if err != nil {
		return "", err
	}
	return string(plain), nil
}

// IsEncrypted reports whether value carries the encryption prefix.
func IsEncrypted(value string) bool {
	return strings.HasPrefix(value, Prefix)
}

func pad(b []byte) []byte {
	n := aes.BlockSize - len(b)%aes.BlockSize
	return append(bytes.Clone(b), bytes.Repeat([]byte{byte(n)}, n)...)
}

func unpad(b []byte) ([]byte, error) {
	n := int(b[len(b)-1])
	if n == 0 || n > aes.BlockSize || n > len(b) {
		return nil, errors.NewValidationError("secret", nil, "invalid padding, wrong key?")
	}
	for _, p := range b[len(b)-n:] {
		if int(p) != n {
			return nil, errors.NewValidationError("secret", nil, "invalid padding, wrong key?")
		}
	}
	return b[:len(b)-n], nil
}
