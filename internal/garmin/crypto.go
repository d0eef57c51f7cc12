package garmin

import "encoding/base64"

const cipherKeySize = 32

// Cipher obfuscates the stored credential pair before it crosses the trust
// boundary into the database. It is a reversible XOR stream keyed from the
// configured secret, not authenticated encryption; its contract is only that
// Decrypt(Encrypt(s)) == s for the same key.
type Cipher struct {
	key [cipherKeySize]byte
}

// NewCipher derives the cipher key from the configured secret: the first 32
// bytes, right-padded with '0'.
func NewCipher(secret string) Cipher {
	var c Cipher
	for i := 0; i < cipherKeySize; i++ {
		if i < len(secret) {
			c.key[i] = secret[i]
		} else {
			c.key[i] = '0'
		}
	}
	return c
}

// Encrypt returns the base64 form of the XORed plaintext.
func (c Cipher) Encrypt(plaintext string) string {
	raw := []byte(plaintext)
	out := make([]byte, len(raw))
	for i, b := range raw {
		out[i] = b ^ c.key[i%cipherKeySize]
	}
	return base64.StdEncoding.EncodeToString(out)
}

// Decrypt reverses Encrypt.
func (c Cipher) Decrypt(ciphertext string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return "", err
	}
	out := make([]byte, len(raw))
	for i, b := range raw {
		out[i] = b ^ c.key[i%cipherKeySize]
	}
	return string(out), nil
}
