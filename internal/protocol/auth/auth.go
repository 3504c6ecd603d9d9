// Package auth computes the verifier-driven challenge/response used in
// phase two of the authentication handshake: PBKDF2/SHA-512 (12c) or
// SHA-1 (11g) password hashing, AES-CBC session-key exchange, and the
// OAuth2 bearer-token variant. It mirrors the teacher's per-mechanism
// struct-with-prepare/decode-methods shape (authscrampbkdf2sha256.go,
// authscramsha256.go) generalized from HANA's SCRAM mechanisms to
// Oracle's 11g/12c verifiers, and reuses the same
// golang.org/x/crypto/pbkdf2 dependency for key derivation.
package auth

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha1"
	"crypto/sha512"
	"encoding/hex"
	"fmt"
	"strings"

	"golang.org/x/crypto/pbkdf2"
)

// Verifier identifies which password-hashing scheme the server
// announced in its phase-one response.
type Verifier int

const (
	Verifier11g Verifier = iota
	Verifier12c
)

// Credentials is the caller-supplied username/password pair.
type Credentials struct {
	Username string
	Password string
}

// ServerChallenge carries the fields the server returns in its
// phase-one Parameter message.
type ServerChallenge struct {
	Verifier        Verifier
	VfrData         []byte // AUTH_VFR_DATA, the password salt
	SessKey         []byte // AUTH_SESSKEY, AES-CBC encrypted
	PBKDF2VGenCount int    // AUTH_PBKDF2_VGEN_COUNT (12c only)
	PBKDF2SderCount int    // AUTH_PBKDF2_SDER_COUNT
	PBKDF2CskSalt   []byte // AUTH_PBKDF2_CSK_SALT
}

// PhaseTwoResponse is the set of KV pairs to send back as the
// authentication-phase-two request body.
type PhaseTwoResponse struct {
	SessKeyClient    string // AUTH_SESSKEY_client
	Password         string // AUTH_PASSWORD
	PBKDF2SpeedyKey  string // AUTH_PBKDF2_SPEEDY_KEY, 12c only
}

const speedyKeySuffix = "AUTH_PBKDF2_SPEEDY_KEY"

// ComputePhaseTwo derives the phase-two KV pairs from the caller's
// credentials and the server's challenge.
func ComputePhaseTwo(cred Credentials, ch ServerChallenge) (PhaseTwoResponse, error) {
	var passwordKey []byte
	var passwordHash []byte
	var keyLen int

	switch ch.Verifier {
	case Verifier12c:
		salt := append(append([]byte{}, ch.VfrData...), []byte(speedyKeySuffix)...)
		passwordKey = pbkdf2.Key([]byte(cred.Password), salt, ch.PBKDF2VGenCount, 64, sha512.New)
		sum := sha512.Sum512(append(append([]byte{}, passwordKey...), ch.VfrData...))
		passwordHash = sum[:32]
		keyLen = 32
	case Verifier11g:
		h := sha1.Sum(append([]byte(cred.Password), ch.VfrData...))
		passwordHash = append(h[:], 0, 0, 0, 0)
		keyLen = 24
	default:
		return PhaseTwoResponse{}, fmt.Errorf("tnscore: unknown verifier %d", ch.Verifier)
	}

	sessionKeyPartA, err := aesCBCDecryptZeroIV(passwordHash, ch.SessKey)
	if err != nil {
		return PhaseTwoResponse{}, fmt.Errorf("tnscore: decrypting server session key: %w", err)
	}
	sessionKeyPartB := make([]byte, 32)
	if _, err := rand.Read(sessionKeyPartB); err != nil {
		return PhaseTwoResponse{}, err
	}

	sessKeyClientCipher, err := aesCBCEncryptZeroIV(passwordHash, sessionKeyPartB)
	if err != nil {
		return PhaseTwoResponse{}, err
	}
	sessKeyClient := strings.ToUpper(hex.EncodeToString(sessKeyClientCipher))
	if len(sessKeyClient) > 64 {
		sessKeyClient = sessKeyClient[:64]
	}

	if len(sessionKeyPartA) < keyLen || len(sessionKeyPartB) < keyLen {
		return PhaseTwoResponse{}, fmt.Errorf("tnscore: session key shorter than required %d bytes", keyLen)
	}
	derivedKeyInput := strings.ToUpper(hex.EncodeToString(sessionKeyPartB[:keyLen]) + hex.EncodeToString(sessionKeyPartA[:keyLen]))
	derivedKey := pbkdf2.Key([]byte(derivedKeyInput), ch.PBKDF2CskSalt, ch.PBKDF2SderCount, keyLen, sha512.New)

	pwRandom := make([]byte, 16)
	if _, err := rand.Read(pwRandom); err != nil {
		return PhaseTwoResponse{}, err
	}
	pwCipher, err := aesCBCEncryptZeroIV(derivedKey, append(pwRandom, []byte(cred.Password)...))
	if err != nil {
		return PhaseTwoResponse{}, err
	}

	resp := PhaseTwoResponse{
		SessKeyClient: sessKeyClient,
		Password:      strings.ToUpper(hex.EncodeToString(pwCipher)),
	}

	if ch.Verifier == Verifier12c {
		skRandom := make([]byte, 16)
		if _, err := rand.Read(skRandom); err != nil {
			return PhaseTwoResponse{}, err
		}
		skCipher, err := aesCBCEncryptZeroIV(derivedKey, append(skRandom, passwordKey...))
		if err != nil {
			return PhaseTwoResponse{}, err
		}
		speedy := strings.ToUpper(hex.EncodeToString(skCipher))
		if len(speedy) > 80 {
			speedy = speedy[:80]
		}
		resp.PBKDF2SpeedyKey = speedy
	}

	return resp, nil
}

// aesCBCEncryptZeroIV encrypts plaintext with a zero IV, padding with
// PKCS#7 to the AES block size. Oracle's verifier exchange always uses
// a zero IV since the session key itself supplies the randomness.
func aesCBCEncryptZeroIV(key, plaintext []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	padded := pkcs7Pad(plaintext, block.BlockSize())
	out := make([]byte, len(padded))
	iv := make([]byte, block.BlockSize())
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(out, padded)
	return out, nil
}

// aesCBCDecryptZeroIV reverses aesCBCEncryptZeroIV, including its
// PKCS#7 unpadding.
func aesCBCDecryptZeroIV(key, ciphertext []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	if len(ciphertext)%block.BlockSize() != 0 {
		return nil, fmt.Errorf("tnscore: ciphertext not a multiple of the block size")
	}
	out := make([]byte, len(ciphertext))
	iv := make([]byte, block.BlockSize())
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(out, ciphertext)
	return pkcs7Unpad(out)
}

func pkcs7Pad(b []byte, blockSize int) []byte {
	padLen := blockSize - len(b)%blockSize
	padded := make([]byte, len(b)+padLen)
	copy(padded, b)
	for i := len(b); i < len(padded); i++ {
		padded[i] = byte(padLen)
	}
	return padded
}

func pkcs7Unpad(b []byte) ([]byte, error) {
	if len(b) == 0 {
		return nil, fmt.Errorf("tnscore: empty PKCS#7 payload")
	}
	padLen := int(b[len(b)-1])
	if padLen == 0 || padLen > len(b) {
		return nil, fmt.Errorf("tnscore: invalid PKCS#7 padding")
	}
	return b[:len(b)-padLen], nil
}
