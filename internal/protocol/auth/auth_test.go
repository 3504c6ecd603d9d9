package auth

import (
	"crypto/sha1"
	"crypto/sha512"
	"testing"

	"golang.org/x/crypto/pbkdf2"
)

func mustEncrypt(t *testing.T, key, plaintext []byte) []byte {
	t.Helper()
	ct, err := aesCBCEncryptZeroIV(key, plaintext)
	if err != nil {
		t.Fatalf("aesCBCEncryptZeroIV: %v", err)
	}
	return ct
}

func TestComputePhaseTwo12c(t *testing.T) {
	cred := Credentials{Username: "scott", Password: "tiger"}
	vfrData := []byte("0123456789abcdef")
	speedySalt := append(append([]byte{}, vfrData...), []byte(speedyKeySuffix)...)
	passwordKey := pbkdf2.Key([]byte(cred.Password), speedySalt, 4096, 64, sha512.New)
	sum := sha512.Sum512(append(append([]byte{}, passwordKey...), vfrData...))
	passwordHash := sum[:32]

	serverPartA := make([]byte, 32)
	for i := range serverPartA {
		serverPartA[i] = byte(i)
	}
	sessKeyCipher := mustEncrypt(t, passwordHash, serverPartA)

	ch := ServerChallenge{
		Verifier:        Verifier12c,
		VfrData:         vfrData,
		SessKey:         sessKeyCipher,
		PBKDF2VGenCount: 4096,
		PBKDF2SderCount: 3,
		PBKDF2CskSalt:   []byte("saltsaltsaltsalt"),
	}

	resp, err := ComputePhaseTwo(cred, ch)
	if err != nil {
		t.Fatalf("ComputePhaseTwo: %v", err)
	}
	if len(resp.SessKeyClient) == 0 || len(resp.SessKeyClient) > 64 {
		t.Fatalf("unexpected AUTH_SESSKEY_client length %d", len(resp.SessKeyClient))
	}
	if resp.Password == "" {
		t.Fatalf("AUTH_PASSWORD not populated")
	}
	if resp.PBKDF2SpeedyKey == "" || len(resp.PBKDF2SpeedyKey) > 80 {
		t.Fatalf("unexpected AUTH_PBKDF2_SPEEDY_KEY length %d", len(resp.PBKDF2SpeedyKey))
	}
}

func TestComputePhaseTwo11g(t *testing.T) {
	cred := Credentials{Username: "scott", Password: "tiger"}
	vfrData := []byte("0123456789abcdef")
	h := sha1.Sum(append([]byte(cred.Password), vfrData...))
	passwordHash := append(h[:], 0, 0, 0, 0)

	serverPartA := make([]byte, 24)
	sessKeyCipher := mustEncrypt(t, passwordHash, serverPartA)

	ch := ServerChallenge{
		Verifier:        Verifier11g,
		VfrData:         vfrData,
		SessKey:         sessKeyCipher,
		PBKDF2SderCount: 3,
		PBKDF2CskSalt:   []byte("saltsaltsaltsalt"),
	}

	resp, err := ComputePhaseTwo(cred, ch)
	if err != nil {
		t.Fatalf("ComputePhaseTwo: %v", err)
	}
	if resp.PBKDF2SpeedyKey != "" {
		t.Fatalf("11g verifier should not emit AUTH_PBKDF2_SPEEDY_KEY")
	}
	if resp.Password == "" {
		t.Fatalf("AUTH_PASSWORD not populated")
	}
}

func TestComputePhaseTwoBadSessKeyLength(t *testing.T) {
	cred := Credentials{Username: "scott", Password: "tiger"}
	ch := ServerChallenge{
		Verifier: Verifier11g,
		VfrData:  []byte("salt"),
		SessKey:  []byte{1, 2, 3}, // not a multiple of the AES block size
	}
	if _, err := ComputePhaseTwo(cred, ch); err == nil {
		t.Fatalf("expected error for malformed session key")
	}
}
