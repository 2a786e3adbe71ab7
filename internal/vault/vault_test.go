package vault

import (
	"errors"
	"strings"
	"testing"
)

const (
	testSecret = "0123456789abcdef0123456789abcdef" // 32 bytes
	testSalt   = "abcdef012345"                     // 12 bytes
)

func TestEncryptDecryptRoundTrip(t *testing.T) {
	v, err := New(testSecret, testSalt)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	message := "Some message to test crypto"
	enc := v.Encrypt(message)
	if enc == message {
		t.Fatal("Encrypt() returned the plaintext")
	}
	dec, err := v.Decrypt(enc)
	if err != nil {
		t.Fatalf("Decrypt() error = %v", err)
	}
	if dec != message {
		t.Errorf("Decrypt() = %v, want %v", dec, message)
	}
	// Decrypting twice must give the same result.
	dec2, err := v.Decrypt(enc)
	if err != nil {
		t.Fatalf("Decrypt() second call error = %v", err)
	}
	if dec2 != message {
		t.Errorf("Decrypt() second call = %v, want %v", dec2, message)
	}
}

func TestRoundTripUnicode(t *testing.T) {
	v, err := New(testSecret, testSalt)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	message := "пароль-超级-secret"
	dec, err := v.Decrypt(v.Encrypt(message))
	if err != nil {
		t.Fatalf("Decrypt() error = %v", err)
	}
	if dec != message {
		t.Errorf("Decrypt() = %v, want %v", dec, message)
	}
}

func TestKeySize(t *testing.T) {
	_, err := New("too short", testSalt)
	var kerr KeySizeError
	if !errors.As(err, &kerr) {
		t.Errorf("New() error = %v, want KeySizeError", err)
	}
	if _, err := New(testSecret+"x", testSalt); err == nil {
		t.Error("New() with oversized key succeeded, want KeySizeError")
	}
}

func TestNonceSize(t *testing.T) {
	_, err := New(testSecret, "short")
	var nerr NonceSizeError
	if !errors.As(err, &nerr) {
		t.Errorf("New() error = %v, want NonceSizeError", err)
	}
	if _, err := New(testSecret, testSalt+"x"); err == nil {
		t.Error("New() with oversized salt succeeded, want NonceSizeError")
	}
}

func TestDecryptRejectsBadBase64(t *testing.T) {
	v, err := New(testSecret, testSalt)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if _, err := v.Decrypt("not base64 at all!!"); err == nil {
		t.Error("Decrypt() of malformed base64 succeeded, want error")
	}
}

func TestDecryptRejectsTamperedCiphertext(t *testing.T) {
	v, err := New(testSecret, testSalt)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	enc := v.Encrypt("password")
	// Flip one character of the encoded payload.
	tampered := []byte(enc)
	if tampered[0] == 'A' {
		tampered[0] = 'B'
	} else {
		tampered[0] = 'A'
	}
	if _, err := v.Decrypt(string(tampered)); err == nil {
		t.Error("Decrypt() of tampered ciphertext succeeded, want error")
	}
}

func TestRandomSalt(t *testing.T) {
	salt := RandomSalt()
	if len(salt) != NonceSize {
		t.Errorf("RandomSalt() length = %d, want %d", len(salt), NonceSize)
	}
	for _, r := range salt {
		if !strings.ContainsRune(saltAlphabet, r) {
			t.Errorf("RandomSalt() contains unexpected rune %q", r)
		}
	}
	if RandomSalt() == salt {
		// 62^12 values make a collision here effectively impossible.
		t.Error("RandomSalt() returned the same value twice")
	}
}

func TestSelfTest(t *testing.T) {
	if err := SelfTest(testSecret); err != nil {
		t.Errorf("SelfTest() error = %v", err)
	}
	if err := SelfTest("wrong length"); err == nil {
		t.Error("SelfTest() with bad secret succeeded, want error")
	}
}
