package security

import (
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"strconv"
	"strings"
	"testing"

	"golang.org/x/crypto/pbkdf2"
)

func TestHashPasswordAndVerifySuccess(t *testing.T) {
	password := "correct horse battery staple"

	encoded, err := HashPassword(password)
	if err != nil {
		t.Fatalf("HashPassword returned error: %v", err)
	}

	parts := strings.Split(encoded, ":")
	if len(parts) != 5 {
		t.Fatalf("unexpected encoding format: %q", encoded)
	}
	if parts[0] != AlgorithmSHA256 {
		t.Fatalf("unexpected algorithm: %s", parts[0])
	}
	if parts[1] != strconv.Itoa(DefaultPBKDF2Config().Iterations) {
		t.Fatalf("unexpected iteration count: %s", parts[1])
	}

	ok, err := VerifyPassword(password, encoded)
	if err != nil {
		t.Fatalf("VerifyPassword returned error: %v", err)
	}
	if !ok {
		t.Fatal("VerifyPassword returned false for correct password")
	}
}

func TestVerifyPasswordIncorrectPassword(t *testing.T) {
	encoded, err := HashPassword("correct horse battery staple")
	if err != nil {
		t.Fatalf("HashPassword returned error: %v", err)
	}

	ok, err := VerifyPassword("Tr0ub4dor&3", encoded)
	if err != nil {
		t.Fatalf("VerifyPassword returned error: %v", err)
	}
	if ok {
		t.Fatal("VerifyPassword returned true for incorrect password")
	}
}

func TestVerifyPasswordBitFlippedHash(t *testing.T) {
	encoded, err := HashPassword("correct horse battery staple")
	if err != nil {
		t.Fatalf("HashPassword returned error: %v", err)
	}

	parts := strings.Split(encoded, ":")
	sum, err := base64.StdEncoding.DecodeString(parts[4])
	if err != nil {
		t.Fatalf("decode hash field: %v", err)
	}

	for bit := 0; bit < 8; bit++ {
		mutated := make([]byte, len(sum))
		copy(mutated, sum)
		mutated[0] ^= 1 << bit

		parts[4] = base64.StdEncoding.EncodeToString(mutated)
		ok, err := VerifyPassword("correct horse battery staple", strings.Join(parts, ":"))
		if err != nil {
			t.Fatalf("VerifyPassword returned error for mutated hash: %v", err)
		}
		if ok {
			t.Fatalf("VerifyPassword accepted hash with bit %d flipped", bit)
		}
	}
}

func TestVerifyPasswordBitFlippedSalt(t *testing.T) {
	encoded, err := HashPassword("correct horse battery staple")
	if err != nil {
		t.Fatalf("HashPassword returned error: %v", err)
	}

	parts := strings.Split(encoded, ":")
	salt, err := base64.StdEncoding.DecodeString(parts[3])
	if err != nil {
		t.Fatalf("decode salt field: %v", err)
	}

	salt[0] ^= 0x01
	parts[3] = base64.StdEncoding.EncodeToString(salt)

	ok, err := VerifyPassword("correct horse battery staple", strings.Join(parts, ":"))
	if err != nil {
		t.Fatalf("VerifyPassword returned error for mutated salt: %v", err)
	}
	if ok {
		t.Fatal("VerifyPassword accepted encoding with mutated salt")
	}
}

func TestVerifyPasswordMalformedEncoding(t *testing.T) {
	cases := []string{
		"",
		"not-an-encoding",
		"PBKDF2WithHmacSHA256:64000:24:onlyfourfields",
		"PBKDF2WithHmacSHA256:sixty:24:c2FsdA==:aGFzaA==",
		"PBKDF2WithHmacSHA256:64000:-1:c2FsdA==:aGFzaA==",
		"PBKDF2WithHmacSHA256:64000:24:!!badsalt:aGFzaA==",
		"PBKDF2WithHmacSHA256:64000:24:c2FsdA==:!!badhash",
	}

	for _, encoded := range cases {
		if _, err := VerifyPassword("password", encoded); !errors.Is(err, ErrMalformedEncoding) {
			t.Fatalf("expected ErrMalformedEncoding for %q, got %v", encoded, err)
		}
	}
}

func TestVerifyPasswordHashLengthMismatch(t *testing.T) {
	salt := []byte("0123456789abcdef")
	sum := pbkdf2.Key([]byte("password"), salt, 64000, 24, sha256.New)

	encoded := strings.Join([]string{
		AlgorithmSHA256,
		"64000",
		"32", // declared length disagrees with the 24-byte hash
		base64.StdEncoding.EncodeToString(salt),
		base64.StdEncoding.EncodeToString(sum),
	}, ":")

	if _, err := VerifyPassword("password", encoded); !errors.Is(err, ErrMalformedEncoding) {
		t.Fatalf("expected ErrMalformedEncoding, got %v", err)
	}
}

func TestVerifyPasswordUnsupportedAlgorithm(t *testing.T) {
	encoded := "PBKDF2WithHmacMD5:64000:24:c2FsdA==:aGFzaA=="

	if _, err := VerifyPassword("password", encoded); !errors.Is(err, ErrUnsupportedAlgorithm) {
		t.Fatalf("expected ErrUnsupportedAlgorithm, got %v", err)
	}
}

func TestVerifyPasswordInteropAcrossAlgorithms(t *testing.T) {
	password := "interop-check"

	for _, algorithm := range []string{AlgorithmSHA1, AlgorithmSHA256, AlgorithmSHA512} {
		fn, err := hashFuncFor(algorithm)
		if err != nil {
			t.Fatalf("hashFuncFor(%s): %v", algorithm, err)
		}

		salt := []byte("fixed-salt-value")
		sum := pbkdf2.Key([]byte(password), salt, 2048, 24, fn)
		encoded := strings.Join([]string{
			algorithm,
			"2048",
			"24",
			base64.StdEncoding.EncodeToString(salt),
			base64.StdEncoding.EncodeToString(sum),
		}, ":")

		ok, err := VerifyPassword(password, encoded)
		if err != nil {
			t.Fatalf("VerifyPassword(%s) returned error: %v", algorithm, err)
		}
		if !ok {
			t.Fatalf("VerifyPassword(%s) rejected matching password", algorithm)
		}
	}
}

func TestConfigurePBKDF2OverridesDefaults(t *testing.T) {
	original := CurrentPBKDF2Config()
	newCfg := PBKDF2Config{
		Algorithm:  AlgorithmSHA512,
		Iterations: 100000,
		SaltLength: 32,
		HashLength: 32,
	}

	if err := ConfigurePBKDF2(newCfg); err != nil {
		t.Fatalf("ConfigurePBKDF2 returned error: %v", err)
	}

	encoded, err := HashPassword("change-me")
	if err != nil {
		t.Fatalf("HashPassword returned error: %v", err)
	}

	parts := strings.Split(encoded, ":")
	if parts[0] != AlgorithmSHA512 || parts[1] != "100000" || parts[2] != "32" {
		t.Fatalf("encoded value does not reflect configured parameters: %s", encoded)
	}

	ok, err := VerifyPassword("change-me", encoded)
	if err != nil || !ok {
		t.Fatalf("VerifyPassword failed under new config: ok=%v err=%v", ok, err)
	}

	if err := ConfigurePBKDF2(original); err != nil {
		t.Fatalf("failed to restore original config: %v", err)
	}
}

func TestConfigurePBKDF2RejectsWeakParameters(t *testing.T) {
	cases := []PBKDF2Config{
		{Algorithm: "PBKDF2WithHmacMD5", Iterations: 64000, SaltLength: 24, HashLength: 24},
		{Algorithm: AlgorithmSHA256, Iterations: 10, SaltLength: 24, HashLength: 24},
		{Algorithm: AlgorithmSHA256, Iterations: 64000, SaltLength: 4, HashLength: 24},
		{Algorithm: AlgorithmSHA256, Iterations: 64000, SaltLength: 24, HashLength: 8},
	}

	for _, cfg := range cases {
		if err := ConfigurePBKDF2(cfg); err == nil {
			t.Fatalf("ConfigurePBKDF2 accepted invalid config %+v", cfg)
		}
	}
}
