package security

import (
	"crypto/rand"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"hash"
	"strconv"
	"strings"
	"sync"

	"golang.org/x/crypto/pbkdf2"
)

// Supported algorithm identifiers as they appear in the first field of a
// stored encoding.
const (
	AlgorithmSHA1   = "PBKDF2WithHmacSHA1"
	AlgorithmSHA256 = "PBKDF2WithHmacSHA256"
	AlgorithmSHA512 = "PBKDF2WithHmacSHA512"
)

var (
	// ErrMalformedEncoding indicates the stored encoding could not be parsed
	// into its five fields.
	ErrMalformedEncoding = errors.New("pbkdf2: malformed password encoding")
	// ErrUnsupportedAlgorithm indicates the encoding names an algorithm this
	// verifier cannot execute. Callers should treat this as a system fault,
	// not a failed credential.
	ErrUnsupportedAlgorithm = errors.New("pbkdf2: unsupported algorithm")

	errInvalidConfig = errors.New("pbkdf2: invalid configuration")
)

// PBKDF2Config defines the parameters used when encoding new passwords.
// Verification always honors the parameters embedded in the stored value.
type PBKDF2Config struct {
	Algorithm  string
	Iterations int
	SaltLength int
	HashLength int
}

var (
	defaultPBKDF2Config = PBKDF2Config{
		Algorithm:  AlgorithmSHA256,
		Iterations: 64000,
		SaltLength: 24,
		HashLength: 24,
	}

	activePBKDF2Config = defaultPBKDF2Config
	pbkdf2ConfigMu     sync.RWMutex
)

// DefaultPBKDF2Config returns the library default encoding configuration.
func DefaultPBKDF2Config() PBKDF2Config {
	return defaultPBKDF2Config
}

// CurrentPBKDF2Config returns the currently active encoding configuration.
func CurrentPBKDF2Config() PBKDF2Config {
	pbkdf2ConfigMu.RLock()
	defer pbkdf2ConfigMu.RUnlock()
	return activePBKDF2Config
}

// ConfigurePBKDF2 sets the active encoding configuration after validation.
func ConfigurePBKDF2(cfg PBKDF2Config) error {
	if err := validatePBKDF2Config(cfg); err != nil {
		return err
	}

	pbkdf2ConfigMu.Lock()
	activePBKDF2Config = cfg
	pbkdf2ConfigMu.Unlock()
	return nil
}

func validatePBKDF2Config(cfg PBKDF2Config) error {
	if _, err := hashFuncFor(cfg.Algorithm); err != nil {
		return fmt.Errorf("%w: %v", errInvalidConfig, err)
	}
	if cfg.Iterations < 1000 {
		return fmt.Errorf("%w: iterations must be at least 1000", errInvalidConfig)
	}
	if cfg.SaltLength < 8 {
		return fmt.Errorf("%w: salt length must be at least 8 bytes", errInvalidConfig)
	}
	if cfg.HashLength < 16 {
		return fmt.Errorf("%w: hash length must be at least 16 bytes", errInvalidConfig)
	}
	return nil
}

// HashPassword encodes the password with the active configuration.
// Format: <algorithm>:<iterations>:<hashLength>:<salt>:<hash> with salt and
// hash base64-encoded. The same five fields drive verification, so encodings
// survive configuration changes.
func HashPassword(password string) (string, error) {
	cfg := CurrentPBKDF2Config()

	h, err := hashFuncFor(cfg.Algorithm)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnsupportedAlgorithm, err)
	}

	salt := make([]byte, cfg.SaltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("pbkdf2: generate salt: %w", err)
	}

	sum := pbkdf2.Key([]byte(password), salt, cfg.Iterations, cfg.HashLength, h)

	encoded := strings.Join([]string{
		cfg.Algorithm,
		strconv.Itoa(cfg.Iterations),
		strconv.Itoa(cfg.HashLength),
		base64.StdEncoding.EncodeToString(salt),
		base64.StdEncoding.EncodeToString(sum),
	}, ":")

	return encoded, nil
}

// VerifyPassword compares the candidate against a stored five-field encoding.
// It returns (false, nil) only for a genuine mismatch; parse failures and
// unsupported algorithms surface as errors so callers can distinguish a wrong
// password from a broken verifier.
func VerifyPassword(candidate, encoded string) (bool, error) {
	iterations, hashFn, salt, expected, err := decodeEncoding(encoded)
	if err != nil {
		return false, err
	}

	computed := pbkdf2.Key([]byte(candidate), salt, iterations, len(expected), hashFn)
	return subtle.ConstantTimeCompare(computed, expected) == 1, nil
}

func decodeEncoding(encoded string) (int, func() hash.Hash, []byte, []byte, error) {
	if strings.TrimSpace(encoded) == "" {
		return 0, nil, nil, nil, ErrMalformedEncoding
	}

	parts := strings.Split(encoded, ":")
	if len(parts) != 5 {
		return 0, nil, nil, nil, fmt.Errorf("%w: expected 5 fields, got %d", ErrMalformedEncoding, len(parts))
	}

	hashFn, err := hashFuncFor(parts[0])
	if err != nil {
		return 0, nil, nil, nil, fmt.Errorf("%w: %v", ErrUnsupportedAlgorithm, err)
	}

	iterations, err := strconv.Atoi(parts[1])
	if err != nil || iterations <= 0 {
		return 0, nil, nil, nil, fmt.Errorf("%w: bad iteration count %q", ErrMalformedEncoding, parts[1])
	}

	declaredLen, err := strconv.Atoi(parts[2])
	if err != nil || declaredLen <= 0 {
		return 0, nil, nil, nil, fmt.Errorf("%w: bad hash length %q", ErrMalformedEncoding, parts[2])
	}

	salt, err := base64.StdEncoding.DecodeString(parts[3])
	if err != nil {
		return 0, nil, nil, nil, fmt.Errorf("%w: decode salt: %v", ErrMalformedEncoding, err)
	}

	expected, err := base64.StdEncoding.DecodeString(parts[4])
	if err != nil {
		return 0, nil, nil, nil, fmt.Errorf("%w: decode hash: %v", ErrMalformedEncoding, err)
	}

	if len(expected) != declaredLen {
		return 0, nil, nil, nil, fmt.Errorf("%w: hash length field %d does not match hash of %d bytes", ErrMalformedEncoding, declaredLen, len(expected))
	}

	return iterations, hashFn, salt, expected, nil
}

func hashFuncFor(algorithm string) (func() hash.Hash, error) {
	switch algorithm {
	case AlgorithmSHA1:
		return sha1.New, nil
	case AlgorithmSHA256:
		return sha256.New, nil
	case AlgorithmSHA512:
		return sha512.New, nil
	default:
		return nil, fmt.Errorf("unknown algorithm %q", algorithm)
	}
}
