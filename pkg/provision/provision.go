package provision

import (
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/hkdf"
)

// DeviceKeySize is the size of the derived device access key in bytes.
const DeviceKeySize = 32

// deviceKeyInfo is the HKDF info label for device access keys.
// Changing it invalidates every key derived so far.
const deviceKeyInfo = "edgetwin device key v1"

// Provisioning errors.
var (
	ErrMissingEnrollmentKey = errors.New("missing enrollment key")
	ErrMissingDeviceID      = errors.New("missing device ID")
)

// NewDeviceID generates a fresh device identifier.
func NewDeviceID() string {
	return "edgetwin-" + uuid.New().String()
}

// LoadOrCreateDeviceID returns the device identity persisted at path,
// generating and persisting a fresh one on first run.
func LoadOrCreateDeviceID(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err == nil {
		if id := strings.TrimSpace(string(data)); id != "" {
			return id, nil
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return "", fmt.Errorf("reading device identity: %w", err)
	}

	id := NewDeviceID()
	if err := os.WriteFile(path, []byte(id+"\n"), 0o600); err != nil {
		return "", fmt.Errorf("persisting device identity: %w", err)
	}
	return id, nil
}

// DecodeEnrollmentKey parses a base64-encoded fleet enrollment key as
// distributed by the hub.
func DecodeEnrollmentKey(s string) ([]byte, error) {
	if s == "" {
		return nil, ErrMissingEnrollmentKey
	}
	key, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("decoding enrollment key: %w", err)
	}
	if len(key) == 0 {
		return nil, ErrMissingEnrollmentKey
	}
	return key, nil
}

// DeriveDeviceKey derives the per-device access key from the fleet
// enrollment key. The same inputs always derive the same key.
func DeriveDeviceKey(enrollmentKey []byte, deviceID string) ([]byte, error) {
	if len(enrollmentKey) == 0 {
		return nil, ErrMissingEnrollmentKey
	}
	if deviceID == "" {
		return nil, ErrMissingDeviceID
	}

	hkdfReader := hkdf.New(sha256.New, enrollmentKey, []byte(deviceID), []byte(deviceKeyInfo))

	key := make([]byte, DeviceKeySize)
	if _, err := io.ReadFull(hkdfReader, key); err != nil {
		return nil, fmt.Errorf("failed to derive device key: %w", err)
	}
	return key, nil
}

// Credentials returns the broker username and password for a device.
// The username is the device ID; the password is the base64-encoded
// derived access key.
func Credentials(enrollmentKey []byte, deviceID string) (username, password string, err error) {
	key, err := DeriveDeviceKey(enrollmentKey, deviceID)
	if err != nil {
		return "", "", err
	}
	return deviceID, base64.StdEncoding.EncodeToString(key), nil
}
