package discovery

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Service constants for mDNS.
const (
	// ServiceType is the DNS-SD service type for running agents.
	ServiceType = "_edgetwin._tcp"

	// Domain is the mDNS domain.
	Domain = "local"

	// DefaultPort is the port announced when the agent has none of its
	// own to offer.
	DefaultPort = 8443

	// MaxInstanceNameLen is the DNS label limit.
	MaxInstanceNameLen = 63
)

// TXT record key constants.
const (
	TXTKeyDeviceID  = "DI" // Device ID
	TXTKeyFirmware  = "FW" // Firmware version (optional)
	TXTKeyBoard     = "BD" // Board backend (optional)
	TXTKeyTelemetry = "TL" // Telemetry enabled, "1" or "0"
)

// Discovery errors.
var (
	ErrMissingDeviceID = errors.New("missing device ID")
	ErrNotAdvertising  = errors.New("not advertising")
)

// Info describes the agent announced over mDNS.
type Info struct {
	// DeviceID identifies the agent. Required.
	DeviceID string

	// Firmware is the agent's firmware version.
	Firmware string

	// Board is the board backend in use ("gpio", "simulated").
	Board string

	// Telemetry reports whether the telemetry loop is running.
	Telemetry bool

	// Port is the announced service port. Zero means DefaultPort.
	Port uint16
}

// TXTRecordMap is a map of TXT record key-value pairs.
type TXTRecordMap map[string]string

// EncodeTXT creates TXT records for an agent announcement.
func EncodeTXT(info *Info) TXTRecordMap {
	txt := make(TXTRecordMap)

	txt[TXTKeyDeviceID] = info.DeviceID
	txt[TXTKeyTelemetry] = "0"
	if info.Telemetry {
		txt[TXTKeyTelemetry] = "1"
	}

	// Optional fields
	if info.Firmware != "" {
		txt[TXTKeyFirmware] = info.Firmware
	}
	if info.Board != "" {
		txt[TXTKeyBoard] = info.Board
	}

	return txt
}

// DecodeTXT parses TXT records from an agent announcement.
func DecodeTXT(txt TXTRecordMap) (*Info, error) {
	info := &Info{}

	var ok bool
	info.DeviceID, ok = txt[TXTKeyDeviceID]
	if !ok || info.DeviceID == "" {
		return nil, fmt.Errorf("%w: %s", ErrMissingDeviceID, TXTKeyDeviceID)
	}

	info.Telemetry = txt[TXTKeyTelemetry] == "1"
	info.Firmware = txt[TXTKeyFirmware]
	info.Board = txt[TXTKeyBoard]

	return info, nil
}

// TXTRecordsToStrings converts a TXTRecordMap to "key=value" strings.
func TXTRecordsToStrings(txt TXTRecordMap) []string {
	result := make([]string, 0, len(txt))
	for k, v := range txt {
		result = append(result, fmt.Sprintf("%s=%s", k, v))
	}
	return result
}

// StringsToTXTRecords parses a slice of "key=value" strings into a TXTRecordMap.
func StringsToTXTRecords(strs []string) TXTRecordMap {
	txt := make(TXTRecordMap)
	for _, s := range strs {
		parts := strings.SplitN(s, "=", 2)
		if len(parts) == 2 {
			txt[parts[0]] = parts[1]
		} else if len(parts) == 1 && parts[0] != "" {
			txt[parts[0]] = ""
		}
	}
	return txt
}

// InstanceName returns the mDNS instance name for a device, truncated to
// the DNS label limit.
func InstanceName(deviceID string) string {
	name := "edgetwin-" + deviceID
	if len(name) > MaxInstanceNameLen {
		name = name[:MaxInstanceNameLen]
	}
	return name
}

// Config configures advertiser behavior.
type Config struct {
	// Interface specifies which network interface to use.
	// Empty string means all interfaces.
	Interface string

	// TTL is the DNS record TTL.
	// Default: 120 seconds.
	TTL time.Duration
}

// DefaultConfig returns the default advertiser configuration.
func DefaultConfig() Config {
	return Config{
		Interface: "",
		TTL:       120 * time.Second,
	}
}
