package discovery_test

import (
	"strings"
	"testing"

	"github.com/edgetwin/edgetwin-go/pkg/discovery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestEncodeTXT verifies the TXT record format announced for a running agent.
func TestEncodeTXT(t *testing.T) {
	info := &discovery.Info{
		DeviceID:  "dev-0042",
		Firmware:  "1.0",
		Board:     "simulated",
		Telemetry: true,
	}

	txt := discovery.EncodeTXT(info)

	assert.Equal(t, "dev-0042", txt[discovery.TXTKeyDeviceID])
	assert.Equal(t, "1.0", txt[discovery.TXTKeyFirmware])
	assert.Equal(t, "simulated", txt[discovery.TXTKeyBoard])
	assert.Equal(t, "1", txt[discovery.TXTKeyTelemetry])
}

func TestEncodeTXTOmitsEmptyOptionals(t *testing.T) {
	txt := discovery.EncodeTXT(&discovery.Info{DeviceID: "dev-1"})

	assert.NotContains(t, txt, discovery.TXTKeyFirmware)
	assert.NotContains(t, txt, discovery.TXTKeyBoard)
	assert.Equal(t, "0", txt[discovery.TXTKeyTelemetry])
}

func TestDecodeTXTRoundTrip(t *testing.T) {
	want := &discovery.Info{
		DeviceID:  "dev-0042",
		Firmware:  "1.0",
		Board:     "gpio",
		Telemetry: true,
	}

	strs := discovery.TXTRecordsToStrings(discovery.EncodeTXT(want))
	got, err := discovery.DecodeTXT(discovery.StringsToTXTRecords(strs))
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestDecodeTXTMissingDeviceID(t *testing.T) {
	_, err := discovery.DecodeTXT(discovery.TXTRecordMap{discovery.TXTKeyFirmware: "1.0"})
	assert.ErrorIs(t, err, discovery.ErrMissingDeviceID)
}

func TestStringsToTXTRecords(t *testing.T) {
	txt := discovery.StringsToTXTRecords([]string{"DI=dev-1", "TL=1", "flag", ""})

	assert.Equal(t, "dev-1", txt["DI"])

	// A bare key is a present-but-empty record; an empty string is skipped.
	got, ok := txt["flag"]
	assert.True(t, ok)
	assert.Equal(t, "", got)
	assert.NotContains(t, txt, "")
}

func TestInstanceName(t *testing.T) {
	assert.Equal(t, "edgetwin-dev-1", discovery.InstanceName("dev-1"))

	t.Run("TruncatesLongIDs", func(t *testing.T) {
		got := discovery.InstanceName(strings.Repeat("x", 100))
		assert.Len(t, got, discovery.MaxInstanceNameLen)
	})
}

func TestAdvertiseRequiresDeviceID(t *testing.T) {
	a := discovery.NewAdvertiser(discovery.DefaultConfig())

	err := a.Advertise(&discovery.Info{})
	assert.ErrorIs(t, err, discovery.ErrMissingDeviceID)
	assert.False(t, a.Advertising())
}

func TestUpdateWithoutAdvertise(t *testing.T) {
	a := discovery.NewAdvertiser(discovery.DefaultConfig())

	err := a.Update(&discovery.Info{DeviceID: "dev-1"})
	assert.ErrorIs(t, err, discovery.ErrNotAdvertising)

	// Stop on an idle advertiser is a no-op.
	a.Stop()
}
