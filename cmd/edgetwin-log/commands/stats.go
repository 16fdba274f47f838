package commands

import (
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/edgetwin/edgetwin-go/pkg/log"
)

// Stats holds aggregate statistics about a log file.
type Stats struct {
	TotalEvents       int
	EventsByLayer     map[log.Layer]int
	EventsByCategory  map[log.Category]int
	EventsByDirection map[log.Direction]int
	Properties        map[string]*PropertyStats
	Telemetry         TelemetryStats
	Devices           map[string]int
	Errors            int
	TimeRange         struct {
		Start time.Time
		End   time.Time
	}
}

// PropertyStats holds per-twin-property outcome counts.
type PropertyStats struct {
	Applied  int
	Ignored  int
	Reported int
}

// TelemetryStats summarizes telemetry publishes. Missed is the number
// of message IDs absent from the observed range, which corresponds to
// envelopes encoded but never handed to the hub.
type TelemetryStats struct {
	Count      int
	FirstMsgID int
	LastMsgID  int
	Missed     int
	Bytes      int
}

// RunStats analyzes the log file and prints statistics.
func RunStats(path string, w io.Writer) error {
	reader, err := log.NewReader(path)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer reader.Close()

	stats := &Stats{
		EventsByLayer:     make(map[log.Layer]int),
		EventsByCategory:  make(map[log.Category]int),
		EventsByDirection: make(map[log.Direction]int),
		Properties:        make(map[string]*PropertyStats),
		Devices:           make(map[string]int),
	}

	for {
		event, err := reader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("failed to read event: %w", err)
		}

		stats.TotalEvents++
		stats.EventsByLayer[event.Layer]++
		stats.EventsByCategory[event.Category]++
		stats.EventsByDirection[event.Direction]++

		// Track time range
		if stats.TimeRange.Start.IsZero() || event.Timestamp.Before(stats.TimeRange.Start) {
			stats.TimeRange.Start = event.Timestamp
		}
		if event.Timestamp.After(stats.TimeRange.End) {
			stats.TimeRange.End = event.Timestamp
		}

		if event.DeviceID != "" {
			stats.Devices[event.DeviceID]++
		}

		// Track per-property twin outcomes
		if event.Twin != nil && event.Twin.Property != "" {
			prop, ok := stats.Properties[event.Twin.Property]
			if !ok {
				prop = &PropertyStats{}
				stats.Properties[event.Twin.Property] = prop
			}
			switch event.Twin.Action {
			case log.TwinApplied:
				prop.Applied++
			case log.TwinIgnored:
				prop.Ignored++
			case log.TwinReported:
				prop.Reported++
			}
		}

		// Track telemetry publishes and MsgId continuity
		if event.Telemetry != nil {
			if stats.Telemetry.Count == 0 {
				stats.Telemetry.FirstMsgID = event.Telemetry.MsgID
			}
			stats.Telemetry.Count++
			stats.Telemetry.LastMsgID = event.Telemetry.MsgID
			stats.Telemetry.Bytes += event.Telemetry.Size
		}

		// Count errors
		if event.Error != nil {
			stats.Errors++
		}
	}

	if stats.Telemetry.Count > 0 {
		expected := stats.Telemetry.LastMsgID - stats.Telemetry.FirstMsgID + 1
		if expected > stats.Telemetry.Count {
			stats.Telemetry.Missed = expected - stats.Telemetry.Count
		}
	}

	printStats(w, stats)
	return nil
}

func printStats(w io.Writer, stats *Stats) {
	fmt.Fprintln(w, "=== Agent Log Statistics ===")
	fmt.Fprintln(w)

	// Time range
	if stats.TotalEvents > 0 {
		fmt.Fprintf(w, "Time Range: %s to %s\n",
			stats.TimeRange.Start.Format(time.RFC3339),
			stats.TimeRange.End.Format(time.RFC3339))
		fmt.Fprintf(w, "Duration:   %s\n", stats.TimeRange.End.Sub(stats.TimeRange.Start).Round(time.Second))
		fmt.Fprintln(w)
	}

	// Total events
	fmt.Fprintf(w, "Total Events: %d\n", stats.TotalEvents)
	fmt.Fprintln(w)

	// Devices
	if len(stats.Devices) > 0 {
		devices := make([]string, 0, len(stats.Devices))
		for id := range stats.Devices {
			devices = append(devices, id)
		}
		sort.Strings(devices)
		fmt.Fprintln(w, "Devices:")
		for _, id := range devices {
			fmt.Fprintf(w, "  %s (%d events)\n", id, stats.Devices[id])
		}
		fmt.Fprintln(w)
	}

	// Events by layer
	fmt.Fprintln(w, "Events by Layer:")
	for _, layer := range []log.Layer{log.LayerTransport, log.LayerTwin, log.LayerAgent} {
		if count := stats.EventsByLayer[layer]; count > 0 {
			fmt.Fprintf(w, "  %-12s %d\n", layer.String()+":", count)
		}
	}
	fmt.Fprintln(w)

	// Events by category
	fmt.Fprintln(w, "Events by Category:")
	for _, cat := range []log.Category{log.CategoryMessage, log.CategoryTwin, log.CategoryTelemetry, log.CategoryState, log.CategoryError} {
		if count := stats.EventsByCategory[cat]; count > 0 {
			fmt.Fprintf(w, "  %-12s %d\n", cat.String()+":", count)
		}
	}
	fmt.Fprintln(w)

	// Events by direction
	fmt.Fprintln(w, "Events by Direction:")
	for _, dir := range []log.Direction{log.DirectionIn, log.DirectionOut} {
		if count := stats.EventsByDirection[dir]; count > 0 {
			fmt.Fprintf(w, "  %-12s %d\n", dir.String()+":", count)
		}
	}

	// Twin properties
	if len(stats.Properties) > 0 {
		names := make([]string, 0, len(stats.Properties))
		for name := range stats.Properties {
			names = append(names, name)
		}
		sort.Strings(names)

		fmt.Fprintln(w)
		fmt.Fprintln(w, "Twin Properties:")
		for _, name := range names {
			p := stats.Properties[name]
			fmt.Fprintf(w, "  %-16s applied %d, ignored %d, reported %d\n",
				name, p.Applied, p.Ignored, p.Reported)
		}
	}

	// Telemetry
	if stats.Telemetry.Count > 0 {
		fmt.Fprintln(w)
		fmt.Fprintf(w, "Telemetry: %d documents, %d bytes\n", stats.Telemetry.Count, stats.Telemetry.Bytes)
		fmt.Fprintf(w, "  MsgId range: %d..%d", stats.Telemetry.FirstMsgID, stats.Telemetry.LastMsgID)
		if stats.Telemetry.Missed > 0 {
			fmt.Fprintf(w, " (%d missed)", stats.Telemetry.Missed)
		} else {
			fmt.Fprint(w, " (no gaps)")
		}
		fmt.Fprintln(w)
	}

	// Errors
	if stats.Errors > 0 {
		fmt.Fprintln(w)
		fmt.Fprintf(w, "Errors: %d\n", stats.Errors)
	}
}
