// Package commands implements the edgetwin-log CLI commands.
package commands

import (
	"encoding/hex"
	"fmt"
	"io"
	"strings"

	"github.com/edgetwin/edgetwin-go/pkg/log"
)

// formatEvent writes a human-readable representation of the event to w.
func formatEvent(w io.Writer, event log.Event) {
	// Header line: timestamp DIRECTION LAYER Type
	ts := event.Timestamp.UTC().Format("2006-01-02T15:04:05.000000Z")
	dir := event.Direction.String()

	// Determine event type label
	var typeLabel string
	switch {
	case event.Message != nil:
		typeLabel = "Message"
	case event.Twin != nil:
		typeLabel = "Twin " + event.Twin.Action.String()
	case event.Telemetry != nil:
		typeLabel = "Telemetry"
	case event.StateChange != nil:
		typeLabel = "State"
	case event.Error != nil:
		typeLabel = "Error"
	default:
		typeLabel = "Unknown"
	}

	fmt.Fprintf(w, "%s %-3s %-9s %s\n", ts, dir, event.Layer.String(), typeLabel)

	// Type-specific details
	switch {
	case event.Message != nil:
		formatMessageDetails(w, event.Topic, event.Message)
	case event.Twin != nil:
		formatTwinDetails(w, event.Twin)
	case event.Telemetry != nil:
		formatTelemetryDetails(w, event.Telemetry)
	case event.StateChange != nil:
		formatStateChangeDetails(w, event.StateChange)
	case event.Error != nil:
		formatErrorDetails(w, event.Error)
	}

	fmt.Fprintln(w) // Blank line between events
}

// formatMessageDetails writes raw payload details.
func formatMessageDetails(w io.Writer, topic string, msg *log.MessageEvent) {
	if topic != "" {
		fmt.Fprintf(w, "  Topic: %s\n", topic)
	}
	fmt.Fprintf(w, "  Size: %d bytes\n", msg.Size)
	if len(msg.Data) > 0 {
		fmt.Fprintf(w, "  Data: %s", hex.EncodeToString(msg.Data))
		if msg.Truncated {
			fmt.Fprintf(w, " (truncated)")
		}
		fmt.Fprintln(w)
	}
}

// formatTwinDetails writes twin property outcome details.
func formatTwinDetails(w io.Writer, tw *log.TwinEvent) {
	if tw.Property != "" {
		if tw.Kind != "" {
			fmt.Fprintf(w, "  Property: %s (%s)\n", tw.Property, tw.Kind)
		} else {
			fmt.Fprintf(w, "  Property: %s\n", tw.Property)
		}
	}
	if tw.Reason != "" {
		fmt.Fprintf(w, "  Reason: %s\n", tw.Reason)
	}
	if tw.Size > 0 {
		fmt.Fprintf(w, "  Size: %d bytes\n", tw.Size)
	}
}

// formatTelemetryDetails writes telemetry publish details.
func formatTelemetryDetails(w io.Writer, tel *log.TelemetryEvent) {
	fmt.Fprintf(w, "  MsgId: %d\n", tel.MsgID)
	fmt.Fprintf(w, "  Size: %d bytes\n", tel.Size)
}

// formatStateChangeDetails writes state change details.
func formatStateChangeDetails(w io.Writer, sc *log.StateChangeEvent) {
	fmt.Fprintf(w, "  Entity: %s\n", sc.Entity.String())
	if sc.OldState != "" {
		fmt.Fprintf(w, "  %s -> %s\n", sc.OldState, sc.NewState)
	} else {
		fmt.Fprintf(w, "  -> %s\n", sc.NewState)
	}
	if sc.Reason != "" {
		fmt.Fprintf(w, "  Reason: %s\n", sc.Reason)
	}
}

// formatErrorDetails writes error details.
func formatErrorDetails(w io.Writer, err *log.ErrorEventData) {
	fmt.Fprintf(w, "  Layer: %s\n", err.Layer.String())
	fmt.Fprintf(w, "  Message: %s\n", err.Message)
	if err.Context != "" {
		fmt.Fprintf(w, "  Context: %s\n", err.Context)
	}
}

// ParseLayerFlag parses a layer string from command-line flag (case-insensitive).
func ParseLayerFlag(s string) (log.Layer, error) {
	return parseLayer(s)
}

// parseLayer parses a layer string (case-insensitive).
func parseLayer(s string) (log.Layer, error) {
	switch strings.ToLower(s) {
	case "transport":
		return log.LayerTransport, nil
	case "twin":
		return log.LayerTwin, nil
	case "agent":
		return log.LayerAgent, nil
	default:
		return 0, fmt.Errorf("invalid layer: %s (must be transport, twin, or agent)", s)
	}
}

// ParseDirectionFlag parses a direction string from command-line flag (case-insensitive).
func ParseDirectionFlag(s string) (log.Direction, error) {
	return parseDirection(s)
}

// parseDirection parses a direction string (case-insensitive).
func parseDirection(s string) (log.Direction, error) {
	switch strings.ToLower(s) {
	case "in":
		return log.DirectionIn, nil
	case "out":
		return log.DirectionOut, nil
	default:
		return 0, fmt.Errorf("invalid direction: %s (must be in or out)", s)
	}
}

// ParseCategoryFlag parses a category string from command-line flag (case-insensitive).
func ParseCategoryFlag(s string) (log.Category, error) {
	return parseCategory(s)
}

// parseCategory parses a category string (case-insensitive).
func parseCategory(s string) (log.Category, error) {
	switch strings.ToLower(s) {
	case "message":
		return log.CategoryMessage, nil
	case "twin":
		return log.CategoryTwin, nil
	case "telemetry":
		return log.CategoryTelemetry, nil
	case "state":
		return log.CategoryState, nil
	case "error":
		return log.CategoryError, nil
	default:
		return 0, fmt.Errorf("invalid category: %s (must be message, twin, telemetry, state, or error)", s)
	}
}

// RunView executes the view command. Filtering is pushed down into the
// reader so large files stream without buffering.
func RunView(path string, filter log.Filter, output io.Writer) error {
	reader, err := log.NewFilteredReader(path, filter)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer reader.Close()

	for {
		event, err := reader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("failed to read event: %w", err)
		}

		formatEvent(output, event)
	}

	return nil
}
