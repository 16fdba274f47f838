// Package discovery advertises a running agent on the local network via
// mDNS (DNS-SD).
//
// Each agent registers a single "_edgetwin._tcp" service instance named
// after its device ID. TXT records carry the device ID, firmware
// version, board backend and whether telemetry is enabled, so fleet
// tooling can enumerate agents on a subnet without contacting the hub.
//
// Advertising is best effort. The agent starts without it when the
// network does not carry multicast.
package discovery
