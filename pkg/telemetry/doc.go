// Package telemetry serializes environment samples into the telemetry
// document published to the hub.
//
// Each document carries the sample fields plus a MsgId sequence number
// assigned by the Encoder. Numeric precision is fixed so that dashboards
// see stable field widths: Temperature with two decimals, Humidity and
// Pressure with one, Light and MsgId as integers. The sequence number
// survives agent restarts when the encoder is resumed from persisted
// state with NewEncoderAt.
package telemetry
