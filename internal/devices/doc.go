// Package devices provides the leaf device variants driven by the
// coordinator: a Hue light, a smart speaker and a smart toilet.
//
// Each variant implements iot.Device and iot.Describer. Commands are
// validated (capability and payload shape) before any state changes, so a
// rejected command is never half-applied. Variants are constructible with
// no arguments; WithLatency simulates device I/O for demos and tests.
package devices
