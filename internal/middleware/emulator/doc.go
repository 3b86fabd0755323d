// Package emulator is an in-process implementation of every middleware port.
//
// A YAML hardware profile describes the frontends (with their technology
// flags), decoder/output/storage counts, the broadcast networks a scan will
// find, and optional MPEG transport stream captures whose PAT/PMT tables seed
// the service list. Scans run on their own goroutine and deliver telemetry to
// registered listeners the way the vendor dispatch thread does; EPG events are
// synthesized on demand for any requested window.
//
// Every command is recorded in a call journal so tests can assert on ordering
// (for example that subtitles are hidden before a service is stopped).
package emulator
