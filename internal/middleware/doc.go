// Package middleware describes the capability surface of the vendor TV
// middleware as seen by the control plane.
//
// The middleware is a separately booting process reached through a fixed
// command/callback interface. This package defines the command ports (route
// enumeration, service control, scanning, EPG acquisition, subtitle/audio
// track control, display geometry, the platform mixer, and the readiness
// signal) plus the callback payloads delivered back to the control plane.
// Nothing here knows about the transport; bindings such as the emulator
// subpackage implement the ports.
package middleware
