// Package scan drives channel scans on the install route.
//
// Scanner picks one technology in fixed priority order (cable, terrestrial,
// satellite, IP) by install-route presence, configures the route, and starts
// the vendor autoscan or satellite manual scan. Telemetry callbacks update a
// Status snapshot. Completion, signalled by progress 100 or an explicit
// finished event, triggers exactly one catalog refresh and one broadcast per
// scan. Running out of service space is reported as its own outcome.
package scan
