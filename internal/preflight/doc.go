// Package preflight provides readiness checks for the filesystem paths and
// device nodes tvcore depends on.
//
// These checks run in two contexts:
//   - The daemon calls RunAll at start-up and logs every failing check.
//   - The CLI "tvcore status" command renders the same results next to the
//     daemon's own status.
//
// Checks never modify state; a failing check is reported, not repaired.
package preflight
