// Package tuning starts and stops channels on the main viewing path.
//
// Tuner resolves a channel's live route from the route table, issues the
// start-service or URL zap command, and positions the video plane. The
// ActiveRouteState it maintains is the single record of what is playing and
// is read concurrently by the EPG worker and the scan orchestrator. Volume,
// mute, and track selection are side operations on the platform mixer and
// the active route; they never change the route state.
package tuning
