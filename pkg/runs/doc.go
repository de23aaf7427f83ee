// Package runs records executions of SOP checklists.
//
// A run belongs to the user who started it. Starting, checking steps, and
// completing all require visibility of the parent SOP; reading a run is also
// allowed to its owner unconditionally, so revoking team access mid-run never
// hides a user's own history. Checklist steps are created lazily on first
// check and re-checks refresh the timestamp in place.
package runs
