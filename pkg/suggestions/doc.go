// Package suggestions handles improvement proposals against SOPs.
//
// A suggestion starts in the queued status; a background worker summarizes
// it through the AI client and moves it to summarized or failed. Reviewers
// settle suggestions by status alone, without a visibility check, which is
// asymmetric with creation on purpose. Listing follows the parent SOP's team
// visibility with no owner override.
package suggestions
