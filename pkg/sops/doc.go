// Package sops manages standard operating procedure documents.
//
// SOPs are addressed by a stable business key. Listing is filtered through
// the access engine's collection filter; point reads resolve existence first
// and only then check visibility, so a missing key is a not-found error and
// a hidden one is an access error. Content updates and publishes bump the
// document version.
package sops
