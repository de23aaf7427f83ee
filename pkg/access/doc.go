// Package access implements team-based visibility for SOPs and the resources
// attached to them.
//
// # Overview
//
// Visibility is resolved from two edge sets rather than per-resource ACLs:
//
//   1. Membership edges (user_teams): which teams a user belongs to
//   2. Restriction edges (sop_allowed_teams): which teams may view a SOP
//
// A SOP with no restriction edges at all is unrestricted: open to every
// authenticated user regardless of team. This is a load-bearing invariant,
// not a fallback of convenience; the single-item check and the collection
// filter special-case it identically. A user with no team memberships can
// therefore still view unrestricted SOPs.
//
// Admins bypass team restriction entirely. The role axis (which operations a
// principal may invoke, see pkg/auth) is orthogonal to the visibility axis
// (which resource instances are in scope) and is never consulted here beyond
// the admin bypass.
//
// # Decision rules
//
// Single item:
//
//	CanView(identity, sopID) == identity.IsAdmin()
//		|| restrictions(sopID) is empty
//		|| memberships(identity) ∩ restrictions(sopID) is non-empty
//
// Collection:
//
//	VisibleSops(identity) == { sop : CanView(identity, sop) }
//
// The bulk form reads the full restriction edge set once and resolves
// membership in memory instead of issuing one restriction query per SOP. It
// always unions explicitly granted SOPs with unrestricted ones, so the bulk
// and single-item paths agree for every identity.
//
// Runs inherit visibility from their parent SOP, with one override: the user
// who executed a run can always see it, even after losing team access to the
// SOP. Suggestions inherit visibility from the parent SOP with no owner
// override.
//
// # Consistency and failure
//
// Each decision reads the membership and restriction sets inside a single
// read transaction, so one call sees one snapshot. Decisions are never
// cached across requests. Store errors propagate to the caller as errors; a
// backend failure is never reported as a deny.
package access
