// Package auth provides user accounts, role-based operation permissions,
// and JWT session tokens.
//
// Roles form a closed set (admin, dept_lead, editor, contributor) and gate
// operations through a single permission table; admin implicitly holds every
// permission. Which documents a user can see is a separate concern handled
// by the access package.
package auth
