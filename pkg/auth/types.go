package auth

import "time"

// User represents a hub user account. Users are provisioned on first login
// and never hard-deleted; deactivation flips IsActive.
type User struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Role      Role      `json:"role"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Identity is the authenticated principal derived from a verified token.
// It carries only what the access layer needs: who, and the role axis.
type Identity struct {
	UserID int64  `json:"user_id"`
	Email  string `json:"email"`
	Role   Role   `json:"role"`
}

// IsAdmin reports whether the principal bypasses team restriction entirely.
func (id Identity) IsAdmin() bool {
	return id.Role == RoleAdmin
}

// Role is the closed set of identity-level permission tags. The role axis
// gates which operations a principal may invoke; team visibility gates which
// resource instances are in scope. The two axes are deliberately separate.
type Role string

const (
	RoleAdmin       Role = "admin"
	RoleDeptLead    Role = "dept_lead"
	RoleEditor      Role = "editor"
	RoleContributor Role = "contributor"
)

// Valid reports whether r is one of the known roles
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleDeptLead, RoleEditor, RoleContributor:
		return true
	}
	return false
}

// Operation is a role-gated operation name
type Operation string

const (
	OpSopCreate         Operation = "sop:create"
	OpSopUpdate         Operation = "sop:update"
	OpSopPublish        Operation = "sop:publish"
	OpSopDelete         Operation = "sop:delete"
	OpTeamCreate        Operation = "team:create"
	OpRoleAssign        Operation = "user:assign_role"
	OpMembershipAssign  Operation = "user:assign_team"
	OpRestrictionAssign Operation = "sop:assign_team"
	OpSuggestionReview  Operation = "suggestion:review"
)

// rolePermissions is the single permission table consulted everywhere.
// Admin is granted every operation and is omitted from the rows.
var rolePermissions = map[Operation][]Role{
	OpSopCreate:         {RoleDeptLead, RoleEditor},
	OpSopUpdate:         {RoleDeptLead, RoleEditor},
	OpSopPublish:        {RoleDeptLead, RoleEditor},
	OpSopDelete:         {RoleDeptLead},
	OpTeamCreate:        {},
	OpRoleAssign:        {},
	OpMembershipAssign:  {},
	OpRestrictionAssign: {},
	OpSuggestionReview:  {RoleDeptLead, RoleEditor},
}

// Can reports whether the role may invoke the operation
func (r Role) Can(op Operation) bool {
	if r == RoleAdmin {
		return true
	}
	for _, allowed := range rolePermissions[op] {
		if r == allowed {
			return true
		}
	}
	return false
}
