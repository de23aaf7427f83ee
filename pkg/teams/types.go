package teams

import "time"

// Team is a unit of membership and SOP visibility. Users belong to any number
// of teams; restricted SOPs list the teams allowed to see them.
type Team struct {
	ID         int64     `json:"id"`
	Name       string    `json:"name"`
	Department string    `json:"department,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}
