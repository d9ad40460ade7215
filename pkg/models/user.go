package models

// Role determines which workflow actions a user may perform.
type Role string

const (
	RoleDigitador Role = "digitador"
	RoleLeader    Role = "leader"
	RoleAdmin     Role = "admin"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	switch r {
	case RoleDigitador, RoleLeader, RoleAdmin:
		return true
	}
	return false
}

// User is an operator, leader or administrator.
type User struct {
	ID             string `yaml:"id" json:"id"`
	Username       string `yaml:"username" json:"username"`
	OperatorNumber string `yaml:"operator_number,omitempty" json:"operator_number,omitempty"`
	Role           Role   `yaml:"role" json:"role"`
}

// Project groups tasks and optionally has a single leader.
type Project struct {
	ID       string `yaml:"id" json:"id"`
	Name     string `yaml:"name" json:"name"`
	LeaderID string `yaml:"leader_id,omitempty" json:"leader_id,omitempty"`
}
