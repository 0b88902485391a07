package domain

// Role is the closed set of roles a GMAO user can hold. The role is assigned
// at invitation time and copied onto the profile when the invite is accepted.
type Role string

const (
	RoleOperator   Role = "operator"
	RoleTechnician Role = "technician"
	RoleSupervisor Role = "supervisor"
	RoleAdmin      Role = "admin"
)

// Roles lists every valid role.
func Roles() []Role {
	return []Role{RoleOperator, RoleTechnician, RoleSupervisor, RoleAdmin}
}

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleOperator, RoleTechnician, RoleSupervisor, RoleAdmin:
		return true
	}
	return false
}

func (r Role) String() string { return string(r) }

// CapacityLevel grades a technician's capability from N1 (lowest) to N5.
type CapacityLevel string

const (
	CapacityN1 CapacityLevel = "N1"
	CapacityN2 CapacityLevel = "N2"
	CapacityN3 CapacityLevel = "N3"
	CapacityN4 CapacityLevel = "N4"
	CapacityN5 CapacityLevel = "N5"
)

// Valid reports whether c is one of the known capacity levels.
func (c CapacityLevel) Valid() bool {
	switch c {
	case CapacityN1, CapacityN2, CapacityN3, CapacityN4, CapacityN5:
		return true
	}
	return false
}
