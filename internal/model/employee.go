package model

import (
	"fmt"
	"strings"
)

// Role is the stored discriminator of an employee row.
type Role string

const (
	RoleDoctor       Role = "DOCTOR"
	RoleNurse        Role = "NURSE"
	RoleReceptionist Role = "RECEPTIONIST"
)

// Roles lists every known role.
var Roles = []Role{RoleDoctor, RoleNurse, RoleReceptionist}

func (r Role) String() string { return string(r) }

// ParseRole accepts a role name in any case.
func ParseRole(s string) (Role, error) {
	r := Role(strings.ToUpper(strings.TrimSpace(s)))
	for _, known := range Roles {
		if r == known {
			return r, nil
		}
	}
	return "", fmt.Errorf("unknown employee role %q", s)
}

// Employee is implemented by Doctor, Nurse and Receptionist only.
type Employee interface {
	Name() string
	EmployeeNumber() string
	Role() Role
	employee()
}

// Staff holds the persisted attributes shared by every employee variant.
type Staff struct {
	FullName string `db:"name" json:"name" validate:"notblank"`
	Number   string `db:"employee_number" json:"employee_number" validate:"notblank"`
}

func (s Staff) Name() string           { return s.FullName }
func (s Staff) EmployeeNumber() string { return s.Number }
func (Staff) employee()                {}

type Doctor struct {
	Staff
}

func (Doctor) Role() Role { return RoleDoctor }

func (d Doctor) String() string { return "Doctor " + d.FullName }

type Nurse struct {
	Staff
}

func (Nurse) Role() Role { return RoleNurse }

func (n Nurse) String() string { return "Nurse " + n.FullName }

type Receptionist struct {
	Staff
	// Desk is the front desk the receptionist is working at. Not persisted.
	Desk string `db:"-" json:"desk,omitempty"`
}

func (Receptionist) Role() Role { return RoleReceptionist }

func (r Receptionist) String() string { return "Receptionist " + r.FullName }

func NewDoctor(name, number string) Doctor {
	return Doctor{Staff: Staff{FullName: name, Number: number}}
}

func NewNurse(name, number string) Nurse {
	return Nurse{Staff: Staff{FullName: name, Number: number}}
}

func NewReceptionist(name, number, desk string) Receptionist {
	return Receptionist{Staff: Staff{FullName: name, Number: number}, Desk: desk}
}

// NewEmployee builds the variant bound to role. Any role other than DOCTOR or
// NURSE yields a Receptionist. New roles must be added here.
func NewEmployee(role Role, name, number string) Employee {
	switch role {
	case RoleDoctor:
		return NewDoctor(name, number)
	case RoleNurse:
		return NewNurse(name, number)
	default:
		return NewReceptionist(name, number, "")
	}
}

// EmployeeFilters narrows an employee listing. Nil fields are not applied.
type EmployeeFilters struct {
	Role           *Role
	EmployeeNumber *string
}
