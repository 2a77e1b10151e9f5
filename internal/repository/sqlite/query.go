package sqlite

import (
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/jwalitptl/clinic-store/internal/model"
)

// predicate accumulates WHERE clauses over fixed column names. Every value
// travels as a named parameter.
type predicate struct {
	clauses []string
	args    map[string]interface{}
}

func newPredicate() *predicate {
	return &predicate{args: map[string]interface{}{}}
}

func (p *predicate) eq(column, param string, value interface{}) *predicate {
	p.clauses = append(p.clauses, fmt.Sprintf("%s = :%s", column, param))
	p.args[param] = value
	return p
}

// in restricts column to values. A nil slice adds nothing, an empty slice
// matches no row.
func (p *predicate) in(column, param string, values []string) *predicate {
	switch {
	case values == nil:
	case len(values) == 0:
		p.clauses = append(p.clauses, "1 = 0")
	default:
		p.clauses = append(p.clauses, fmt.Sprintf("%s IN (:%s)", column, param))
		p.args[param] = values
	}
	return p
}

// halfOpen restricts column to [lo, hi).
func (p *predicate) halfOpen(column, loParam, hiParam string, lo, hi interface{}) *predicate {
	p.clauses = append(p.clauses, fmt.Sprintf("%s >= :%s AND %s < :%s", column, loParam, column, hiParam))
	p.args[loParam] = lo
	p.args[hiParam] = hi
	return p
}

func (p *predicate) empty() bool { return len(p.clauses) == 0 }

func (p *predicate) where() string {
	if p.empty() {
		return ""
	}
	return " WHERE " + strings.Join(p.clauses, " AND ")
}

// and renders the fragment for appending to a statement that already has a
// WHERE clause.
func (p *predicate) and() string {
	if p.empty() {
		return ""
	}
	return " AND " + strings.Join(p.clauses, " AND ")
}

// expand compiles named parameters to positional ones and spreads slice
// arguments for IN lists.
func expand(query string, arg map[string]interface{}) (string, []interface{}, error) {
	if arg == nil {
		arg = map[string]interface{}{}
	}
	q, args, err := sqlx.Named(query, arg)
	if err != nil {
		return "", nil, fmt.Errorf("failed to bind named parameters: %w", err)
	}
	q, args, err = sqlx.In(q, args...)
	if err != nil {
		return "", nil, fmt.Errorf("failed to expand IN parameters: %w", err)
	}
	return q, args, nil
}

func employeePredicate(f *model.EmployeeFilters) *predicate {
	p := newPredicate()
	if f == nil {
		return p
	}
	if f.Role != nil {
		p.eq("role", "role", string(*f.Role))
	}
	if f.EmployeeNumber != nil {
		p.eq("employee_number", "employee_number", *f.EmployeeNumber)
	}
	return p
}

func patientKeyPredicate(key model.PatientKey) *predicate {
	return newPredicate().
		eq("first_name", "first_name", key.FirstName).
		eq("surname", "surname", key.Surname)
}

// appointmentPredicate targets the aliases used by selectAppointments.
func appointmentPredicate(f *model.AppointmentFilters) *predicate {
	p := newPredicate()
	if f == nil {
		return p
	}
	p.in("e.employee_number", "employee_numbers", f.EmployeeNumbers)
	if f.Day != nil {
		start, end := dayBounds(*f.Day)
		p.halfOpen("a.date", "day_start", "day_end", start, end)
	}
	if f.Patient != nil {
		p.eq("p.first_name", "patient_first_name", f.Patient.FirstName)
		p.eq("p.surname", "patient_surname", f.Patient.Surname)
	}
	return p
}
