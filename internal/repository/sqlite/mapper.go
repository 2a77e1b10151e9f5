package sqlite

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/jwalitptl/clinic-store/internal/model"
)

const (
	dateLayout = "2006-01-02 15:04:05"
	dayLayout  = "2006-01-02"
)

func formatDate(t time.Time, loc *time.Location) string {
	return t.In(loc).Format(dateLayout)
}

// parseDate also accepts a trailing fractional second.
func parseDate(s string, loc *time.Location) (time.Time, error) {
	t, err := time.ParseInLocation(dateLayout, s, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid appointment date %q: %w", s, err)
	}
	return t.Truncate(time.Second), nil
}

// dayBounds returns the date of t as given, in t's own location, and the
// following date.
func dayBounds(t time.Time) (string, string) {
	start := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	return start.Format(dayLayout), start.AddDate(0, 0, 1).Format(dayLayout)
}

// integerForm returns the value appointments.employee_number keeps for
// number. ok is false when the column keeps number as text.
func integerForm(number string) (form string, ok bool) {
	s := strings.TrimSpace(number)
	if s == "" || strings.IndexFunc(s, func(r rune) bool { return !strings.ContainsRune("0123456789+-.eE", r) }) >= 0 {
		return "", false
	}
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return strconv.FormatInt(i, 10), true
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return "", false
	}
	if f == math.Trunc(f) && math.Abs(f) < math.MaxInt64 {
		return strconv.FormatInt(int64(f), 10), true
	}
	return strconv.FormatFloat(f, 'g', -1, 64), true
}

type employeeRow struct {
	Name           string `db:"name"`
	EmployeeNumber string `db:"employee_number"`
	Role           string `db:"role"`
}

func (r employeeRow) toModel() model.Employee {
	return model.NewEmployee(model.Role(r.Role), r.Name, r.EmployeeNumber)
}

func employeeParams(e model.Employee) map[string]interface{} {
	return map[string]interface{}{
		"name":            e.Name(),
		"employee_number": e.EmployeeNumber(),
		"role":            string(e.Role()),
	}
}

type patientRow struct {
	FirstName string `db:"first_name"`
	Surname   string `db:"surname"`
	Address   string `db:"address"`
	Phone     string `db:"phone"`
}

func (r patientRow) toModel() *model.Patient {
	return model.NewPatient(r.FirstName, r.Surname, r.Address, r.Phone)
}

func patientParams(p *model.Patient) map[string]interface{} {
	return map[string]interface{}{
		"first_name": p.FirstName,
		"surname":    p.Surname,
		"address":    p.Address,
		"phone":      p.Phone,
	}
}

// appointmentRow is one row of the appointments/employees/patients join.
type appointmentRow struct {
	Type        string `db:"type"`
	Date        string `db:"date"`
	StaffName   string `db:"staff_name"`
	StaffNumber string `db:"staff_number"`
	StaffRole   string `db:"staff_role"`
	FirstName   string `db:"first_name"`
	Surname     string `db:"surname"`
	Address     string `db:"address"`
	Phone       string `db:"phone"`
}

func (r appointmentRow) toModel(loc *time.Location) (*model.Appointment, error) {
	kind, err := model.ParseAppointmentType(r.Type)
	if err != nil {
		return nil, err
	}
	date, err := parseDate(r.Date, loc)
	if err != nil {
		return nil, err
	}
	staff := employeeRow{Name: r.StaffName, EmployeeNumber: r.StaffNumber, Role: r.StaffRole}
	return &model.Appointment{
		Type:    kind,
		Staff:   staff.toModel(),
		Patient: model.NewPatient(r.FirstName, r.Surname, r.Address, r.Phone),
		Date:    date,
	}, nil
}

// appointmentParams keys the appointment by staff number, patient identity
// and date. The patient row is resolved in SQL.
func appointmentParams(a *model.Appointment, loc *time.Location) map[string]interface{} {
	return map[string]interface{}{
		"type":               string(a.Type),
		"employee_number":    a.Staff.EmployeeNumber(),
		"patient_first_name": a.Patient.FirstName,
		"patient_surname":    a.Patient.Surname,
		"date":               formatDate(a.Date, loc),
	}
}
