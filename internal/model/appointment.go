package model

import (
	"fmt"
	"strings"
	"time"
)

type AppointmentType string

const (
	AppointmentTypeCheckup      AppointmentType = "CHECKUP"
	AppointmentTypeConsultation AppointmentType = "CONSULTATION"
	AppointmentTypeUrgent       AppointmentType = "URGENT"
	AppointmentTypeFollowUp     AppointmentType = "FOLLOW_UP"
)

var AppointmentTypes = []AppointmentType{
	AppointmentTypeCheckup,
	AppointmentTypeConsultation,
	AppointmentTypeUrgent,
	AppointmentTypeFollowUp,
}

func ParseAppointmentType(s string) (AppointmentType, error) {
	t := AppointmentType(strings.ToUpper(strings.TrimSpace(s)))
	for _, known := range AppointmentTypes {
		if t == known {
			return t, nil
		}
	}
	return "", fmt.Errorf("unknown appointment type %q", s)
}

// Appointment is keyed by staff employee number, patient identity and Date.
type Appointment struct {
	Type    AppointmentType `json:"type" validate:"oneof=CHECKUP CONSULTATION URGENT FOLLOW_UP"`
	Staff   Employee        `json:"staff" validate:"required"`
	Patient *Patient        `json:"patient" validate:"required"`
	Date    time.Time       `json:"date" validate:"required"`
}

func (a *Appointment) String() string {
	staff := "<none>"
	if a.Staff != nil {
		staff = fmt.Sprintf("%v", a.Staff)
	}
	patient := "<none>"
	if a.Patient != nil {
		patient = a.Patient.Key().String()
	}
	return fmt.Sprintf("%s on %s with %s for %s", a.Type, a.Date.Format("2006-01-02 15:04"), staff, patient)
}

// AppointmentFilters narrows an appointment listing. Criteria are AND-ed.
//
// EmployeeNumbers distinguishes nil (no restriction) from an empty, non-nil
// slice (matches nothing).
type AppointmentFilters struct {
	EmployeeNumbers []string
	// Day restricts to the calendar date of Day as given. It is not converted
	// to the store location first.
	Day     *time.Time
	Patient *PatientKey
}
