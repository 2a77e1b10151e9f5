package repository

import (
	"context"

	"github.com/jwalitptl/clinic-store/internal/model"
)

// All repository interfaces in one file
type (
	// EmployeeRepository handles employee operations. Employees are never
	// updated or deleted once stored.
	EmployeeRepository interface {
		Create(ctx context.Context, employee model.Employee) error
		// Get returns nil, nil when no employee has that number.
		Get(ctx context.Context, employeeNumber string) (model.Employee, error)
		List(ctx context.Context, filters *model.EmployeeFilters) ([]model.Employee, error)
		ListDoctors(ctx context.Context) ([]model.Employee, error)
		ListNurses(ctx context.Context) ([]model.Employee, error)
		ListReceptionists(ctx context.Context) ([]model.Employee, error)
	}

	PatientRepository interface {
		Create(ctx context.Context, patient *model.Patient) error
		// Get returns nil, nil when the patient is unknown.
		Get(ctx context.Context, key model.PatientKey) (*model.Patient, error)
		List(ctx context.Context) ([]*model.Patient, error)
	}

	AppointmentRepository interface {
		Create(ctx context.Context, appointment *model.Appointment) error
		Delete(ctx context.Context, appointment *model.Appointment) error
		// List returns matches ordered by date, then staff name.
		List(ctx context.Context, filters *model.AppointmentFilters) ([]*model.Appointment, error)
		// ListDays returns every day with an appointment as DD-MM-YYYY, oldest first.
		ListDays(ctx context.Context) ([]string, error)
	}

	// Transactor runs fn with repositories bound to a single transaction.
	Transactor interface {
		WithinTx(ctx context.Context, fn func(patients PatientRepository, appointments AppointmentRepository) error) error
	}
)
