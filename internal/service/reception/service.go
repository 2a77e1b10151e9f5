package reception

import (
	"context"
	"fmt"
	"time"

	"github.com/jwalitptl/clinic-store/internal/model"
	"github.com/jwalitptl/clinic-store/internal/repository"
	apperrors "github.com/jwalitptl/clinic-store/pkg/errors"
	"github.com/jwalitptl/clinic-store/pkg/logger"
)

// BookingRequest books Staff (by employee number) for Patient at Date. The
// patient is registered first when unknown.
type BookingRequest struct {
	Type           model.AppointmentType
	EmployeeNumber string
	Patient        *model.Patient
	Date           time.Time
}

type Service struct {
	employees    repository.EmployeeRepository
	patients     repository.PatientRepository
	appointments repository.AppointmentRepository
	tx           repository.Transactor
	log          *logger.Logger
}

func NewService(
	employees repository.EmployeeRepository,
	patients repository.PatientRepository,
	appointments repository.AppointmentRepository,
	tx repository.Transactor,
	log *logger.Logger,
) *Service {
	if log == nil {
		log = logger.Nop()
	}
	return &Service{
		employees:    employees,
		patients:     patients,
		appointments: appointments,
		tx:           tx,
		log:          log.WithFields(map[string]interface{}{"component": "reception"}),
	}
}

func (s *Service) HireEmployee(ctx context.Context, employee model.Employee) error {
	if err := s.employees.Create(ctx, employee); err != nil {
		return fmt.Errorf("failed to hire employee: %w", err)
	}
	s.log.Info("employee hired", "employee_number", employee.EmployeeNumber(), "role", string(employee.Role()))
	return nil
}

func (s *Service) RegisterPatient(ctx context.Context, patient *model.Patient) error {
	if err := s.patients.Create(ctx, patient); err != nil {
		return fmt.Errorf("failed to register patient: %w", err)
	}
	s.log.Info("patient registered", "patient", patient.Key().String())
	return nil
}

// LookupPatient returns nil, nil for an unknown patient.
func (s *Service) LookupPatient(ctx context.Context, firstName, surname string) (*model.Patient, error) {
	patient, err := s.patients.Get(ctx, model.PatientKey{FirstName: firstName, Surname: surname})
	if err != nil {
		return nil, fmt.Errorf("failed to look up patient: %w", err)
	}
	return patient, nil
}

// BookAppointment registers the patient if needed and books the appointment
// in one transaction. A stored patient wins over the request's contact
// details.
func (s *Service) BookAppointment(ctx context.Context, req BookingRequest) (*model.Appointment, error) {
	if req.Patient == nil {
		return nil, apperrors.NewBadRequest("patient is required", nil)
	}

	// resolved before the transaction, the store has a single connection
	staff, err := s.employees.Get(ctx, req.EmployeeNumber)
	if err != nil {
		return nil, fmt.Errorf("failed to look up staff: %w", err)
	}
	if staff == nil {
		return nil, apperrors.NewReferential("employee "+req.EmployeeNumber, nil)
	}

	var booked *model.Appointment
	err = s.tx.WithinTx(ctx, func(patients repository.PatientRepository, appointments repository.AppointmentRepository) error {
		patient, err := patients.Get(ctx, req.Patient.Key())
		if err != nil {
			return err
		}
		if patient == nil {
			if err := patients.Create(ctx, req.Patient); err != nil {
				return err
			}
			patient = req.Patient
		}

		appointment := &model.Appointment{Type: req.Type, Staff: staff, Patient: patient, Date: req.Date}
		if err := appointments.Create(ctx, appointment); err != nil {
			return err
		}
		booked = appointment
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to book appointment: %w", err)
	}

	s.log.Info("appointment booked", "appointment", booked.String())
	return booked, nil
}

func (s *Service) CancelAppointment(ctx context.Context, appointment *model.Appointment) error {
	if err := s.appointments.Delete(ctx, appointment); err != nil {
		return fmt.Errorf("failed to cancel appointment: %w", err)
	}
	s.log.Info("appointment cancelled", "appointment", appointment.String())
	return nil
}

func (s *Service) PatientAppointments(ctx context.Context, key model.PatientKey) ([]*model.Appointment, error) {
	appointments, err := s.appointments.List(ctx, &model.AppointmentFilters{Patient: &key})
	if err != nil {
		return nil, fmt.Errorf("failed to list patient appointments: %w", err)
	}
	return appointments, nil
}

// StaffAgenda lists appointments on day. With no numbers every staff member
// is included.
func (s *Service) StaffAgenda(ctx context.Context, day time.Time, employeeNumbers ...string) ([]*model.Appointment, error) {
	filters := &model.AppointmentFilters{Day: &day}
	if len(employeeNumbers) > 0 {
		filters.EmployeeNumbers = employeeNumbers
	}
	appointments, err := s.appointments.List(ctx, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list staff agenda: %w", err)
	}
	return appointments, nil
}

// Days lists every day with an appointment as DD-MM-YYYY.
func (s *Service) Days(ctx context.Context) ([]string, error) {
	days, err := s.appointments.ListDays(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list days: %w", err)
	}
	return days, nil
}
