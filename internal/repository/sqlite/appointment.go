package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/jwalitptl/clinic-store/internal/model"
	"github.com/jwalitptl/clinic-store/internal/repository"
	apperrors "github.com/jwalitptl/clinic-store/pkg/errors"
)

type appointmentRepository struct {
	BaseRepository
}

func NewAppointmentRepository(base BaseRepository) repository.AppointmentRepository {
	return &appointmentRepository{BaseRepository: base}
}

const selectAppointments = `
	SELECT a.type AS type, a.date AS date,
		e.name AS staff_name, e.employee_number AS staff_number, e.role AS staff_role,
		p.first_name AS first_name, p.surname AS surname, p.address AS address, p.phone AS phone
	FROM appointments a
	JOIN employees e ON a.employee_number = e.employee_number
	JOIN patients p ON a.patient_id = p.rowid`

const orderAppointments = ` ORDER BY a.date, e.name, p.surname, p.first_name, e.employee_number`

const selectPatientRowID = `SELECT rowid FROM patients WHERE first_name = :patient_first_name AND surname = :patient_surname`

// patientRowID embeds selectPatientRowID as a scalar sub-select.
const patientRowID = `(` + selectPatientRowID + `)`

func (r *appointmentRepository) checkAppointment(a *model.Appointment) error {
	if a == nil {
		return apperrors.NewBadRequest("appointment is required", nil)
	}
	if a.Staff == nil || a.Patient == nil {
		return apperrors.NewBadRequest("appointment needs staff and patient", nil)
	}
	return nil
}

// Create checks that staff and patient exist, then inserts the row, all in
// one transaction.
func (r *appointmentRepository) Create(ctx context.Context, appointment *model.Appointment) (err error) {
	defer r.track("insert_appointment", time.Now(), &err)

	if err := r.checkAppointment(appointment); err != nil {
		return err
	}
	if err := r.validate("appointment", appointment); err != nil {
		return err
	}

	params := appointmentParams(appointment, r.loc)
	return r.WithTx(ctx, func(tx *sqlx.Tx) error {
		var staff int
		err := r.get(ctx, tx, &staff, `SELECT COUNT(*) FROM employees WHERE employee_number = :employee_number`, params)
		if err != nil {
			return fmt.Errorf("failed to check employee: %w", err)
		}
		if staff == 0 {
			return apperrors.NewReferential("employee "+appointment.Staff.EmployeeNumber(), nil)
		}

		var rowID int64
		err = r.get(ctx, tx, &rowID, selectPatientRowID, params)
		if errors.Is(err, sql.ErrNoRows) {
			return apperrors.NewReferential("patient "+appointment.Patient.Key().String(), nil)
		}
		if err != nil {
			return fmt.Errorf("failed to check patient: %w", err)
		}

		query := `INSERT INTO appointments(type, employee_number, patient_id, date)
			VALUES(:type, :employee_number, ` + patientRowID + `, :date)`
		if _, err := r.exec(ctx, tx, query, params); err != nil {
			return fmt.Errorf("failed to create appointment: %w", translate(err, "appointment"))
		}
		return nil
	})
}

// Delete removes the appointment with the same staff, patient and date.
func (r *appointmentRepository) Delete(ctx context.Context, appointment *model.Appointment) (err error) {
	defer r.track("delete_appointment", time.Now(), &err)

	if err := r.checkAppointment(appointment); err != nil {
		return err
	}

	query := `DELETE FROM appointments
		WHERE employee_number = :employee_number
		AND patient_id = ` + patientRowID + `
		AND date = :date`
	rows, err := r.exec(ctx, r.ext(), query, appointmentParams(appointment, r.loc))
	if err != nil {
		return fmt.Errorf("failed to delete appointment: %w", err)
	}
	if rows == 0 {
		return apperrors.NewNotFound("appointment", nil)
	}
	return nil
}

func (r *appointmentRepository) List(ctx context.Context, filters *model.AppointmentFilters) (appointments []*model.Appointment, err error) {
	defer r.track("select_appointments", time.Now(), &err)

	p := appointmentPredicate(filters)
	var rows []appointmentRow
	if err := r.selectAll(ctx, r.ext(), &rows, selectAppointments+p.where()+orderAppointments, p.args); err != nil {
		return nil, fmt.Errorf("failed to list appointments: %w", err)
	}

	appointments = make([]*model.Appointment, 0, len(rows))
	for _, row := range rows {
		a, err := row.toModel(r.loc)
		if err != nil {
			return nil, fmt.Errorf("failed to map appointment: %w", err)
		}
		appointments = append(appointments, a)
	}
	return appointments, nil
}

func (r *appointmentRepository) ListDays(ctx context.Context) (days []string, err error) {
	defer r.track("select_appointment_days", time.Now(), &err)

	query := `SELECT strftime('%d-%m-%Y', day) FROM (SELECT DISTINCT date(date) AS day FROM appointments) ORDER BY day`
	days = []string{}
	if err := r.selectAll(ctx, r.ext(), &days, query, nil); err != nil {
		return nil, fmt.Errorf("failed to list appointment days: %w", err)
	}
	return days, nil
}
