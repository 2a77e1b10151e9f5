package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jwalitptl/clinic-store/internal/model"
	"github.com/jwalitptl/clinic-store/internal/repository"
	apperrors "github.com/jwalitptl/clinic-store/pkg/errors"
)

type patientRepository struct {
	BaseRepository
}

func NewPatientRepository(base BaseRepository) repository.PatientRepository {
	return &patientRepository{BaseRepository: base}
}

const selectPatients = `SELECT first_name, surname, address, phone FROM patients`

func (r *patientRepository) Create(ctx context.Context, patient *model.Patient) (err error) {
	defer r.track("insert_patient", time.Now(), &err)

	if patient == nil {
		return apperrors.NewBadRequest("patient is required", nil)
	}
	if err := r.validate("patient", patient); err != nil {
		return err
	}

	query := `INSERT INTO patients(first_name, surname, address, phone) VALUES(:first_name, :surname, :address, :phone)`
	if _, err := r.exec(ctx, r.ext(), query, patientParams(patient)); err != nil {
		return fmt.Errorf("failed to create patient: %w", translate(err, "patient "+patient.Key().String()))
	}
	return nil
}

func (r *patientRepository) Get(ctx context.Context, key model.PatientKey) (patient *model.Patient, err error) {
	defer r.track("select_patient", time.Now(), &err)

	p := patientKeyPredicate(key)
	var row patientRow
	err = r.get(ctx, r.ext(), &row, selectPatients+p.where(), p.args)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get patient: %w", err)
	}
	return row.toModel(), nil
}

func (r *patientRepository) List(ctx context.Context) (patients []*model.Patient, err error) {
	defer r.track("select_patients", time.Now(), &err)

	var rows []patientRow
	if err := r.selectAll(ctx, r.ext(), &rows, selectPatients+" ORDER BY rowid", nil); err != nil {
		return nil, fmt.Errorf("failed to list patients: %w", err)
	}

	patients = make([]*model.Patient, 0, len(rows))
	for _, row := range rows {
		patients = append(patients, row.toModel())
	}
	return patients, nil
}
