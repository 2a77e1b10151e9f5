package sqlite

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/jwalitptl/clinic-store/internal/repository"
)

// Store bundles the repositories sharing one DB handle.
type Store struct {
	base         BaseRepository
	Employees    repository.EmployeeRepository
	Patients     repository.PatientRepository
	Appointments repository.AppointmentRepository
}

var _ repository.Transactor = (*Store)(nil)

func NewStore(db *DB, opts ...Option) *Store {
	base := NewBaseRepository(db, opts...)
	return &Store{
		base:         base,
		Employees:    NewEmployeeRepository(base),
		Patients:     NewPatientRepository(base),
		Appointments: NewAppointmentRepository(base),
	}
}

// WithinTx hands fn patient and appointment repositories bound to one
// transaction. The transaction commits when fn returns nil.
func (s *Store) WithinTx(ctx context.Context, fn func(patients repository.PatientRepository, appointments repository.AppointmentRepository) error) error {
	return s.base.WithTx(ctx, func(tx *sqlx.Tx) error {
		bound := s.base.bind(tx)
		return fn(NewPatientRepository(bound), NewAppointmentRepository(bound))
	})
}
