package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/suite"

	"github.com/jwalitptl/clinic-store/internal/config"
	"github.com/jwalitptl/clinic-store/internal/model"
	"github.com/jwalitptl/clinic-store/internal/repository"
	apperrors "github.com/jwalitptl/clinic-store/pkg/errors"
	"github.com/jwalitptl/clinic-store/pkg/logger"
	"github.com/jwalitptl/clinic-store/pkg/metrics"
)

type StoreSuite struct {
	suite.Suite
	ctx     context.Context
	db      *DB
	store   *Store
	metrics *metrics.Metrics
}

func TestStoreSuite(t *testing.T) {
	suite.Run(t, new(StoreSuite))
}

func (s *StoreSuite) SetupTest() {
	s.ctx = context.Background()
	db, err := NewDB(s.ctx, config.StoreConfig{Path: filepath.Join(s.T().TempDir(), "clinic.db")}, logger.Nop())
	s.Require().NoError(err)
	s.db = db
	s.metrics = metrics.New("test")
	s.store = NewStore(db, WithMetrics(s.metrics), WithLocation(time.UTC))
}

func (s *StoreSuite) TearDownTest() {
	s.Require().NoError(s.db.Close())
}

func at(day, hour, minute int) time.Time {
	return time.Date(2024, time.March, day, hour, minute, 0, 0, time.UTC)
}

func (s *StoreSuite) hire(e model.Employee) model.Employee {
	s.Require().NoError(s.store.Employees.Create(s.ctx, e))
	return e
}

func (s *StoreSuite) register(first, surname string) *model.Patient {
	p := model.NewPatient(first, surname, "1 Main St", "555-0100")
	s.Require().NoError(s.store.Patients.Create(s.ctx, p))
	return p
}

func (s *StoreSuite) book(kind model.AppointmentType, staff model.Employee, patient *model.Patient, date time.Time) *model.Appointment {
	a := &model.Appointment{Type: kind, Staff: staff, Patient: patient, Date: date}
	s.Require().NoError(s.store.Appointments.Create(s.ctx, a))
	return a
}

func (s *StoreSuite) list(f *model.AppointmentFilters) []*model.Appointment {
	got, err := s.store.Appointments.List(s.ctx, f)
	s.Require().NoError(err)
	return got
}

func dates(as []*model.Appointment) []time.Time {
	out := make([]time.Time, 0, len(as))
	for _, a := range as {
		out = append(out, a.Date)
	}
	return out
}

// employees

func (s *StoreSuite) TestEmployeeRoundTripPicksVariant() {
	s.hire(model.NewDoctor("Alice", "E1"))
	s.hire(model.NewNurse("Carol", "E2"))
	s.hire(model.NewReceptionist("Dave", "E3", "front"))

	for number, want := range map[string]model.Employee{
		"E1": model.NewDoctor("Alice", "E1"),
		"E2": model.NewNurse("Carol", "E2"),
		"E3": model.NewReceptionist("Dave", "E3", ""),
	} {
		filtered, err := s.store.Employees.List(s.ctx, &model.EmployeeFilters{EmployeeNumber: &number})
		s.Require().NoError(err)
		s.Require().Len(filtered, 1)
		s.Equal(want, filtered[0])
	}
}

func (s *StoreSuite) TestReceptionistDeskIsNotPersisted() {
	s.hire(model.NewReceptionist("Dave", "E3", "front"))

	got, err := s.store.Employees.Get(s.ctx, "E3")
	s.Require().NoError(err)
	s.Equal(model.NewReceptionist("Dave", "E3", ""), got)
}

func (s *StoreSuite) TestEmployeeFilters() {
	s.hire(model.NewDoctor("Alice", "E1"))
	s.hire(model.NewDoctor("Bruno", "E2"))
	s.hire(model.NewNurse("Carol", "E3"))
	s.hire(model.NewReceptionist("Dave", "E4", ""))

	all, err := s.store.Employees.List(s.ctx, nil)
	s.Require().NoError(err)
	s.Len(all, 4)

	doctors, err := s.store.Employees.ListDoctors(s.ctx)
	s.Require().NoError(err)
	s.Equal([]model.Employee{model.NewDoctor("Alice", "E1"), model.NewDoctor("Bruno", "E2")}, doctors)

	nurses, err := s.store.Employees.ListNurses(s.ctx)
	s.Require().NoError(err)
	s.Equal([]model.Employee{model.NewNurse("Carol", "E3")}, nurses)

	receptionists, err := s.store.Employees.ListReceptionists(s.ctx)
	s.Require().NoError(err)
	s.Len(receptionists, 1)

	role, number := model.RoleNurse, "E1"
	none, err := s.store.Employees.List(s.ctx, &model.EmployeeFilters{Role: &role, EmployeeNumber: &number})
	s.Require().NoError(err)
	s.Empty(none)
}

func (s *StoreSuite) TestDuplicateEmployeeNumberAcrossRoles() {
	s.hire(model.NewDoctor("Alice", "E1"))

	err := s.store.Employees.Create(s.ctx, model.NewNurse("Carol", "E1"))
	s.Require().Error(err)
	s.True(apperrors.IsConflict(err))

	got, err := s.store.Employees.Get(s.ctx, "E1")
	s.Require().NoError(err)
	s.Equal(model.NewDoctor("Alice", "E1"), got)
}

func (s *StoreSuite) TestEmployeeNumbersStoredAlikeConflict() {
	s.hire(model.NewDoctor("Seven", "7"))

	for _, number := range []string{"007", "7.0", "+7"} {
		err := s.store.Employees.Create(s.ctx, model.NewNurse("Bond", number))
		s.True(apperrors.IsConflict(err), "%s: %v", number, err)

		got, err := s.store.Employees.Get(s.ctx, number)
		s.Require().NoError(err)
		s.Nil(got, number)
	}

	s.hire(model.NewNurse("Bond", "E7"))
	s.hire(model.NewNurse("Eight", "8"))

	bob := s.register("Bob", "Smith")
	s.book(model.AppointmentTypeCheckup, model.NewDoctor("Seven", "7"), bob, at(1, 9, 0))

	got := s.list(nil)
	s.Require().Len(got, 1)
	s.Equal("7", got[0].Staff.EmployeeNumber())
}

func (s *StoreSuite) TestEmployeeValidation() {
	err := s.store.Employees.Create(s.ctx, model.NewDoctor(" ", "E1"))
	s.True(apperrors.IsBadRequest(err))

	err = s.store.Employees.Create(s.ctx, nil)
	s.True(apperrors.IsBadRequest(err))
}

func (s *StoreSuite) TestGetMissingEmployeeIsAbsent() {
	got, err := s.store.Employees.Get(s.ctx, "nobody")
	s.NoError(err)
	s.Nil(got)
}

func (s *StoreSuite) TestEmployeeGetUsesCache() {
	s.hire(model.NewDoctor("Alice", "E1"))

	_, err := s.store.Employees.Get(s.ctx, "E1")
	s.Require().NoError(err)
	_, err = s.store.Employees.Get(s.ctx, "E9")
	s.Require().NoError(err)

	s.Equal(1.0, testutil.ToFloat64(s.metrics.CacheLookups.WithLabelValues("hit")))
	s.Equal(1.0, testutil.ToFloat64(s.metrics.CacheLookups.WithLabelValues("miss")))
}

// patients

func (s *StoreSuite) TestPatientRoundTrip() {
	in := model.NewPatient("Bob", "Smith", "1 Main St", "555-0100")
	s.Require().NoError(s.store.Patients.Create(s.ctx, in))

	got, err := s.store.Patients.Get(s.ctx, in.Key())
	s.Require().NoError(err)
	s.Equal(in, got)
	s.NotSame(in, got)
}

func (s *StoreSuite) TestPatientIdentityIsUnique() {
	s.Require().NoError(s.store.Patients.Create(s.ctx, model.NewPatient("Bob", "Smith", "1 Main St", "555-0100")))

	err := s.store.Patients.Create(s.ctx, model.NewPatient("Bob", "Smith", "9 Elm Rd", "555-0199"))
	s.Require().Error(err)
	s.True(apperrors.IsConflict(err))

	got, err := s.store.Patients.Get(s.ctx, model.PatientKey{FirstName: "Bob", Surname: "Smith"})
	s.Require().NoError(err)
	s.Equal("1 Main St", got.Address)
	s.Equal("555-0100", got.Phone)
}

func (s *StoreSuite) TestGetMissingPatientIsAbsent() {
	s.register("Bob", "Smith")

	got, err := s.store.Patients.Get(s.ctx, model.PatientKey{FirstName: "Bob", Surname: "Jones"})
	s.NoError(err)
	s.Nil(got)
}

func (s *StoreSuite) TestListPatientsInInsertionOrder() {
	s.register("Zoe", "Adams")
	s.register("Bob", "Smith")

	got, err := s.store.Patients.List(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(got, 2)
	s.Equal("Zoe", got[0].FirstName)
	s.Equal("Bob", got[1].FirstName)
}

func (s *StoreSuite) TestPatientValidation() {
	err := s.store.Patients.Create(s.ctx, model.NewPatient("", "Smith", "", ""))
	s.True(apperrors.IsBadRequest(err))
}

// appointments

func (s *StoreSuite) TestExampleScenario() {
	alice := s.hire(model.NewDoctor("Alice", "E1"))
	bob := s.register("Bob", "Smith")
	s.book(model.AppointmentTypeCheckup, alice, bob, at(1, 9, 0))

	day := time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC)
	got := s.list(&model.AppointmentFilters{Day: &day})

	s.Require().Len(got, 1)
	s.Equal(model.AppointmentTypeCheckup, got[0].Type)
	s.IsType(model.Doctor{}, got[0].Staff)
	s.Equal("Alice", got[0].Staff.Name())
	s.Equal("Bob", got[0].Patient.FirstName)
	s.Equal("Smith", got[0].Patient.Surname)
	s.Equal(at(1, 9, 0), got[0].Date)
}

func (s *StoreSuite) TestDayFilter() {
	alice := s.hire(model.NewDoctor("Alice", "E1"))
	bob := s.register("Bob", "Smith")
	s.book(model.AppointmentTypeCheckup, alice, bob, at(1, 9, 0))
	want := s.book(model.AppointmentTypeCheckup, alice, bob, at(2, 23, 59))
	s.book(model.AppointmentTypeCheckup, alice, bob, at(3, 0, 0))

	day := at(2, 12, 0)
	got := s.list(&model.AppointmentFilters{Day: &day})
	s.Require().Len(got, 1)
	s.Equal(want.Date, got[0].Date)
}

func (s *StoreSuite) TestDayFilterUsesCallerDate() {
	newYork := time.FixedZone("UTC-5", -5*60*60)
	store := NewStore(s.db, WithLocation(newYork))

	alice := model.NewDoctor("Alice", "E1")
	s.Require().NoError(store.Employees.Create(s.ctx, alice))
	bob := model.NewPatient("Bob", "Smith", "", "")
	s.Require().NoError(store.Patients.Create(s.ctx, bob))
	s.Require().NoError(store.Appointments.Create(s.ctx, &model.Appointment{
		Type: model.AppointmentTypeCheckup, Staff: alice, Patient: bob,
		Date: time.Date(2024, time.March, 1, 9, 0, 0, 0, newYork),
	}))

	day := time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC)
	got, err := store.Appointments.List(s.ctx, &model.AppointmentFilters{Day: &day})
	s.Require().NoError(err)
	s.Require().Len(got, 1)
	s.Equal(newYork, got[0].Date.Location())
	s.Equal(9, got[0].Date.Hour())

	late := time.Date(2024, time.March, 1, 23, 0, 0, 0, newYork)
	got, err = store.Appointments.List(s.ctx, &model.AppointmentFilters{Day: &late})
	s.Require().NoError(err)
	s.Len(got, 1)
}

func (s *StoreSuite) TestEmployeeSetFilter() {
	staff := []model.Employee{
		s.hire(model.NewDoctor("Alice", "E1")),
		s.hire(model.NewDoctor("Bruno", "E2")),
		s.hire(model.NewNurse("Carol", "E3")),
		s.hire(model.NewNurse("Dana", "E4")),
		s.hire(model.NewDoctor("Evan", "E5")),
	}
	bob := s.register("Bob", "Smith")
	for i, e := range staff {
		s.book(model.AppointmentTypeConsultation, e, bob, at(1+i, 10, 0))
		s.book(model.AppointmentTypeFollowUp, e, bob, at(10+i, 10, 0))
	}

	got := s.list(&model.AppointmentFilters{EmployeeNumbers: []string{"E2", "E4"}})
	s.Require().Len(got, 4)
	for _, a := range got {
		s.Contains([]string{"E2", "E4"}, a.Staff.EmployeeNumber())
	}
}

func (s *StoreSuite) TestEmptyEmployeeSetMatchesNothing() {
	alice := s.hire(model.NewDoctor("Alice", "E1"))
	bob := s.register("Bob", "Smith")
	s.book(model.AppointmentTypeCheckup, alice, bob, at(1, 9, 0))

	s.Empty(s.list(&model.AppointmentFilters{EmployeeNumbers: []string{}}))
	s.Len(s.list(&model.AppointmentFilters{EmployeeNumbers: nil}), 1)
	s.Len(s.list(nil), 1)
}

func (s *StoreSuite) TestPatientAndCombinedFilters() {
	alice := s.hire(model.NewDoctor("Alice", "E1"))
	carol := s.hire(model.NewNurse("Carol", "E2"))
	bob := s.register("Bob", "Smith")
	ann := s.register("Ann", "Smith")

	s.book(model.AppointmentTypeCheckup, alice, bob, at(1, 9, 0))
	s.book(model.AppointmentTypeCheckup, alice, ann, at(1, 10, 0))
	s.book(model.AppointmentTypeUrgent, carol, bob, at(1, 11, 0))
	s.book(model.AppointmentTypeCheckup, alice, bob, at(2, 9, 0))

	key := bob.Key()
	s.Len(s.list(&model.AppointmentFilters{Patient: &key}), 3)

	day := at(1, 0, 0)
	got := s.list(&model.AppointmentFilters{Patient: &key, Day: &day, EmployeeNumbers: []string{"E1"}})
	s.Require().Len(got, 1)
	s.Equal(at(1, 9, 0), got[0].Date)
	s.Equal("Bob", got[0].Patient.FirstName)
}

func (s *StoreSuite) TestListOrdersByDateThenStaffName() {
	zed := s.hire(model.NewDoctor("Zed", "E1"))
	amy := s.hire(model.NewNurse("Amy", "E2"))
	bob := s.register("Bob", "Smith")

	s.book(model.AppointmentTypeCheckup, zed, bob, at(5, 9, 0))
	s.book(model.AppointmentTypeCheckup, zed, bob, at(1, 9, 0))
	s.book(model.AppointmentTypeCheckup, zed, bob, at(3, 9, 0))
	s.book(model.AppointmentTypeCheckup, amy, bob, at(3, 9, 0))

	got := s.list(nil)
	s.Equal([]time.Time{at(1, 9, 0), at(3, 9, 0), at(3, 9, 0), at(5, 9, 0)}, dates(got))
	s.Equal("Amy", got[1].Staff.Name())
	s.Equal("Zed", got[2].Staff.Name())
}

func (s *StoreSuite) TestDeleteRemovesExactlyOne() {
	alice := s.hire(model.NewDoctor("Alice", "E1"))
	bob := s.register("Bob", "Smith")
	first := s.book(model.AppointmentTypeCheckup, alice, bob, at(1, 9, 0))
	s.book(model.AppointmentTypeCheckup, alice, bob, at(1, 10, 0))

	s.Require().NoError(s.store.Appointments.Delete(s.ctx, first))

	got := s.list(nil)
	s.Require().Len(got, 1)
	s.Equal(at(1, 10, 0), got[0].Date)
}

func (s *StoreSuite) TestDeleteMissingAppointment() {
	alice := s.hire(model.NewDoctor("Alice", "E1"))
	bob := s.register("Bob", "Smith")

	err := s.store.Appointments.Delete(s.ctx, &model.Appointment{
		Type: model.AppointmentTypeCheckup, Staff: alice, Patient: bob, Date: at(1, 9, 0),
	})
	s.True(apperrors.IsNotFound(err))
}

func (s *StoreSuite) TestDistinctDays() {
	alice := s.hire(model.NewDoctor("Alice", "E1"))
	bob := s.register("Bob", "Smith")

	days, err := s.store.Appointments.ListDays(s.ctx)
	s.Require().NoError(err)
	s.Empty(days)

	s.book(model.AppointmentTypeCheckup, alice, bob, at(12, 16, 0))
	s.book(model.AppointmentTypeCheckup, alice, bob, at(2, 9, 0))
	s.book(model.AppointmentTypeCheckup, alice, bob, at(2, 15, 30))

	days, err = s.store.Appointments.ListDays(s.ctx)
	s.Require().NoError(err)
	s.Equal([]string{"02-03-2024", "12-03-2024"}, days)
}

func (s *StoreSuite) TestCreateRequiresExistingPatientAndEmployee() {
	alice := s.hire(model.NewDoctor("Alice", "E1"))
	bob := s.register("Bob", "Smith")

	err := s.store.Appointments.Create(s.ctx, &model.Appointment{
		Type: model.AppointmentTypeCheckup, Staff: alice, Patient: model.NewPatient("Ghost", "Patient", "", ""), Date: at(1, 9, 0),
	})
	s.True(apperrors.IsReferential(err), "got %v", err)

	err = s.store.Appointments.Create(s.ctx, &model.Appointment{
		Type: model.AppointmentTypeCheckup, Staff: model.NewNurse("Ghost", "E404"), Patient: bob, Date: at(1, 9, 0),
	})
	s.True(apperrors.IsReferential(err), "got %v", err)

	s.Empty(s.list(nil))
}

func (s *StoreSuite) TestDuplicateAppointmentKey() {
	alice := s.hire(model.NewDoctor("Alice", "E1"))
	bob := s.register("Bob", "Smith")
	s.book(model.AppointmentTypeCheckup, alice, bob, at(1, 9, 0))

	err := s.store.Appointments.Create(s.ctx, &model.Appointment{
		Type: model.AppointmentTypeUrgent, Staff: alice, Patient: bob, Date: at(1, 9, 0),
	})
	s.True(apperrors.IsConflict(err), "got %v", err)

	got := s.list(nil)
	s.Require().Len(got, 1)
	s.Equal(model.AppointmentTypeCheckup, got[0].Type)
}

func (s *StoreSuite) TestNumericEmployeeNumbers() {
	staff := s.hire(model.NewNurse("Carol", "1001"))
	bob := s.register("Bob", "Smith")
	a := s.book(model.AppointmentTypeCheckup, staff, bob, at(1, 9, 0))

	got := s.list(&model.AppointmentFilters{EmployeeNumbers: []string{"1001"}})
	s.Require().Len(got, 1)
	s.Equal("1001", got[0].Staff.EmployeeNumber())

	s.Require().NoError(s.store.Appointments.Delete(s.ctx, a))
	s.Empty(s.list(nil))
}

func (s *StoreSuite) TestAppointmentValidation() {
	alice := s.hire(model.NewDoctor("Alice", "E1"))
	bob := s.register("Bob", "Smith")

	s.True(apperrors.IsBadRequest(s.store.Appointments.Create(s.ctx, nil)))
	s.True(apperrors.IsBadRequest(s.store.Appointments.Create(s.ctx, &model.Appointment{
		Type: model.AppointmentTypeCheckup, Patient: bob, Date: at(1, 9, 0),
	})))
	s.True(apperrors.IsBadRequest(s.store.Appointments.Create(s.ctx, &model.Appointment{
		Type: "SURGERY", Staff: alice, Patient: bob, Date: at(1, 9, 0),
	})))
	s.True(apperrors.IsBadRequest(s.store.Appointments.Create(s.ctx, &model.Appointment{
		Type: model.AppointmentTypeCheckup, Staff: alice, Patient: bob,
	})))
}

// transactions and metrics

func (s *StoreSuite) TestWithinTxCommits() {
	alice := s.hire(model.NewDoctor("Alice", "E1"))
	bob := model.NewPatient("Bob", "Smith", "", "")

	err := s.store.WithinTx(s.ctx, func(patients repository.PatientRepository, appointments repository.AppointmentRepository) error {
		if err := patients.Create(s.ctx, bob); err != nil {
			return err
		}
		return appointments.Create(s.ctx, &model.Appointment{Type: model.AppointmentTypeCheckup, Staff: alice, Patient: bob, Date: at(1, 9, 0)})
	})
	s.Require().NoError(err)
	s.Len(s.list(nil), 1)
}

func (s *StoreSuite) TestWithinTxRollsBack() {
	boom := errors.New("boom")
	err := s.store.WithinTx(s.ctx, func(patients repository.PatientRepository, _ repository.AppointmentRepository) error {
		s.Require().NoError(patients.Create(s.ctx, model.NewPatient("Bob", "Smith", "", "")))
		return boom
	})
	s.ErrorIs(err, boom)

	got, err := s.store.Patients.Get(s.ctx, model.PatientKey{FirstName: "Bob", Surname: "Smith"})
	s.Require().NoError(err)
	s.Nil(got)
}

func (s *StoreSuite) TestOperationsAreCounted() {
	s.register("Bob", "Smith")
	_ = s.store.Patients.Create(s.ctx, model.NewPatient("Bob", "Smith", "", ""))

	s.Equal(1.0, testutil.ToFloat64(s.metrics.DatabaseOperations.WithLabelValues("insert_patient", metrics.StatusOK)))
	s.Equal(1.0, testutil.ToFloat64(s.metrics.DatabaseOperations.WithLabelValues("insert_patient", metrics.StatusError)))
}
