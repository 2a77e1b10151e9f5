package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/patrickmn/go-cache"

	"github.com/jwalitptl/clinic-store/internal/model"
	"github.com/jwalitptl/clinic-store/internal/repository"
	apperrors "github.com/jwalitptl/clinic-store/pkg/errors"
)

type employeeRepository struct {
	BaseRepository
}

func NewEmployeeRepository(base BaseRepository) repository.EmployeeRepository {
	return &employeeRepository{BaseRepository: base}
}

const selectEmployees = `SELECT name, employee_number, role FROM employees`

func (r *employeeRepository) Create(ctx context.Context, employee model.Employee) (err error) {
	defer r.track("insert_employee", time.Now(), &err)

	if employee == nil {
		return apperrors.NewBadRequest("employee is required", nil)
	}
	if err := r.validate("employee", employee); err != nil {
		return err
	}

	params := employeeParams(employee)
	err = r.WithTx(ctx, func(tx *sqlx.Tx) error {
		if err := r.checkIntegerForm(ctx, tx, employee.EmployeeNumber(), params); err != nil {
			return err
		}
		query := `INSERT INTO employees(name, employee_number, role) VALUES(:name, :employee_number, :role)`
		if _, err := r.exec(ctx, tx, query, params); err != nil {
			return fmt.Errorf("failed to create employee: %w", translate(err, "employee "+employee.EmployeeNumber()))
		}
		return nil
	})
	if err != nil {
		return err
	}

	// cache what a read would return, without non-persisted fields
	stored := model.NewEmployee(employee.Role(), employee.Name(), employee.EmployeeNumber())
	r.employees.Set(stored.EmployeeNumber(), stored, cache.DefaultExpiration)
	return nil
}

// checkIntegerForm rejects a number that appointments.employee_number would
// store like an existing one, e.g. "007" next to "7".
func (r *employeeRepository) checkIntegerForm(ctx context.Context, tx *sqlx.Tx, number string, params map[string]interface{}) error {
	form, ok := integerForm(number)
	if !ok {
		return nil
	}

	var candidates []string
	query := `SELECT employee_number FROM employees
		WHERE employee_number <> :employee_number
		AND CAST(employee_number AS REAL) = CAST(:employee_number AS REAL)`
	if err := r.selectAll(ctx, tx, &candidates, query, params); err != nil {
		return fmt.Errorf("failed to check employee number: %w", err)
	}
	for _, other := range candidates {
		if f, ok := integerForm(other); ok && f == form {
			return apperrors.NewConflict("employee "+number,
				fmt.Errorf("employee number %q is stored as %s, like %q", number, form, other))
		}
	}
	return nil
}

func (r *employeeRepository) Get(ctx context.Context, employeeNumber string) (employee model.Employee, err error) {
	if cached, ok := r.employees.Get(employeeNumber); ok {
		r.metrics.CacheResult(true)
		return cached.(model.Employee), nil
	}
	r.metrics.CacheResult(false)

	defer r.track("select_employee", time.Now(), &err)

	var row employeeRow
	p := employeePredicate(&model.EmployeeFilters{EmployeeNumber: &employeeNumber})
	err = r.get(ctx, r.ext(), &row, selectEmployees+p.where(), p.args)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get employee: %w", err)
	}

	employee = row.toModel()
	r.employees.Set(employeeNumber, employee, cache.DefaultExpiration)
	return employee, nil
}

func (r *employeeRepository) List(ctx context.Context, filters *model.EmployeeFilters) (employees []model.Employee, err error) {
	defer r.track("select_employees", time.Now(), &err)

	p := employeePredicate(filters)
	var rows []employeeRow
	if err := r.selectAll(ctx, r.ext(), &rows, selectEmployees+p.where()+" ORDER BY name, employee_number", p.args); err != nil {
		return nil, fmt.Errorf("failed to list employees: %w", err)
	}

	employees = make([]model.Employee, 0, len(rows))
	for _, row := range rows {
		employees = append(employees, row.toModel())
	}
	return employees, nil
}

func (r *employeeRepository) listRole(ctx context.Context, role model.Role) ([]model.Employee, error) {
	return r.List(ctx, &model.EmployeeFilters{Role: &role})
}

func (r *employeeRepository) ListDoctors(ctx context.Context) ([]model.Employee, error) {
	return r.listRole(ctx, model.RoleDoctor)
}

func (r *employeeRepository) ListNurses(ctx context.Context) ([]model.Employee, error) {
	return r.listRole(ctx, model.RoleNurse)
}

func (r *employeeRepository) ListReceptionists(ctx context.Context) ([]model.Employee, error) {
	return r.listRole(ctx, model.RoleReceptionist)
}
