package departments

import (
	"errors"
	"fmt"

	"github.com/NatiEfraim/tokyo-api-sub000/internal/repository"
	custom_error "github.com/NatiEfraim/tokyo-api-sub000/pkg/errors"
	"github.com/NatiEfraim/tokyo-api-sub000/pkg/models"

	"github.com/doug-martin/goqu/v9"
	"github.com/lib/pq"
)

type DepartmentRepository interface {
	GetDepartments() ([]models.Department, error)
	PersistDepartment(department models.Department) (*models.Department, error)
	RemoveDepartment(id int) error
}

type departmentRepository struct {
	repo *repository.Repository
}

func NewRepository(r *repository.Repository) DepartmentRepository {
	return &departmentRepository{repo: r}
}

func (r *departmentRepository) GetDepartments() ([]models.Department, error) {
	var departmentRows []models.Department

	query := r.repo.GoquDBWrapper.
		Select("id", "name").
		From("departments").
		Where(goqu.Ex{"deleted": false}).
		Order(goqu.C("name").Asc())

	if err := query.Executor().ScanStructs(&departmentRows); err != nil {
		return nil, fmt.Errorf("error executing SQL statement: %w", err)
	}

	return departmentRows, nil
}

func (r *departmentRepository) PersistDepartment(department models.Department) (*models.Department, error) {
	query := r.repo.GoquDBWrapper.Insert("departments").
		Rows(goqu.Record{"name": department.Name}).
		Returning("id")

	if _, err := query.Executor().ScanVal(&department.ID); err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) {
			return nil, custom_error.WrapDBError("Duplicate department name", string(pqErr.Code))
		}
		return nil, fmt.Errorf("failed to insert department: %w", err)
	}

	return &department, nil
}

func (r *departmentRepository) RemoveDepartment(id int) error {
	_, err := r.repo.GoquDBWrapper.Update("departments").
		Set(goqu.Record{"deleted": true}).
		Where(goqu.Ex{"id": id}).
		Executor().
		Exec()
	if err != nil {
		return fmt.Errorf("failed to remove department %d: %w", id, err)
	}

	return nil
}
