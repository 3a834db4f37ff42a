package users

import (
	"fmt"

	"github.com/NatiEfraim/tokyo-api-sub000/internal/repository"
	"github.com/NatiEfraim/tokyo-api-sub000/pkg/models"

	"github.com/doug-martin/goqu/v9"
)

type UserRepository interface {
	PersistUser(req models.CreateUserRequest, hashedPassword []byte) error
	GetUser(id int) (*models.User, error)
	GetUsers() ([]models.User, error)
	ExistsActive(id int) (bool, error)
	RemoveUser(id int) error
}

type userRepositoryImpl struct {
	repository *repository.Repository
}

func NewRepository(r *repository.Repository) UserRepository {
	return &userRepositoryImpl{repository: r}
}

func (r *userRepositoryImpl) PersistUser(req models.CreateUserRequest, hashedPassword []byte) error {
	query := r.repository.GoquDBWrapper.Insert("users").
		Rows(goqu.Record{
			"personal_number": req.PersonalNumber,
			"username":        req.Username,
			"fullname":        req.Fullname,
			"email":           req.Email,
			"password_hash":   string(hashedPassword),
			"role":            req.Role,
		})

	if _, err := query.Executor().Exec(); err != nil {
		return fmt.Errorf("failed to insert user: %w", err)
	}

	return nil
}

func (r *userRepositoryImpl) GetUsers() ([]models.User, error) {
	var userRows []models.User

	query := r.repository.GoquDBWrapper.
		Select("id", "personal_number", "username", "fullname", "email", "role").
		From("users").
		Where(goqu.Ex{"deleted": false})

	if err := query.Executor().ScanStructs(&userRows); err != nil {
		return nil, fmt.Errorf("error executing SQL statement: %w", err)
	}

	return userRows, nil
}

func (r *userRepositoryImpl) GetUser(id int) (*models.User, error) {
	var user models.User

	found, err := r.repository.GoquDBWrapper.
		Select("id", "personal_number", "username", "fullname", "email", "password_hash", "role").
		From("users").
		Where(goqu.Ex{"id": id, "deleted": false}).
		Executor().
		ScanStruct(&user)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if !found {
		return nil, fmt.Errorf("user %d not found", id)
	}

	return &user, nil
}

// ExistsActive answers the allocation engine's creator precondition without
// pulling the whole row.
func (r *userRepositoryImpl) ExistsActive(id int) (bool, error) {
	var count int

	_, err := r.repository.GoquDBWrapper.
		Select(goqu.COUNT("id")).
		From("users").
		Where(goqu.Ex{"id": id, "deleted": false}).
		Executor().
		ScanVal(&count)
	if err != nil {
		return false, fmt.Errorf("failed to check user existence: %w", err)
	}

	return count > 0, nil
}

func (r *userRepositoryImpl) RemoveUser(id int) error {
	_, err := r.repository.GoquDBWrapper.Update("users").
		Set(goqu.Record{"deleted": true}).
		Where(goqu.Ex{"id": id}).
		Executor().
		Exec()
	if err != nil {
		return fmt.Errorf("failed to remove user %d: %w", id, err)
	}

	return nil
}
