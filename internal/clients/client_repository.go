package clients

import (
	"fmt"

	"github.com/NatiEfraim/tokyo-api-sub000/internal/repository"
	"github.com/NatiEfraim/tokyo-api-sub000/pkg/metadata"
	"github.com/NatiEfraim/tokyo-api-sub000/pkg/models"

	"github.com/doug-martin/goqu/v9"
)

// ClientRepository maintains requester identities. Clients are keyed by
// personal number and upserted on every order placement, so a changed
// employee type or department is picked up without a separate edit flow.
type ClientRepository interface {
	GetClient(id int) (*models.Client, error)
	UpsertClient(tx *goqu.TxDatabase, client models.Client) (int, error)
}

type clientRepository struct {
	repo        *repository.Repository
	emailDomain string
}

func NewRepository(r *repository.Repository, emailDomain string) ClientRepository {
	return &clientRepository{repo: r, emailDomain: emailDomain}
}

func (r *clientRepository) GetClient(id int) (*models.Client, error) {
	var client models.Client

	found, err := r.repo.GoquDBWrapper.
		Select("id", "personal_number", "name", "employee_type", "department_id", "phone", "email").
		From("clients").
		Where(goqu.Ex{"id": id, "deleted": false}).
		Executor().
		ScanStruct(&client)
	if err != nil {
		return nil, fmt.Errorf("failed to get client: %w", err)
	}
	if !found {
		return nil, fmt.Errorf("client %d not found", id)
	}

	return &client, nil
}

// UpsertClient creates or refreshes the client row for a personal number and
// returns its id. The email is always regenerated from the population prefix;
// an employee type outside the closed enum fails the whole order placement.
func (r *clientRepository) UpsertClient(tx *goqu.TxDatabase, client models.Client) (int, error) {
	employeeType, err := metadata.NewEmployeeType(string(client.EmployeeType))
	if err != nil {
		return 0, err
	}

	email, err := employeeType.GenerateEmail(client.PersonalNumber, r.emailDomain)
	if err != nil {
		return 0, err
	}

	query := tx.Insert("clients").
		Rows(goqu.Record{
			"personal_number": client.PersonalNumber,
			"name":            client.Name,
			"employee_type":   string(employeeType),
			"department_id":   client.DepartmentID,
			"phone":           client.Phone,
			"email":           email,
		}).
		OnConflict(goqu.DoUpdate("personal_number", goqu.Record{
			"name":          client.Name,
			"employee_type": string(employeeType),
			"department_id": client.DepartmentID,
			"phone":         client.Phone,
			"email":         email,
			"deleted":       false,
		})).
		Returning("id")

	var clientID int
	if _, err := query.Executor().ScanVal(&clientID); err != nil {
		return 0, fmt.Errorf("failed to upsert client %d: %w", client.PersonalNumber, err)
	}

	return clientID, nil
}
