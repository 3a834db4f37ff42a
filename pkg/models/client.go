package models

import "github.com/NatiEfraim/tokyo-api-sub000/pkg/metadata"

// Client is the requester identity a distribution is placed for. It is
// distinct from a system User: clients are upserted from request payloads and
// their email is derived from the population prefix, never entered by hand.
type Client struct {
	ID             int                   `db:"id" json:"id"`
	PersonalNumber int                   `db:"personal_number" json:"personal_number"`
	Name           string                `db:"name" json:"name"`
	EmployeeType   metadata.EmployeeType `db:"employee_type" json:"employee_type"`
	DepartmentID   int                   `db:"department_id" json:"department_id"`
	Phone          string                `db:"phone" json:"phone"`
	Email          string                `db:"email" json:"email"`
	Deleted        bool                  `db:"deleted" json:"-"`
}
