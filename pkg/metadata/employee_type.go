package metadata

import (
	"fmt"
	"strings"

	custom_error "github.com/NatiEfraim/tokyo-api-sub000/pkg/errors"
)

// EmployeeType is the personnel category of a requesting client. The category
// decides the population prefix used in generated identifiers and emails.
type EmployeeType string

const (
	EmployeeTypeKeva       EmployeeType = "keva"
	EmployeeTypeSadir      EmployeeType = "sadir"
	EmployeeTypeMiluim     EmployeeType = "miluim"
	EmployeeTypeOvedTzahal EmployeeType = "oved_tzahal"
)

func NewEmployeeType(value string) (EmployeeType, error) {
	employeeType := EmployeeType(strings.ToLower(value))
	if !employeeType.isValid() {
		return "", &custom_error.InvalidEmployeeTypeError{EmployeeType: value}
	}
	return employeeType, nil
}

func (e EmployeeType) isValid() bool {
	switch e {
	case EmployeeTypeKeva, EmployeeTypeSadir, EmployeeTypeMiluim, EmployeeTypeOvedTzahal:
		return true
	default:
		return false
	}
}

// PopulationPrefix maps the category onto the single-letter prefix prepended
// to a personal number: s for career/conscript, m for reserve, c for civilian.
// The default branch is a real error, not a fallback.
func (e EmployeeType) PopulationPrefix() (string, error) {
	switch e {
	case EmployeeTypeKeva, EmployeeTypeSadir:
		return "s", nil
	case EmployeeTypeMiluim:
		return "m", nil
	case EmployeeTypeOvedTzahal:
		return "c", nil
	default:
		return "", &custom_error.InvalidEmployeeTypeError{EmployeeType: string(e)}
	}
}

// GenerateEmail builds the derived address, e.g. s1234567@<domain>.
func (e EmployeeType) GenerateEmail(personalNumber int, domain string) (string, error) {
	prefix, err := e.PopulationPrefix()
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s%d@%s", prefix, personalNumber, domain), nil
}
