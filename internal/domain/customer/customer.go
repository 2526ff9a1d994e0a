package customer

import (
	"customer-ms/internal/pkg/apperrors"
	"regexp"
	"strings"

	"github.com/google/uuid"
)

const dniLength = 8

var emailPattern = regexp.MustCompile(`^(?i)[A-Z0-9._%+-]+@[A-Z0-9.-]+\.[A-Z]{2,6}$`)

type Customer struct {
	ID        uuid.UUID `json:"id"`
	GivenName string    `json:"givenName"`
	Surname   string    `json:"surname"`
	DNI       string    `json:"dni"`
	Email     string    `json:"email"`
}

// NewCustomer validates every field before returning; a customer with an
// invalid field is never constructed.
func NewCustomer(givenName, surname, dni, email string) (*Customer, error) {
	c := &Customer{ID: uuid.New()}
	if err := c.SetGivenName(givenName); err != nil {
		return nil, err
	}
	if err := c.SetSurname(surname); err != nil {
		return nil, err
	}
	if err := c.SetDNI(dni); err != nil {
		return nil, err
	}
	if err := c.SetEmail(email); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Customer) SetGivenName(givenName string) error {
	if strings.TrimSpace(givenName) == "" {
		return apperrors.NewValidationError("givenName", "provide a given name")
	}
	c.GivenName = givenName
	return nil
}

func (c *Customer) SetSurname(surname string) error {
	if strings.TrimSpace(surname) == "" {
		return apperrors.NewValidationError("surname", "provide a surname")
	}
	c.Surname = surname
	return nil
}

func (c *Customer) SetDNI(dni string) error {
	if strings.TrimSpace(dni) == "" || len(dni) != dniLength {
		return apperrors.NewValidationError("dni", "invalid national ID, must be 8 characters")
	}
	c.DNI = dni
	return nil
}

func (c *Customer) SetEmail(email string) error {
	if strings.TrimSpace(email) == "" {
		return apperrors.NewValidationError("email", "provide an email")
	}
	if !emailPattern.MatchString(email) {
		return apperrors.NewValidationError("email", "invalid email")
	}
	c.Email = email
	return nil
}
