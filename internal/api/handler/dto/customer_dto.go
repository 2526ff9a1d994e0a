package dto

import (
	"fmt"

	"customer-ms/internal/domain/customer"
)

// CustomerRequest is the wire shape for create and update. Every field is
// required on create; on update a nil field leaves the stored value unchanged.
type CustomerRequest struct {
	GivenName *string `json:"givenName"`
	Surname   *string `json:"surname"`
	DNI       *string `json:"dni"`
	Email     *string `json:"email"`
}

func (r *CustomerRequest) ValidateCreate() error {
	if r.GivenName == nil {
		return fmt.Errorf("givenName is required")
	}
	if r.Surname == nil {
		return fmt.Errorf("surname is required")
	}
	if r.DNI == nil {
		return fmt.Errorf("dni is required")
	}
	if r.Email == nil {
		return fmt.Errorf("email is required")
	}
	return nil
}

func (r *CustomerRequest) Update() customer.CustomerUpdate {
	return customer.CustomerUpdate{
		GivenName: r.GivenName,
		Surname:   r.Surname,
		DNI:       r.DNI,
		Email:     r.Email,
	}
}

type CustomerResponse struct {
	ID        string `json:"id"`
	GivenName string `json:"givenName"`
	Surname   string `json:"surname"`
	DNI       string `json:"dni"`
	Email     string `json:"email"`
}

func NewCustomerResponse(cust *customer.Customer) CustomerResponse {
	if cust == nil {
		return CustomerResponse{}
	}

	return CustomerResponse{
		ID:        cust.ID.String(),
		GivenName: cust.GivenName,
		Surname:   cust.Surname,
		DNI:       cust.DNI,
		Email:     cust.Email,
	}
}

type DeleteCustomerResponse struct {
	Message string `json:"message"`
}

type ErrorDetail struct {
	Code    string `json:"code,omitempty"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}
