package service

import (
	"errors"
	"fmt"

	"github.com/jesses-code-adventures/billing/internal/models"
)

var (
	ErrNoActiveContract     = errors.New("no active contract")
	ErrInvalidPeriod        = errors.New("invalid billing period: start is after end")
	ErrInvalidConfiguration = errors.New("invalid billing configuration")
)

// NoActiveContractError is returned by calculators that need a contract of a
// specific type and find none. It is a business error and is never retried.
type NoActiveContractError struct {
	ProjectID    string
	ContractType models.ContractType
}

func (e *NoActiveContractError) Error() string {
	return fmt.Sprintf("project %s has no active %s contract", e.ProjectID, e.ContractType)
}

func (e *NoActiveContractError) Is(target error) bool {
	return target == ErrNoActiveContract
}
