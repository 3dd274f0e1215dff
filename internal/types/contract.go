package types

import (
	"fmt"

	ierr "github.com/contractflow/contractflow/internal/errors"
	"github.com/samber/lo"
)

// ContractType identifies which kind of parties a contract binds
type ContractType string

const (
	// ContractTypePresentableToUser is signed between a node (presentable owner) and an end user
	ContractTypePresentableToUser ContractType = "PRESENTABLE_TO_USER"
	// ContractTypeResourceToNode is signed between a resource author and a node
	ContractTypeResourceToNode ContractType = "RESOURCE_TO_NODE"
	// ContractTypeResourceToResource is signed between two resource authors
	ContractTypeResourceToResource ContractType = "RESOURCE_TO_RESOURCE"
)

func (t ContractType) String() string {
	return string(t)
}

func (t ContractType) Validate() error {
	allowed := []ContractType{
		ContractTypePresentableToUser,
		ContractTypeResourceToNode,
		ContractTypeResourceToResource,
	}
	if !lo.Contains(allowed, t) {
		return ierr.NewError("invalid contract type").
			WithHintf("Contract type must be one of %v", allowed).
			Mark(ierr.ErrValidation)
	}
	return nil
}

// ContractStatus is the lifecycle state of a contract. Only the contract FSM
// may move a contract from one status to another.
type ContractStatus string

const (
	ContractStatusCreated        ContractStatus = "CREATED"
	ContractStatusActive         ContractStatus = "ACTIVE"
	ContractStatusPendingPayment ContractStatus = "PENDING_PAYMENT"
	ContractStatusExpired        ContractStatus = "EXPIRED"
	ContractStatusTerminated     ContractStatus = "TERMINATED"
	ContractStatusFailed         ContractStatus = "FAILED"
)

func (s ContractStatus) String() string {
	return string(s)
}

func (s ContractStatus) Validate() error {
	allowed := []ContractStatus{
		ContractStatusCreated,
		ContractStatusActive,
		ContractStatusPendingPayment,
		ContractStatusExpired,
		ContractStatusTerminated,
		ContractStatusFailed,
	}
	if !lo.Contains(allowed, s) {
		return fmt.Errorf("invalid contract status: %s", s)
	}
	return nil
}

// IsTerminal reports whether no event may move the contract out of this status.
// Failed is terminal until an operator intervenes.
func (s ContractStatus) IsTerminal() bool {
	switch s {
	case ContractStatusExpired, ContractStatusTerminated, ContractStatusFailed:
		return true
	}
	return false
}

// CycleType tells whether a contract is settled once or every billing period
type CycleType string

const (
	CycleTypeOneTime   CycleType = "ONE_TIME"
	CycleTypeRecurring CycleType = "RECURRING"
)

func (c CycleType) String() string {
	return string(c)
}

func (c CycleType) Validate() error {
	allowed := []CycleType{
		CycleTypeOneTime,
		CycleTypeRecurring,
	}
	if !lo.Contains(allowed, c) {
		return ierr.NewError("invalid cycle type").
			WithHintf("Cycle type must be one of %v", allowed).
			Mark(ierr.ErrValidation)
	}
	return nil
}
