package service

import (
	"context"
	"time"

	"github.com/contractflow/contractflow/internal/domain/changehistory"
	"github.com/contractflow/contractflow/internal/domain/contract"
	"github.com/contractflow/contractflow/internal/domain/settlement"
	ierr "github.com/contractflow/contractflow/internal/errors"
	"github.com/contractflow/contractflow/internal/types"
)

type ContractService interface {
	CreateContract(ctx context.Context, c *contract.Contract) (*contract.Contract, error)
	GetContract(ctx context.Context, id string) (*contract.Contract, error)
	GetChangeHistory(ctx context.Context, id string) ([]*changehistory.ChangeHistory, error)
	HandleAccountRecharge(ctx context.Context, partyID, rechargeID string) (*RechargeResult, error)
}

// RechargeResult summarizes the try payments triggered by an account recharge
type RechargeResult struct {
	PartyID   string   `json:"party_id"`
	Due       int      `json:"due"`
	Submitted []string `json:"submitted"`
	Failed    []string `json:"failed"`
}

type contractService struct {
	ServiceParams
	fsm ContractFSMService
}

func NewContractService(params ServiceParams, fsm ContractFSMService) ContractService {
	return &contractService{ServiceParams: params, fsm: fsm}
}

// CreateContract stores a new contract in CREATED and starts its state machine.
// When initialization fails the stored contract is returned with the error.
func (s *contractService) CreateContract(ctx context.Context, c *contract.Contract) (*contract.Contract, error) {
	if c == nil {
		return nil, ierr.NewError("contract is required").Mark(ierr.ErrValidation)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}

	if c.ID == "" {
		c.ID = types.GenerateUUIDWithPrefix(types.UUID_PREFIX_CONTRACT)
	}
	c.BaseModel = types.GetDefaultBaseModel(ctx)
	c.ContractStatus = types.ContractStatusCreated
	c.FirstActivatedAt = nil

	if c.IsRecurring() && c.NextSettlementDate == nil {
		first, err := types.NextSettlementDate(c.CreatedAt, c.SettlementPeriodUnit, c.SettlementPeriod)
		if err != nil {
			return nil, ierr.WithError(err).
				WithHint("Failed to compute the first settlement date").
				Mark(ierr.ErrValidation)
		}
		c.NextSettlementDate = &first
	}

	if err := s.ContractRepo.Create(ctx, c); err != nil {
		return nil, err
	}

	s.Logger.Infow("contract created",
		"contract_id", c.ID,
		"seq_id", c.SeqID,
		"contract_type", c.ContractType,
		"cycle_type", c.CycleType,
	)

	initEvent := contract.NewEvent(types.EventInitContractFsm, c.ID, InitDedupeKey(c.ID), nil)
	if _, err := s.fsm.Apply(ctx, c.ID, initEvent); err != nil {
		s.Logger.Errorw("failed to initialize contract state machine",
			"contract_id", c.ID,
			"error", err,
		)
		return c, err
	}

	return s.ContractRepo.Get(ctx, c.ID)
}

func (s *contractService) GetContract(ctx context.Context, id string) (*contract.Contract, error) {
	if id == "" {
		return nil, ierr.NewError("contract id is required").
			WithHint("Contract ID is required").
			Mark(ierr.ErrValidation)
	}
	return s.ContractRepo.Get(ctx, id)
}

func (s *contractService) GetChangeHistory(ctx context.Context, id string) ([]*changehistory.ChangeHistory, error) {
	if _, err := s.GetContract(ctx, id); err != nil {
		return nil, err
	}
	return s.ChangeHistoryRepo.ListByContract(ctx, id)
}

// HandleAccountRecharge retries payment for every due cycle of the party's
// recurring contracts. Contracts still pending payment get their charge
// re-sent once per rechargeID. A failure on one contract does not stop the others.
func (s *contractService) HandleAccountRecharge(ctx context.Context, partyID, rechargeID string) (*RechargeResult, error) {
	if partyID == "" {
		return nil, ierr.NewError("party id is required").
			WithHint("Account recharge events must carry a party id").
			Mark(ierr.ErrValidation)
	}

	due, err := s.ContractRepo.ListDueByParty(ctx, partyID, time.Now().UTC())
	if err != nil {
		return nil, err
	}

	if rechargeID == "" {
		rechargeID = types.GenerateUUID()
	}

	result := &RechargeResult{
		PartyID:   partyID,
		Due:       len(due),
		Submitted: []string{},
		Failed:    []string{},
	}
	for _, c := range due {
		record := settlement.RecordFromContract(c)
		event := NewTryPaymentEvent(record)
		if c.ContractStatus == types.ContractStatusPendingPayment {
			event = NewRechargeTryPaymentEvent(record, rechargeID)
		}
		_, err := s.fsm.Apply(ctx, c.ID, event)
		if err != nil && !ierr.IsDuplicateEvent(err) {
			s.Logger.Warnw("try payment after recharge failed",
				"party_id", partyID,
				"contract_id", c.ID,
				"error", err,
			)
			result.Failed = append(result.Failed, c.ID)
			continue
		}
		result.Submitted = append(result.Submitted, c.ID)
	}

	s.Logger.Infow("handled account recharge",
		"party_id", partyID,
		"recharge_id", rechargeID,
		"due", result.Due,
		"submitted", len(result.Submitted),
		"failed", len(result.Failed),
	)
	return result, nil
}
