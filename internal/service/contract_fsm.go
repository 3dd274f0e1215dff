package service

import (
	"context"
	"fmt"
	"time"

	"github.com/contractflow/contractflow/internal/domain/changehistory"
	"github.com/contractflow/contractflow/internal/domain/contract"
	ierr "github.com/contractflow/contractflow/internal/errors"
	"github.com/contractflow/contractflow/internal/types"
)

// ContractFSMService is the only writer of contract status
type ContractFSMService interface {
	// Apply offers one event to a contract. Rejected and duplicate events return
	// a result describing the recorded outcome together with an error marked
	// ErrIllegalTransition or ErrDuplicateEvent.
	Apply(ctx context.Context, contractID string, e *contract.Event) (*ApplyResult, error)
	// Replay walks events through the transition table in memory, starting from
	// the contract's stored status. Nothing is persisted or published.
	Replay(ctx context.Context, contractID string, events []*contract.Event) (*ReplayResult, error)
}

type ApplyResult struct {
	ContractID string                  `json:"contract_id"`
	EventName  types.ContractEventName `json:"event_name"`
	FromStatus types.ContractStatus    `json:"from_status"`
	Status     types.ContractStatus    `json:"status"`
	Outcome    types.TransitionOutcome `json:"outcome"`
	HistoryID  string                  `json:"history_id,omitempty"`
}

type ReplayStep struct {
	EventName  types.ContractEventName `json:"event_name"`
	DedupeKey  string                  `json:"dedupe_key,omitempty"`
	FromStatus types.ContractStatus    `json:"from_status"`
	ToStatus   types.ContractStatus    `json:"to_status"`
	Outcome    types.TransitionOutcome `json:"outcome"`
	Reason     string                  `json:"reason,omitempty"`
}

type ReplayResult struct {
	ContractID    string               `json:"contract_id"`
	InitialStatus types.ContractStatus `json:"initial_status"`
	FinalStatus   types.ContractStatus `json:"final_status"`
	Steps         []ReplayStep         `json:"steps"`
}

type contractFSMService struct {
	ServiceParams
	registrar EventRegistrar
	locks     *keyedMutex
}

func NewContractFSMService(params ServiceParams, registrar EventRegistrar) ContractFSMService {
	return &contractFSMService{
		ServiceParams: params,
		registrar:     registrar,
		locks:         newKeyedMutex(),
	}
}

// transitionPanic marks a panic recovered while running a transition
type transitionPanic struct {
	value any
}

func (p transitionPanic) Error() string {
	return fmt.Sprintf("panic in transition: %v", p.value)
}

func (s *contractFSMService) Apply(ctx context.Context, contractID string, e *contract.Event) (*ApplyResult, error) {
	if e != nil && e.ContractID == "" {
		e.ContractID = contractID
	}
	if err := e.Validate(); err != nil {
		return nil, err
	}
	if e.ContractID != contractID {
		return nil, ierr.NewError("event contract id does not match").
			WithHint("Event must target the contract it is applied to").
			WithReportableDetails(map[string]any{"contract_id": contractID, "event_contract_id": e.ContractID}).
			Mark(ierr.ErrValidation)
	}

	unlock := s.locks.Lock(contractID)
	defer unlock()

	var (
		result     *ApplyResult
		outcomeErr error
	)

	err := s.DB.WithTx(ctx, func(txCtx context.Context) error {
		c, err := s.ContractRepo.GetForUpdate(txCtx, contractID)
		if err != nil {
			return err
		}

		from := c.ContractStatus
		result = &ApplyResult{
			ContractID: contractID,
			EventName:  e.Name,
			FromStatus: from,
			Status:     from,
		}

		if err := from.Validate(); err != nil {
			if err := s.fail(txCtx, c, e, result, err.Error()); err != nil {
				return err
			}
			outcomeErr = faultError(c, e, err.Error())
			return nil
		}

		t, ok := resolveTransition(from, e.Name)
		if !ok {
			outcomeErr = illegalTransition(c, e)
			return s.record(txCtx, c, e, result, from, types.TransitionOutcomeRejected, outcomeErr.Error())
		}

		if e.DedupeKey != "" {
			applied, err := s.ChangeHistoryRepo.HasApplied(txCtx, contractID, e.DedupeKey)
			if err != nil {
				return err
			}
			if applied {
				outcomeErr = ierr.NewError("event already applied").
					WithHintf("Event %s with dedupe key %s was already applied", e.Name, e.DedupeKey).
					WithReportableDetails(map[string]any{
						"contract_id": contractID,
						"event_name":  e.Name,
						"dedupe_key":  e.DedupeKey,
					}).
					Mark(ierr.ErrDuplicateEvent)
				return s.record(txCtx, c, e, result, from, types.TransitionOutcomeDuplicate, "already applied")
			}
		}

		next := c.Clone()
		if err := s.runTransition(txCtx, t, next, e); err != nil {
			if _, panicked := err.(transitionPanic); panicked || ierr.IsSystem(err) {
				if failErr := s.fail(txCtx, c, e, result, err.Error()); failErr != nil {
					return failErr
				}
				outcomeErr = faultError(c, e, err.Error())
				return nil
			}
			// side effect failed: roll back, record nothing
			return ierr.WithError(err).
				WithHintf("Failed to publish side effects of %s", e.Name).
				WithReportableDetails(map[string]any{"contract_id": contractID, "event_name": e.Name}).
				Mark(ierr.ErrPublish)
		}

		if err := s.ContractRepo.UpdateStatus(txCtx, next); err != nil {
			return err
		}
		return s.record(txCtx, next, e, result, from, types.TransitionOutcomeApplied, "")
	})
	if err != nil {
		s.Logger.Warnw("contract event not applied",
			"contract_id", contractID,
			"event_name", e.Name,
			"dedupe_key", e.DedupeKey,
			"error", err,
		)
		return nil, asStoreError(err)
	}

	s.Metrics.FSMOutcome(e.Name, result.Outcome)
	s.logOutcome(result, e, outcomeErr)
	return result, outcomeErr
}

// runTransition applies the mutation and side effect of t to next. A panic in
// either is returned as transitionPanic.
func (s *contractFSMService) runTransition(ctx context.Context, t transition, next *contract.Contract, e *contract.Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = transitionPanic{value: r}
		}
	}()

	from := next.ContractStatus
	target := t.target(from)
	if err := target.Validate(); err != nil {
		return ierr.WithError(err).
			WithHintf("Transition for %s has no valid target", e.Name).
			Mark(ierr.ErrSystem)
	}

	if t.mutate != nil {
		if err := t.mutate(next, e, time.Now().UTC()); err != nil {
			return err
		}
	}
	next.ContractStatus = target

	if t.effect != nil {
		if err := t.effect(ctx, s, next, e); err != nil {
			return err
		}
	}
	return nil
}

// record appends the history entry for the outcome and fills the result
func (s *contractFSMService) record(
	ctx context.Context,
	c *contract.Contract,
	e *contract.Event,
	result *ApplyResult,
	from types.ContractStatus,
	outcome types.TransitionOutcome,
	reason string,
) error {
	entry := changehistory.New(c.ID, from, c.ContractStatus, e.Name, e.DedupeKey, outcome, reason)
	if err := s.ChangeHistoryRepo.Append(ctx, entry); err != nil {
		return err
	}
	result.Status = c.ContractStatus
	result.Outcome = outcome
	result.HistoryID = entry.ID
	return nil
}

// fail moves the contract to Failed and records why
func (s *contractFSMService) fail(
	ctx context.Context,
	c *contract.Contract,
	e *contract.Event,
	result *ApplyResult,
	reason string,
) error {
	from := c.ContractStatus
	failed := c.Clone()
	failed.ContractStatus = types.ContractStatusFailed

	if err := s.ContractRepo.UpdateStatus(ctx, failed); err != nil {
		return err
	}
	if err := s.record(ctx, failed, e, result, from, types.TransitionOutcomeFailed, reason); err != nil {
		return err
	}

	s.Logger.Errorw("contract moved to failed",
		"contract_id", c.ID,
		"from_status", from,
		"event_name", e.Name,
		"reason", reason,
	)
	return nil
}

func faultError(c *contract.Contract, e *contract.Event, reason string) error {
	return ierr.NewError("unrecoverable contract fault").
		WithHint("The contract was moved to FAILED and needs operator attention").
		WithReportableDetails(map[string]any{
			"contract_id": c.ID,
			"from_status": c.ContractStatus,
			"event_name":  e.Name,
			"reason":      reason,
		}).
		Mark(ierr.ErrSystem)
}

func (s *contractFSMService) logOutcome(result *ApplyResult, e *contract.Event, outcomeErr error) {
	fields := []interface{}{
		"contract_id", result.ContractID,
		"event_name", e.Name,
		"dedupe_key", e.DedupeKey,
		"from_status", result.FromStatus,
		"status", result.Status,
		"outcome", result.Outcome,
	}
	switch result.Outcome {
	case types.TransitionOutcomeApplied:
		s.Logger.Infow("contract event applied", fields...)
	case types.TransitionOutcomeDuplicate:
		s.Logger.Infow("duplicate contract event ignored", fields...)
	case types.TransitionOutcomeRejected:
		s.Logger.Warnw("contract event rejected", append(fields, "error", outcomeErr)...)
	}
}

func illegalTransition(c *contract.Contract, e *contract.Event) error {
	return ierr.NewErrorf("illegal transition: %s from %s", e.Name, c.ContractStatus).
		WithHintf("Event %s is not allowed while the contract is %s", e.Name, c.ContractStatus).
		WithReportableDetails(map[string]any{
			"contract_id": c.ID,
			"status":      c.ContractStatus,
			"event_name":  e.Name,
		}).
		Mark(ierr.ErrIllegalTransition)
}

// asStoreError marks unclassified failures as database errors
func asStoreError(err error) error {
	if ierr.IsNotFound(err) || ierr.IsValidation(err) || ierr.IsPublish(err) ||
		ierr.IsDatabase(err) || ierr.IsSystem(err) || ierr.IsAlreadyExists(err) {
		return err
	}
	return ierr.WithError(err).
		WithHint("Failed to persist contract transition").
		Mark(ierr.ErrDatabase)
}

func (s *contractFSMService) Replay(ctx context.Context, contractID string, events []*contract.Event) (*ReplayResult, error) {
	c, err := s.ContractRepo.Get(ctx, contractID)
	if err != nil {
		return nil, err
	}
	history, err := s.ChangeHistoryRepo.ListByContract(ctx, contractID)
	if err != nil {
		return nil, err
	}

	applied := make(map[string]struct{})
	for _, h := range history {
		if h.Outcome == types.TransitionOutcomeApplied && h.DedupeKey != "" {
			applied[h.DedupeKey] = struct{}{}
		}
	}

	current := c.Clone()
	result := &ReplayResult{
		ContractID:    contractID,
		InitialStatus: c.ContractStatus,
		Steps:         make([]ReplayStep, 0, len(events)),
	}

	for _, e := range events {
		if e != nil && e.ContractID == "" {
			e.ContractID = contractID
		}
		step := ReplayStep{FromStatus: current.ContractStatus, ToStatus: current.ContractStatus}
		if e != nil {
			step.EventName = e.Name
			step.DedupeKey = e.DedupeKey
		}

		if err := e.Validate(); err != nil {
			step.Outcome = types.TransitionOutcomeRejected
			step.Reason = ierr.GetHint(err)
			result.Steps = append(result.Steps, step)
			continue
		}
		if err := current.ContractStatus.Validate(); err != nil {
			step.Outcome = types.TransitionOutcomeFailed
			step.ToStatus = types.ContractStatusFailed
			step.Reason = err.Error()
			current.ContractStatus = types.ContractStatusFailed
			result.Steps = append(result.Steps, step)
			continue
		}

		t, ok := resolveTransition(current.ContractStatus, e.Name)
		if !ok {
			step.Outcome = types.TransitionOutcomeRejected
			step.Reason = illegalTransition(current, e).Error()
			result.Steps = append(result.Steps, step)
			continue
		}
		if e.DedupeKey != "" {
			if _, dup := applied[e.DedupeKey]; dup {
				step.Outcome = types.TransitionOutcomeDuplicate
				step.Reason = "already applied"
				result.Steps = append(result.Steps, step)
				continue
			}
		}

		if t.mutate != nil {
			if err := t.mutate(current, e, time.Now().UTC()); err != nil {
				step.Outcome = types.TransitionOutcomeFailed
				step.ToStatus = types.ContractStatusFailed
				step.Reason = err.Error()
				current.ContractStatus = types.ContractStatusFailed
				result.Steps = append(result.Steps, step)
				continue
			}
		}
		current.ContractStatus = t.target(current.ContractStatus)
		if e.DedupeKey != "" {
			applied[e.DedupeKey] = struct{}{}
		}

		step.ToStatus = current.ContractStatus
		step.Outcome = types.TransitionOutcomeApplied
		result.Steps = append(result.Steps, step)
	}

	result.FinalStatus = current.ContractStatus
	return result, nil
}
