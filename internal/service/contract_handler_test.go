package service

import (
	"testing"

	"github.com/contractflow/contractflow/internal/gateway"
	ierr "github.com/contractflow/contractflow/internal/errors"
	"github.com/contractflow/contractflow/internal/testutil"
	"github.com/contractflow/contractflow/internal/types"
	"github.com/stretchr/testify/suite"
)

type ContractEventHandlerSuite struct {
	testutil.BaseServiceTestSuite
	handler *ContractEventHandler
	sub     *recordingSubscriber
}

func TestContractEventHandler(t *testing.T) {
	suite.Run(t, new(ContractEventHandlerSuite))
}

type recordingSubscriber struct {
	handlers map[string]map[types.ContractEventName]gateway.Handler
}

func (r *recordingSubscriber) Subscribe(routingKey string, eventName types.ContractEventName, handler gateway.Handler) error {
	if r.handlers[routingKey] == nil {
		r.handlers[routingKey] = make(map[types.ContractEventName]gateway.Handler)
	}
	r.handlers[routingKey][eventName] = handler
	return nil
}

func (s *ContractEventHandlerSuite) SetupTest() {
	s.BaseServiceTestSuite.SetupTest()
	params := newTestServiceParams(&s.BaseServiceTestSuite)
	fsm := NewContractFSMService(params, NewEventRegistrar(params))
	s.handler = NewContractEventHandler(params, fsm, NewContractService(params, fsm))
	s.sub = &recordingSubscriber{handlers: make(map[string]map[types.ContractEventName]gateway.Handler)}
	s.Require().NoError(s.handler.RegisterHandlers(s.sub))
}

func (s *ContractEventHandlerSuite) TestRegistersEveryInboundEvent() {
	routes := s.GetConfig().Routing
	want := map[string][]types.ContractEventName{
		routes.PaymentResult:   {types.EventPaymentContract},
		routes.ArrivalDate:     {types.EventContractTimeoutExpire, types.EventRegisterArrivalDate},
		routes.FSMCommand:      {types.EventFirstActiveContract, types.EventUnRegister, types.EventTerminateContract},
		routes.AccountRecharge: {types.EventAccountRecharge},
	}

	s.Len(s.sub.handlers, len(want))
	for routingKey, events := range want {
		s.Len(s.sub.handlers[routingKey], len(events), routingKey)
		for _, e := range events {
			s.Contains(s.sub.handlers[routingKey], e)
		}
	}
}

func (s *ContractEventHandlerSuite) TestPaymentResultAppliesEvent() {
	c := s.CreateContractWithStatus(types.ContractStatusPendingPayment)
	handle := s.sub.handlers[s.GetConfig().Routing.PaymentResult][types.EventPaymentContract]

	err := handle(s.GetContext(), &gateway.Envelope{
		EventName:  types.EventPaymentContract,
		ContractID: c.ID,
		DedupeKey:  "cycle-1",
	})
	s.Require().NoError(err)

	stored, err := s.GetStores().ContractRepo.Get(s.GetContext(), c.ID)
	s.Require().NoError(err)
	s.Equal(types.ContractStatusActive, stored.ContractStatus)

	err = handle(s.GetContext(), &gateway.Envelope{
		EventName:  types.EventPaymentContract,
		ContractID: c.ID,
		DedupeKey:  "cycle-1",
	})
	s.True(ierr.IsDuplicateEvent(err))
}

func (s *ContractEventHandlerSuite) TestContractEventsRequireContractID() {
	handle := s.sub.handlers[s.GetConfig().Routing.FSMCommand][types.EventTerminateContract]

	err := handle(s.GetContext(), &gateway.Envelope{EventName: types.EventTerminateContract})
	s.True(ierr.IsValidation(err))
}

func (s *ContractEventHandlerSuite) TestAccountRecharge() {
	c := s.CreateContractWithStatus(types.ContractStatusActive)
	handle := s.sub.handlers[s.GetConfig().Routing.AccountRecharge][types.EventAccountRecharge]

	s.True(ierr.IsValidation(handle(s.GetContext(), &gateway.Envelope{EventName: types.EventAccountRecharge})))

	err := handle(s.GetContext(), &gateway.Envelope{
		EventName: types.EventAccountRecharge,
		PartyID:   c.PartyOne,
	})
	s.Require().NoError(err)

	stored, err := s.GetStores().ContractRepo.Get(s.GetContext(), c.ID)
	s.Require().NoError(err)
	s.Equal(types.ContractStatusPendingPayment, stored.ContractStatus)

	// the recharge's dedupe key scopes the resent charge
	recharge := &gateway.Envelope{
		EventName: types.EventAccountRecharge,
		PartyID:   c.PartyOne,
		DedupeKey: "recharge-7",
	}
	s.Require().NoError(handle(s.GetContext(), recharge))
	s.Require().NoError(handle(s.GetContext(), recharge))
	s.Len(s.GetPublisher().EventsTo(s.GetConfig().Routing.TryPayment), 2)
}
