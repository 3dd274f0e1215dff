package testutil

import (
	"context"
	"time"

	"github.com/contractflow/contractflow/internal/config"
	"github.com/contractflow/contractflow/internal/domain/contract"
	"github.com/contractflow/contractflow/internal/logger"
	"github.com/contractflow/contractflow/internal/metrics"
	"github.com/contractflow/contractflow/internal/types"
	"github.com/contractflow/contractflow/internal/validator"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
)

// Stores holds the in-memory repositories for testing
type Stores struct {
	ContractRepo      *InMemoryContractStore
	ChangeHistoryRepo *InMemoryChangeHistoryStore
	SettlementRepo    *InMemorySettlementStore
}

// BaseServiceTestSuite provides common functionality for all service test suites
type BaseServiceTestSuite struct {
	suite.Suite
	ctx       context.Context
	stores    Stores
	publisher *InMemoryPublisher
	db        *MockPostgresClient
	logger    *logger.Logger
	config    *config.Configuration
	metrics   *metrics.Metrics
	now       time.Time
}

// SetupSuite is called once before running the tests in the suite
func (s *BaseServiceTestSuite) SetupSuite() {
	validator.NewValidator()

	s.config = config.GetDefaultConfig()
	s.config.Logging.Level = types.LogLevelInfo

	var err error
	s.logger, err = logger.NewLogger(s.config)
	if err != nil {
		s.T().Fatalf("failed to create logger: %v", err)
	}
}

// SetupTest is called before each test
func (s *BaseServiceTestSuite) SetupTest() {
	s.ctx = SetupContext()
	s.setupStores()
	s.metrics = metrics.NewMetrics()
	s.now = time.Now().UTC()
}

// TearDownTest is called after each test
func (s *BaseServiceTestSuite) TearDownTest() {
	s.clearStores()
}

func (s *BaseServiceTestSuite) setupStores() {
	contracts := NewInMemoryContractStore()
	s.stores = Stores{
		ContractRepo:      contracts,
		ChangeHistoryRepo: NewInMemoryChangeHistoryStore(),
		SettlementRepo:    NewInMemorySettlementStore(contracts),
	}
	s.db = NewMockPostgresClient(s.logger)
	s.publisher = NewInMemoryPublisher()
}

func (s *BaseServiceTestSuite) clearStores() {
	s.stores.ContractRepo.Clear()
	s.stores.ChangeHistoryRepo.Clear()
	s.stores.SettlementRepo.Clear()
	s.publisher.Clear()
}

func (s *BaseServiceTestSuite) ClearStores() {
	s.clearStores()
}

// GetContext returns the test context
func (s *BaseServiceTestSuite) GetContext() context.Context {
	return s.ctx
}

// GetConfig returns the test configuration
func (s *BaseServiceTestSuite) GetConfig() *config.Configuration {
	return s.config
}

// GetStores returns all test repositories
func (s *BaseServiceTestSuite) GetStores() Stores {
	return s.stores
}

// GetPublisher returns the recording event publisher
func (s *BaseServiceTestSuite) GetPublisher() *InMemoryPublisher {
	return s.publisher
}

// GetDB returns the test database client
func (s *BaseServiceTestSuite) GetDB() *MockPostgresClient {
	return s.db
}

// GetLogger returns the test logger
func (s *BaseServiceTestSuite) GetLogger() *logger.Logger {
	return s.logger
}

// GetMetrics returns metrics registered on a fresh registry for this test
func (s *BaseServiceTestSuite) GetMetrics() *metrics.Metrics {
	return s.metrics
}

// GetNow returns the current test time
func (s *BaseServiceTestSuite) GetNow() time.Time {
	return s.now.UTC()
}

// GetUUID returns a new UUID string
func (s *BaseServiceTestSuite) GetUUID() string {
	return types.GenerateUUID()
}

// NewTestContract returns a valid recurring contract that is not yet stored
func (s *BaseServiceTestSuite) NewTestContract() *contract.Contract {
	next := s.now.Add(-time.Hour)
	return &contract.Contract{
		ID:                   types.GenerateUUIDWithPrefix(types.UUID_PREFIX_CONTRACT),
		PartyOne:             "node_" + types.GenerateUUID(),
		PartyTwo:             "user_" + types.GenerateUUID(),
		ContractType:         types.ContractTypePresentableToUser,
		TargetID:             "presentable_" + types.GenerateUUID(),
		ExpireDate:           s.now.AddDate(1, 0, 0),
		ContractStatus:       types.ContractStatusCreated,
		CycleType:            types.CycleTypeRecurring,
		SettlementPeriod:     types.BILLING_PERIOD_MONTHLY,
		SettlementPeriodUnit: 1,
		NextSettlementDate:   &next,
		SettlementAmount:     decimal.NewFromInt(10),
		Currency:             "USD",
		BaseModel:            types.GetDefaultBaseModel(s.ctx),
	}
}

// CreateContractWithStatus stores a test contract already in status
func (s *BaseServiceTestSuite) CreateContractWithStatus(status types.ContractStatus) *contract.Contract {
	c := s.NewTestContract()
	c.ContractStatus = status
	s.Require().NoError(s.stores.ContractRepo.Create(s.ctx, c))
	return c
}
