package repository

import (
	"github.com/contractflow/contractflow/internal/domain/changehistory"
	"github.com/contractflow/contractflow/internal/domain/contract"
	"github.com/contractflow/contractflow/internal/domain/settlement"
	"github.com/contractflow/contractflow/internal/logger"
	"github.com/contractflow/contractflow/internal/postgres"
	postgresRepo "github.com/contractflow/contractflow/internal/repository/postgres"
)

func NewContractRepository(db *postgres.DB, logger *logger.Logger) contract.Repository {
	return postgresRepo.NewContractRepository(db, logger)
}

func NewChangeHistoryRepository(db *postgres.DB, logger *logger.Logger) changehistory.Repository {
	return postgresRepo.NewChangeHistoryRepository(db, logger)
}

func NewSettlementRepository(db *postgres.DB, logger *logger.Logger) settlement.Repository {
	return postgresRepo.NewSettlementRepository(db, logger)
}
