package api

import (
	"github.com/contractflow/contractflow/internal/domain/contract"
	"github.com/contractflow/contractflow/internal/domain/settlement"
)

func settlementRecordOf(c *contract.Contract) *settlement.Record {
	return settlement.RecordFromContract(c)
}
