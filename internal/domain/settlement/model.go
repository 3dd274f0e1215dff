package settlement

import (
	"fmt"
	"sync"
	"time"

	"github.com/contractflow/contractflow/internal/domain/contract"
	"github.com/contractflow/contractflow/internal/types"
	"github.com/shopspring/decimal"
)

// Filter selects the contracts a settlement window considers
type Filter struct {
	ContractStatus types.ContractStatus
	CycleType      types.CycleType
}

// DefaultFilter selects active recurring contracts. Contracts already pending
// payment are skipped until the payment subsystem answers.
func DefaultFilter() Filter {
	return Filter{
		ContractStatus: types.ContractStatusActive,
		CycleType:      types.CycleTypeRecurring,
	}
}

// Window is the half-open date range [StartDate, EndDate) a contract's
// NextSettlementDate must fall in to be due
type Window struct {
	StartDate time.Time
	EndDate   time.Time
	Filter    Filter
}

func NewWindow(start, end time.Time) Window {
	return Window{StartDate: start, EndDate: end, Filter: DefaultFilter()}
}

// Contains reports whether a contract falls inside the window
func (w Window) Contains(c *contract.Contract) bool {
	if c.ContractStatus != w.Filter.ContractStatus || c.CycleType != w.Filter.CycleType {
		return false
	}
	if c.NextSettlementDate == nil {
		return false
	}
	d := *c.NextSettlementDate
	return !d.Before(w.StartDate) && d.Before(w.EndDate)
}

// Record is one due settlement handed from the scanner to the processor
type Record struct {
	ContractID     string          `db:"id" json:"contract_id"`
	SeqID          int64           `db:"seq_id" json:"seq_id"`
	PartyOne       string          `db:"party_one" json:"party_one"`
	PartyTwo       string          `db:"party_two" json:"party_two"`
	SettlementDate time.Time       `db:"next_settlement_date" json:"settlement_date"`
	Amount         decimal.Decimal `db:"settlement_amount" json:"amount"`
	Currency       string          `db:"currency" json:"currency"`
}

// RecordFromContract projects a due contract into a settlement record
func RecordFromContract(c *contract.Contract) *Record {
	r := &Record{
		ContractID: c.ID,
		SeqID:      c.SeqID,
		PartyOne:   c.PartyOne,
		PartyTwo:   c.PartyTwo,
		Amount:     c.SettlementAmount,
		Currency:   c.Currency,
	}
	if c.NextSettlementDate != nil {
		r.SettlementDate = *c.NextSettlementDate
	}
	return r
}

// DedupeKey names one billing cycle of one contract. The payment subsystem
// echoes it back on the payment result.
func (r *Record) DedupeKey() string {
	return fmt.Sprintf("%s:%s", r.ContractID, r.SettlementDate.UTC().Format(time.DateOnly))
}

// TaskBatch is an ordered page of settlement records covering [StartSeqID, EndSeqID]
type TaskBatch struct {
	CycleID    string
	StartSeqID int64
	EndSeqID   int64
	Records    []*Record

	once sync.Once
	done func()
}

// NewTaskBatch builds a batch from a non-empty page. done runs once when the batch is marked done.
func NewTaskBatch(cycleID string, records []*Record, done func()) *TaskBatch {
	b := &TaskBatch{
		CycleID: cycleID,
		Records: records,
		done:    done,
	}
	if len(records) > 0 {
		b.StartSeqID = records[0].SeqID
		b.EndSeqID = records[len(records)-1].SeqID
	}
	return b
}

func (b *TaskBatch) Size() int {
	return len(b.Records)
}

// Done marks the batch as fully processed; repeated calls are ignored
func (b *TaskBatch) Done() {
	b.once.Do(func() {
		if b.done != nil {
			b.done()
		}
	})
}
