package types

import "time"

// UsageBatch is one historical withdrawal transaction header.
type UsageBatch struct {
	// ID is the unique identifier of the batch.
	ID int64 `json:"id"`

	// SourceSheet and SourceRow locate the batch in the imported workbook.
	SourceSheet string `json:"sourceSheet"`
	SourceRow   int    `json:"sourceRow"`

	// ProductCategory is the jewelry category the draw was made for
	// (earrings, necklace, bracelet, ...).
	ProductCategory string `json:"productCategory"`

	// TransactionDate is when the withdrawal happened; the raw cell is kept
	// for rows whose date did not parse.
	TransactionDate    *time.Time `json:"transactionDate"`
	TransactionDateRaw *string    `json:"transactionDateRaw"`

	// RequesterName is who requested the draw.
	RequesterName *string `json:"requesterName"`

	// ProductCode identifies the piece the stones were drawn for.
	ProductCode *string `json:"productCode"`

	// TotalAmount is the batch total.
	TotalAmount *float64 `json:"totalAmount"`
}

// UsageLine is one gemstone draw within a batch.
type UsageLine struct {
	// ID is the unique identifier of the line.
	ID int64 `json:"id"`

	// BatchID references the owning batch; lines are deleted with it.
	BatchID int64 `json:"batchId"`

	// SourceRow locates the line in the imported workbook.
	SourceRow int `json:"sourceRow"`

	// GemstoneNumber and GemstoneName identify the drawn lot.
	GemstoneNumber *int64  `json:"gemstoneNumber"`
	GemstoneName   *string `json:"gemstoneName"`

	// UsedPcs and UsedWeightCt are the drawn quantities.
	UsedPcs      *float64 `json:"usedPcs"`
	UsedWeightCt *float64 `json:"usedWeightCt"`

	// UnitPriceRaw preserves the free-text unit price cell.
	UnitPriceRaw *string `json:"unitPriceRaw"`

	// LineAmount is the computed amount for the line.
	LineAmount *float64 `json:"lineAmount"`

	// Balance snapshots after the transaction was applied.
	BalancePcsAfter *float64 `json:"balancePcsAfter"`
	BalanceCtAfter  *float64 `json:"balanceCtAfter"`

	// RequesterName is who requested this particular draw.
	RequesterName *string `json:"requesterName"`
}

// UsageBatchDetail is a batch header together with its lines.
type UsageBatchDetail struct {
	UsageBatch

	// Lines lists the individual draws against the batch.
	Lines []UsageLine `json:"lines"`
}
