package types

import "time"

// Stock statuses derived from a gemstone lot's effective balances.
const (
	StockStatusAvailable  = "available"
	StockStatusLowStock   = "low-stock"
	StockStatusOutOfStock = "out-of-stock"
)

// GemstoneItem represents one imported gemstone lot.
//
// The source workbook was semi-structured free text, so raw columns are kept
// next to their parsed counterparts. Explicit balance columns take precedence
// over parsed-from-text quantities when classifying stock.
type GemstoneItem struct {
	// ID is the unique identifier of the lot.
	ID int64 `json:"id"`

	// SourceSheet and SourceRow locate the lot in the imported workbook.
	SourceSheet string `json:"sourceSheet"`
	SourceRow   int    `json:"sourceRow"`

	// GemstoneNumber is the numeric lot code; nil when the source cell did
	// not parse. GemstoneNumberText preserves the original cell.
	GemstoneNumber     *int64  `json:"gemstoneNumber"`
	GemstoneNumberText *string `json:"gemstoneNumberText"`

	// GemstoneType is the stone variety (ruby, sapphire, ...).
	GemstoneType *string `json:"gemstoneType"`

	// WeightPcsRaw is the original free-text weight/quantity cell.
	WeightPcsRaw *string `json:"weightPcsRaw"`

	// Shape is the cut shape of the stones in the lot.
	Shape *string `json:"shape"`

	// Raw price cells alongside their parsed values below.
	PricePerCtRaw    *string `json:"pricePerCtRaw"`
	PricePerPieceRaw *string `json:"pricePerPieceRaw"`

	// BuyingDate is the purchase date; BuyingDateRaw keeps the source cell.
	BuyingDate    *time.Time `json:"buyingDate"`
	BuyingDateRaw *string    `json:"buyingDateRaw"`

	// BalancePcs and BalanceCt are the explicit balance columns.
	BalancePcs *float64 `json:"balancePcs"`
	BalanceCt  *float64 `json:"balanceCt"`

	// UseDate records the last withdrawal noted in the workbook.
	UseDate    *time.Time `json:"useDate"`
	UseDateRaw *string    `json:"useDateRaw"`

	// OwnerName is the party the lot belongs to.
	OwnerName *string `json:"ownerName"`

	// Parsed values extracted from the raw free-text cells.
	ParsedWeightCt      *float64 `json:"parsedWeightCt"`
	ParsedQuantityPcs   *float64 `json:"parsedQuantityPcs"`
	ParsedPricePerCt    *float64 `json:"parsedPricePerCt"`
	ParsedPricePerPiece *float64 `json:"parsedPricePerPiece"`

	// Status is the derived stock classification, never persisted.
	Status string `json:"status"`
}

// EffectiveBalances resolves the quantities used for stock classification:
// the explicit balance column if present, else the parsed value, else zero.
func (g GemstoneItem) EffectiveBalances() (carats, pieces float64) {
	carats = coalesceFloat(g.BalanceCt, g.ParsedWeightCt)
	pieces = coalesceFloat(g.BalancePcs, g.ParsedQuantityPcs)
	return carats, pieces
}

// ClassifyStock derives the stock status from effective balances.
// Low stock: carats in (0,1], or carats exactly 0 with pieces in (0,10].
// Out of stock: both balances at or below zero. Available otherwise.
func ClassifyStock(carats, pieces float64) string {
	if (carats > 0 && carats <= 1) || (carats == 0 && pieces > 0 && pieces <= 10) {
		return StockStatusLowStock
	}
	if carats <= 0 && pieces <= 0 {
		return StockStatusOutOfStock
	}
	return StockStatusAvailable
}

func coalesceFloat(values ...*float64) float64 {
	for _, v := range values {
		if v != nil {
			return *v
		}
	}
	return 0
}

// GemstoneActivityEntry is one row of a lot's usage history, built from
// usage lines and manufacturing consumption.
type GemstoneActivityEntry struct {
	// Kind distinguishes the source of the entry: "usage" or "manufacturing".
	Kind string `json:"kind"`

	// Reference identifies the batch product code or manufacturing code.
	Reference string `json:"reference"`

	// Date is the transaction or project timestamp the entry is ordered by.
	Date *time.Time `json:"date"`

	// UsedPcs and UsedWeightCt are the drawn quantities when known.
	UsedPcs      *float64 `json:"usedPcs"`
	UsedWeightCt *float64 `json:"usedWeightCt"`

	// Amount is the line amount or cost attributed to the draw.
	Amount *float64 `json:"amount"`

	// Detail carries the category or piece name for display.
	Detail string `json:"detail"`
}

// GemstoneDetail is the detail payload for one lot.
type GemstoneDetail struct {
	GemstoneItem

	// UsageActivity lists withdrawals against this lot, most recent first.
	UsageActivity []GemstoneActivityEntry `json:"usageActivity"`

	// ManufacturingActivity lists project consumption, most recent first.
	ManufacturingActivity []GemstoneActivityEntry `json:"manufacturingActivity"`
}

// InventorySummary aggregates the whole inventory for the dashboard header.
type InventorySummary struct {
	TotalItems      int     `json:"totalItems"`
	Available       int     `json:"available"`
	LowStock        int     `json:"lowStock"`
	OutOfStock      int     `json:"outOfStock"`
	DistinctTypes   int     `json:"distinctTypes"`
	TotalBalanceCt  float64 `json:"totalBalanceCt"`
	TotalBalancePcs float64 `json:"totalBalancePcs"`
}
