package types

import "time"

// ManufacturingStatusPipeline is the ordered production pipeline a project
// progresses through. The order is part of the API contract.
var ManufacturingStatusPipeline = []string{
	"approved",
	"sent_to_craftsman",
	"internal_setting_qc",
	"diamond_sorting",
	"stone_setting",
	"plating",
	"final_piece_qc",
	"complete_piece",
	"ready_for_sale",
	"sold",
}

// ManufacturingStatusSold is the terminal pipeline stage.
const ManufacturingStatusSold = "sold"

// IsManufacturingStatus reports whether s is a known pipeline stage.
func IsManufacturingStatus(s string) bool {
	for _, v := range ManufacturingStatusPipeline {
		if v == s {
			return true
		}
	}
	return false
}

// ManufacturingProject is a production job for one piece.
type ManufacturingProject struct {
	// ID is the unique identifier of the project.
	ID int64 `json:"id"`

	// ManufacturingCode is the unique human-assigned job code.
	ManufacturingCode string `json:"manufacturingCode"`

	// PieceName and PieceType describe the piece being produced.
	PieceName string `json:"pieceName"`
	PieceType string `json:"pieceType"`

	// Status is the current pipeline stage.
	Status string `json:"status"`

	// DesignerName and CraftsmanName attribute the work.
	DesignerName  *string `json:"designerName"`
	CraftsmanName *string `json:"craftsmanName"`

	// UsageNotes carries free-text production notes.
	UsageNotes *string `json:"usageNotes"`

	// Photos is a list of reference photo URLs.
	Photos []string `json:"photos"`

	// Cost breakdown. All fields optional; totals are not recomputed
	// server-side.
	SellingPrice *float64 `json:"sellingPrice"`
	TotalCost    *float64 `json:"totalCost"`
	GemstoneCost *float64 `json:"gemstoneCost"`
	LaborCost    *float64 `json:"laborCost"`

	// CustomerID links the commissioning customer; cleared when the
	// customer record is deleted.
	CustomerID *string `json:"customerId"`

	// SoldAt is stamped when the project reaches the sold stage.
	SoldAt *time.Time `json:"soldAt"`

	// CreatedAt and UpdatedAt are audit timestamps.
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// ProjectGemstone is one inventory draw consumed by a project.
type ProjectGemstone struct {
	// ID is the unique identifier of the line.
	ID int64 `json:"id"`

	// ProjectID references the owning project; lines are deleted with it.
	ProjectID int64 `json:"projectId"`

	// GemstoneID references the consumed inventory lot when known.
	GemstoneID *int64 `json:"gemstoneId"`

	// GemstoneName labels the stone for display.
	GemstoneName *string `json:"gemstoneName"`

	// UsedPcs and UsedWeightCt are the consumed quantities.
	UsedPcs      *float64 `json:"usedPcs"`
	UsedWeightCt *float64 `json:"usedWeightCt"`

	// Cost is the cost attributed to this line.
	Cost *float64 `json:"cost"`
}

// ProjectActivity is one status-change record in a project's history.
type ProjectActivity struct {
	// ID is the unique identifier of the record.
	ID int64 `json:"id"`

	// ProjectID references the owning project; records are deleted with it.
	ProjectID int64 `json:"projectId"`

	// Status is the stage the project moved to.
	Status string `json:"status"`

	// CraftsmanName is who performed the stage when recorded.
	CraftsmanName *string `json:"craftsmanName"`

	// Note is free text attached to the change.
	Note *string `json:"note"`

	// CreatedAt is when the change was recorded.
	CreatedAt time.Time `json:"createdAt"`
}

// ManufacturingDetail is a project with its gemstone lines and activity log.
type ManufacturingDetail struct {
	ManufacturingProject

	// Gemstones lists the inventory draws consumed by the project.
	Gemstones []ProjectGemstone `json:"gemstones"`

	// Activity is the status-change history, most recent first.
	Activity []ProjectActivity `json:"activity"`
}
