package types

import "time"

// AnalyticsReport is the business dashboard rollup.
type AnalyticsReport struct {
	Inventory     InventorySummary       `json:"inventory"`
	Usage         UsageAnalytics         `json:"usage"`
	Manufacturing ManufacturingAnalytics `json:"manufacturing"`
	Customers     CustomerAnalytics      `json:"customers"`
	GeneratedAt   time.Time              `json:"generatedAt"`
}

// UsageAnalytics aggregates the historical withdrawal data.
type UsageAnalytics struct {
	BatchCount  int     `json:"batchCount"`
	LineCount   int     `json:"lineCount"`
	TotalAmount float64 `json:"totalAmount"`
}

// ManufacturingAnalytics aggregates the production pipeline.
type ManufacturingAnalytics struct {
	TotalProjects int            `json:"totalProjects"`
	ByStatus      map[string]int `json:"byStatus"`
	SoldCount     int            `json:"soldCount"`
	SoldRevenue   float64        `json:"soldRevenue"`
}

// CustomerAnalytics aggregates the customer base.
type CustomerAnalytics struct {
	TotalCustomers int `json:"totalCustomers"`
}
