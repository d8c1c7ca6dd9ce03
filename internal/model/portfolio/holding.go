package portfolio

// Holding is one row of holdings_with_sector: a broker position merged with
// screener data.
type Holding struct {
	TradingSymbol       string  `json:"tradingsymbol"`
	AveragePrice        float64 `json:"average_price"`
	DayChange           float64 `json:"day_change"`
	DayChangePercentage float64 `json:"day_change_percentage"`
	PnL                 float64 `json:"pnl"`
	TotalQuantity       float64 `json:"total_quantity"`
	Sector              string  `json:"sector"`
	Industry            string  `json:"industry"`
	MarketCap           float64 `json:"marketCap"`
	CompanyName         string  `json:"companyName"`
	Volume              float64 `json:"volume"`
	Price               float64 `json:"price"`
	TotalValue          float64 `json:"total_value"`
	Percentage          float64 `json:"percentage"`
}

// SectorAllocation is the share of portfolio value held in one sector.
type SectorAllocation struct {
	Sector     string  `json:"sector"`
	TotalValue float64 `json:"total_value"`
	Percentage float64 `json:"percentage"`
}
