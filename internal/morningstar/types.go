package morningstar

// screenerResponse is the raw screener API payload. Only the data points
// requested via securityDataPoints are populated in each row.
type screenerResponse struct {
	Total    int           `json:"total"`
	Page     int           `json:"page"`
	PageSize int           `json:"pageSize"`
	Rows     []screenerRow `json:"rows"`
}

type screenerRow struct {
	SecID        string  `json:"SecId"`
	LegalName    string  `json:"LegalName"`
	CategoryName string  `json:"CategoryName"`
	ReturnM120   float64 `json:"ReturnM120"` // annualised 10-year return, percent
}
