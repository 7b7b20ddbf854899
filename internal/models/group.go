package models

// GroupMetadata carries display attributes the front-end needs without extra lookups
type GroupMetadata struct {
	RevenueRange  RevenueCategory `json:"revenue_range"`
	IndustryColor string          `json:"industry_color"`
	BankColor     string          `json:"bank_color"`
}

// CompanyGroup is an aggregated record standing in for many companies
// that share a revenue bracket, region, industry and bank
type CompanyGroup struct {
	ID               string        `json:"id"`
	Count            int64         `json:"count"`
	RevenueCategory  int           `json:"revenue_category"`
	IndustryCode     string        `json:"industry_code"`
	IndustryName     string        `json:"industry_name"`
	IndustryCategory string        `json:"industry_category"`
	RegionCode       string        `json:"region_code"`
	RegionName       string        `json:"region_name"`
	FederalDistrict  string        `json:"federal_district"`
	BankID           string        `json:"bank_id"`
	BankName         string        `json:"bank_name"`
	Coordinates      Coordinates   `json:"coordinates"`
	Position3D       Position3D    `json:"position_3d"`
	Metadata         GroupMetadata `json:"metadata"`
}
