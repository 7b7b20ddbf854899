package models

// RevenueCategoryCount is the number of fixed revenue brackets
const RevenueCategoryCount = 5

// RevenueCategory is one annual revenue bracket, in millions of rubles
type RevenueCategory struct {
	Index       int     `json:"index"`
	Min         float64 `json:"min"`
	Max         float64 `json:"max"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
}

// DefaultRevenueCategories returns the five brackets ordered by increasing revenue
func DefaultRevenueCategories() []RevenueCategory {
	return []RevenueCategory{
		{Index: 0, Min: 0, Max: 5, Name: "0-5 млн руб", Description: "Микро"},
		{Index: 1, Min: 5, Max: 20, Name: "5-20 млн руб", Description: "Малые"},
		{Index: 2, Min: 20, Max: 80, Name: "20-80 млн руб", Description: "Средние малые"},
		{Index: 3, Min: 80, Max: 400, Name: "80-400 млн руб", Description: "Крупные малые"},
		{Index: 4, Min: 400, Max: 1000, Name: "400+ млн руб", Description: "Средние"},
	}
}

// DefaultRevenueDistribution returns the share of companies (in percent) per bracket
func DefaultRevenueDistribution() map[int]float64 {
	return map[int]float64{
		0: 45.2, // micro
		1: 28.7,
		2: 18.3,
		3: 6.1,
		4: 1.7,
	}
}
