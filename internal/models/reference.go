package models

// Coordinates is a geographic point in decimal degrees
type Coordinates struct {
	Lat float64 `json:"lat" validate:"latitude"`
	Lon float64 `json:"lon" validate:"longitude"`
}

// Position3D is a point in the visualization's layout space
type Position3D struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Region is a federal subject with the population used as its sampling weight
type Region struct {
	Code            string       `json:"code" validate:"required"`
	Name            string       `json:"name" validate:"required"`
	FederalDistrict string       `json:"federal_district" validate:"required"`
	Population      float64      `json:"population" validate:"gte=0"`
	Coordinates     *Coordinates `json:"coordinates" validate:"required"`
}

// Industry is an economic activity; its category decides the sampling tier
type Industry struct {
	Code     string `json:"code" validate:"required"`
	Name     string `json:"name" validate:"required"`
	Category string `json:"category" validate:"required"`
	Color    string `json:"color" validate:"required"`
}

// Bank is a servicing bank weighted by its market share
type Bank struct {
	ID          string  `json:"id" validate:"required"`
	Name        string  `json:"name" validate:"required"`
	MarketShare float64 `json:"market_share" validate:"gte=0"`
	Color       string  `json:"color" validate:"required"`
}

// ReferenceData holds the three lookup tables the generator samples from
type ReferenceData struct {
	Regions    []Region   `json:"regions"`
	Industries []Industry `json:"industries"`
	Banks      []Bank     `json:"banks"`
}

// IndustryCategory lists the industries of one category
type IndustryCategory struct {
	Category   string     `json:"category"`
	Industries []Industry `json:"industries"`
}

// IndustryCategories groups industries by category in first-seen order
func (r *ReferenceData) IndustryCategories() []IndustryCategory {
	index := make(map[string]int)
	var out []IndustryCategory
	for _, ind := range r.Industries {
		i, ok := index[ind.Category]
		if !ok {
			i = len(out)
			index[ind.Category] = i
			out = append(out, IndustryCategory{Category: ind.Category})
		}
		out[i].Industries = append(out[i].Industries, ind)
	}
	return out
}

// ReferenceIndex looks reference entries up by code or id
type ReferenceIndex struct {
	regions    map[string]*Region
	industries map[string]*Industry
	banks      map[string]*Bank
}

// NewReferenceIndex indexes regions and industries by code and banks by id.
// Later duplicates do not replace the first entry.
func NewReferenceIndex(r *ReferenceData) *ReferenceIndex {
	idx := &ReferenceIndex{
		regions:    make(map[string]*Region, len(r.Regions)),
		industries: make(map[string]*Industry, len(r.Industries)),
		banks:      make(map[string]*Bank, len(r.Banks)),
	}
	for i := range r.Regions {
		if _, ok := idx.regions[r.Regions[i].Code]; !ok {
			idx.regions[r.Regions[i].Code] = &r.Regions[i]
		}
	}
	for i := range r.Industries {
		if _, ok := idx.industries[r.Industries[i].Code]; !ok {
			idx.industries[r.Industries[i].Code] = &r.Industries[i]
		}
	}
	for i := range r.Banks {
		if _, ok := idx.banks[r.Banks[i].ID]; !ok {
			idx.banks[r.Banks[i].ID] = &r.Banks[i]
		}
	}
	return idx
}

// Region returns the region with the given code
func (x *ReferenceIndex) Region(code string) (*Region, bool) {
	r, ok := x.regions[code]
	return r, ok
}

// Industry returns the industry with the given code
func (x *ReferenceIndex) Industry(code string) (*Industry, bool) {
	ind, ok := x.industries[code]
	return ind, ok
}

// Bank returns the bank with the given id
func (x *ReferenceIndex) Bank(id string) (*Bank, bool) {
	b, ok := x.banks[id]
	return b, ok
}
