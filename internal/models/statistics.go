package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
)

// RevenueStat is the rollup for one revenue bracket
type RevenueStat struct {
	Count      int64   `json:"count"`
	Percentage float64 `json:"percentage"`
	Name       string  `json:"name"`
}

// NamedCount is a summed company count for one display name
type NamedCount struct {
	Name  string
	Count int64
}

// RankedCounts is an ordered ranking, serialized as [[name, count], ...]
type RankedCounts []NamedCount

// MarshalJSON encodes the ranking as a list of two-element arrays
func (r RankedCounts) MarshalJSON() ([]byte, error) {
	pairs := make([][2]any, len(r))
	for i, nc := range r {
		pairs[i] = [2]any{nc.Name, nc.Count}
	}
	return json.Marshal(pairs)
}

// UnmarshalJSON decodes a list of [name, count] pairs
func (r *RankedCounts) UnmarshalJSON(data []byte) error {
	var pairs [][2]json.RawMessage
	if err := json.Unmarshal(data, &pairs); err != nil {
		return err
	}

	out := make(RankedCounts, len(pairs))
	for i, p := range pairs {
		if err := json.Unmarshal(p[0], &out[i].Name); err != nil {
			return fmt.Errorf("ranking entry %d: %w", i, err)
		}
		if err := json.Unmarshal(p[1], &out[i].Count); err != nil {
			return fmt.Errorf("ranking entry %d: %w", i, err)
		}
	}
	*r = out
	return nil
}

// OrderedCounts keeps insertion order and serializes as a JSON object {name: count}
type OrderedCounts []NamedCount

// MarshalJSON writes the object keys in slice order
func (o OrderedCounts) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, nc := range o {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(nc.Name)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.WriteString(strconv.FormatInt(nc.Count, 10))
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON reads the object back, preserving the key order of the document
func (o *OrderedCounts) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("expected object, got %v", tok)
	}

	var out OrderedCounts
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("expected string key, got %v", keyTok)
		}
		var count int64
		if err := dec.Decode(&count); err != nil {
			return fmt.Errorf("count for %q: %w", key, err)
		}
		out = append(out, NamedCount{Name: key, Count: count})
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	*o = out
	return nil
}

// RevenueStats maps a revenue category index to its rollup
type RevenueStats map[int]RevenueStat

// Indices returns the category indices in ascending order
func (r RevenueStats) Indices() []int {
	idx := make([]int, 0, len(r))
	for k := range r {
		idx = append(idx, k)
	}
	sort.Ints(idx)
	return idx
}

// Statistics is a read-only summary over a complete group sequence
type Statistics struct {
	TotalCompanies      int64         `json:"total_companies"`
	TotalGroups         int           `json:"total_groups"`
	RevenueDistribution RevenueStats  `json:"revenue_distribution"`
	TopRegions          RankedCounts  `json:"top_regions"`
	TopIndustries       RankedCounts  `json:"top_industries"`
	BankDistribution    OrderedCounts `json:"bank_distribution"`
}
