package domain

import "time"

// ChargeQuery is the caller-owned filter, search and paging state of a charge listing.
// An empty selection on a dimension means no constraint on that dimension.
type ChargeQuery struct {
	Search       string
	CategoryIDs  []string
	SupplierIDs  []string
	CityIDs      []string
	AmbulanceIDs []string
	Types        []ChargeType
	PaidStatuses []PaymentStatus
	Validities   []Validity
	DateFrom     *time.Time
	DateTo       *time.Time
	Page         int
	PageSize     int
}

// ChargePage is one page of a filtered charge listing.
type ChargePage struct {
	Items         []*Charge `json:"items"`
	TotalItems    int       `json:"total_items"`
	TotalPages    int       `json:"total_pages"`
	Page          int       `json:"page"`
	PageSize      int       `json:"page_size"`
	StartIndex    int       `json:"start_index"`
	EndIndex      int       `json:"end_index"`
	Clamped       bool      `json:"clamped"`
	RequestedPage int       `json:"requested_page,omitempty"`
}

// Lookups are the read-only master-data dictionaries (id to label) used to
// resolve display labels and to build the searchable text of a charge.
type Lookups struct {
	Categories map[string]string `json:"categories"`
	Suppliers  map[string]string `json:"suppliers"`
	Cities     map[string]string `json:"cities"`
	Ambulances map[string]string `json:"ambulances"`
	Staff      map[string]string `json:"staff"`
	Products   map[string]string `json:"products"`
}

func (l Lookups) CategoryName(id string) string { return l.Categories[id] }
func (l Lookups) SupplierName(id string) string { return l.Suppliers[id] }
func (l Lookups) CityName(id string) string { return l.Cities[id] }
func (l Lookups) AmbulancePlate(id string) string { return l.Ambulances[id] }
func (l Lookups) StaffName(id string) string { return l.Staff[id] }
