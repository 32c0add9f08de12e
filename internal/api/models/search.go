// Package models provides the request and response bodies of the FareFuse API.
package models

// SearchRequest is the body of POST /api/search.
type SearchRequest struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// SearchResponse is the body of a successful search.
type SearchResponse struct {
	// FetchedAt is an RFC 3339 timestamp with millisecond precision.
	FetchedAt string `json:"fetched_at"`

	// Routes holds DirectRoute and MixedRoute values in rank order.
	Routes []any `json:"routes"`

	RejectedRoutes []RejectedRoute `json:"rejected_routes"`
	Cheapest       Cheapest        `json:"cheapest"`
}

// DirectRoute is a single-mode FLIGHT or TRAIN option.
type DirectRoute struct {
	Type       string  `json:"type"`
	Price      int     `json:"price"`
	TotalTime  float64 `json:"total_time"`
	From       string  `json:"from"`
	To         string  `json:"to"`
	Visibility string  `json:"visibility"`
	Featured   bool    `json:"featured"`
}

// MixedRoute is a FLIGHT to a hub followed by a TRAIN onward.
type MixedRoute struct {
	Type       string  `json:"type"`
	TotalPrice int     `json:"total_price"`
	TotalTime  float64 `json:"total_time"`
	Legs       []Leg   `json:"legs"`
	Hub        string  `json:"hub"`
	// Explanation is null when no saving was worth explaining.
	Explanation *string `json:"explanation"`
	Visibility  string  `json:"visibility"`
	Featured    bool    `json:"featured"`
}

// Leg is one priced segment of a mixed route.
type Leg struct {
	Mode  string `json:"mode"`
	From  string `json:"from"`
	To    string `json:"to"`
	Price int    `json:"price"`
}

// RejectedRoute is a hub candidate that produced no route.
type RejectedRoute struct {
	City   string `json:"city"`
	Reason string `json:"reason"`
}

// Cheapest names the type and price of the featured route.
type Cheapest struct {
	Type  string `json:"type"`
	Price int    `json:"price"`
}
