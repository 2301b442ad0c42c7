package fedreg

import "time"

// OrderSummary is one entry from the Federal Register documents listing.
type OrderSummary struct {
	DocumentNumber string `json:"document_number"`
	Title          string `json:"title"`
	SigningDate    string `json:"signing_date"`
	RawTextURL     string `json:"raw_text_url"`
	BodyHTMLURL    string `json:"body_html_url"`
}

// listResponse is the paginated documents.json payload.
type listResponse struct {
	Count       int            `json:"count"`
	NextPageURL string         `json:"next_page_url"`
	Results     []OrderSummary `json:"results"`
}

// Order is a fully fetched executive order.
type Order struct {
	DocumentNumber string    `json:"document_number"`
	Title          string    `json:"title"`
	SigningDate    string    `json:"signing_date"`
	Text           string    `json:"text"`
	FetchedAt      time.Time `json:"fetched_at"`
}
