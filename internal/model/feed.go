package model

type QuoteResponse struct {
	Symbol   string `json:"symbol"`
	Price    string `json:"price"`
	Currency string `json:"currency"`
}

type QuoteErrorResponse struct {
	Message string `json:"message"`
}
