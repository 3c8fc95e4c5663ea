// Package clob is a minimal Polymarket CLOB client: order book reads and
// signed fill-or-kill order placement.
package clob

// OrderResponse is the CLOB API's answer to an order submission
type OrderResponse struct {
	OrderID   string `json:"orderID"`
	Status    string `json:"status"`
	TxHash    string `json:"transactionHash,omitempty"`
	ErrorCode string `json:"errorCode,omitempty"`
	Message   string `json:"message,omitempty"`
}

// Filled reports whether a FOK submission executed. The CLOB answers
// "matched" for taker orders that crossed; anything else means the order had
// no effect.
func (r *OrderResponse) Filled() bool {
	return r.Status == "matched"
}

// bookLevel is one price level as returned by GET /book
type bookLevel struct {
	Price string `json:"price"`
	Size  string `json:"size"`
}

// bookResponse is the raw order book payload
type bookResponse struct {
	Bids []bookLevel `json:"bids"`
	Asks []bookLevel `json:"asks"`
}
