package domain

import "time"

// CreateOrderRequest is the body of POST /orders/create.
type CreateOrderRequest struct {
	Order
	IdempotencyKey string `json:"idempotency_key"`
}

type CreateOrderResponse struct {
	Success bool `json:"success"`
	Order   struct {
		ID          string `json:"id"`
		OrderNumber string `json:"order_number"`
		Status      Status `json:"status"`
		Total       Money  `json:"total"`
	} `json:"order"`
}

type StatusUpdateRequest struct {
	OrderID string `json:"order_id"`
	Status  Status `json:"status"`
}

type BumpRequest struct {
	KDSItemID string `json:"kds_item_id"`
}

// QueuedSubmission is an order submission the backend has not acknowledged yet.
type QueuedSubmission struct {
	IdempotencyKey string    `json:"idempotency_key"`
	Payload        Order     `json:"payload"`
	CreatedAt      time.Time `json:"created_at"`
	Attempts       int       `json:"attempts"`
	LastError      string    `json:"last_error,omitempty"`
}
