package dto

// CreateIntentRequest requests a new payment intent. Nonce is the
// caller-supplied idempotency component: resubmitting the same
// (studentId, amount, nonce) triple returns the original intent.
type CreateIntentRequest struct {
	StudentID string `json:"studentId" binding:"required"`
	Amount    int64  `json:"amount" binding:"required"`
	Nonce     string `json:"nonce" binding:"required"`
}

// CreateIntentResponse carries the created (or replayed) intent
type CreateIntentResponse struct {
	PaymentID   string `json:"paymentId"`
	GatewayRef  string `json:"gatewayRef"`
	CheckoutURL string `json:"checkoutUrl,omitempty"`
}

// ConfirmPaymentRequest confirms a payment by its gateway reference
type ConfirmPaymentRequest struct {
	GatewayRef string `json:"gatewayRef" binding:"required"`
}

// ConfirmPaymentResponse reports the reconciled outcome
type ConfirmPaymentResponse struct {
	PaymentID  string `json:"paymentId"`
	NewBalance int64  `json:"newBalance"`
	SyncStatus string `json:"syncStatus"`
}

// TuitionOverrideRequest raises a student's tuition amount
type TuitionOverrideRequest struct {
	TuitionAmount int64 `json:"tuitionAmount" binding:"required"`
}

// TuitionSummary reports a student's ledger state
type TuitionSummary struct {
	TuitionAmount int64 `json:"tuitionAmount"`
	TuitionPaid   int64 `json:"tuitionPaid"`
	Balance       int64 `json:"balance"`
}
