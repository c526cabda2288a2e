package models

import "time"

// Payment defines a tuition payment record based on the 'payments' table.
//
// Amount is in the smallest currency unit. A record transitions to paid only
// through the reconciliation path and never transitions out of paid. The
// triple (StudentID, Amount, Nonce) is the idempotency key for intent
// creation; GatewayRef is the idempotency key for confirmation.
type Payment struct {
	ID          string        `json:"id" db:"id"`
	StudentID   string        `json:"studentId" db:"student_id"`
	Amount      int64         `json:"amount" db:"amount"`
	Currency    string        `json:"currency" db:"currency" example:"EUR"`
	Status      PaymentStatus `json:"status" db:"status"`
	SyncStatus  SyncStatus    `json:"syncStatus" db:"sync_status"`
	GatewayRef  string        `json:"gatewayRef" db:"gateway_ref"`
	Nonce       string        `json:"-" db:"nonce"`
	AppliedAmt  int64         `json:"appliedAmount" db:"applied_amount"` // Portion credited to the ledger
	ExcessAmt   int64         `json:"excessAmount" db:"excess_amount"`   // Captured beyond the balance, awaiting manual reconciliation
	CreatedAt   time.Time     `json:"createdAt" db:"created_at"`
	ConfirmedAt *time.Time    `json:"confirmedAt,omitempty" db:"confirmed_at"`
}

// LinkAudit is an append-only record of a successful account-to-student link.
type LinkAudit struct {
	ID        int64        `json:"id" db:"id"`
	AccountID string       `json:"accountId" db:"account_id"`
	StudentID string       `json:"studentId" db:"student_id"`
	Strategy  LinkStrategy `json:"strategy" db:"strategy"`
	LinkedAt  time.Time    `json:"linkedAt" db:"linked_at"`
}
