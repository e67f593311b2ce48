package invoice

import "math"

// Status tracks a record through the extraction pipeline. Transitions are
// monotonic: PENDING → PROCESSING → COMPLETED or ERROR, never backwards.
type Status string

const (
	StatusPending    Status = "PENDING"
	StatusProcessing Status = "PROCESSING"
	StatusCompleted  Status = "COMPLETED"
	StatusError      Status = "ERROR"
)

// Terminal reports whether no further automatic transition can happen.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusError
}

// Classification is the business tag the Monday board uses to route an invoice.
type Classification string

const (
	ClassificationAlau       Classification = "ALAU"
	ClassificationRendicion  Classification = "RENDICION"
	ClassificationExterior   Classification = "EXTERIOR"
	ClassificationCreditNote Classification = "NOTA DE CREDITO"
)

// Valid reports whether c is one of the four known classifications.
func (c Classification) Valid() bool {
	switch c {
	case ClassificationAlau, ClassificationRendicion, ClassificationExterior, ClassificationCreditNote:
		return true
	}
	return false
}

// Classify derives the default classification from the extraction result:
// credit notes become NOTA DE CREDITO, everything else ALAU. The user can
// override it afterwards.
func Classify(isCreditNote bool) Classification {
	if isCreditNote {
		return ClassificationCreditNote
	}
	return ClassificationAlau
}

// Record is the evolving data object for one submitted file. Identity is its
// position in the session's collection. Optional text fields use "" when not
// extracted; optional numeric fields are nil when absent.
type Record struct {
	FileName       string         `json:"file_name"`
	Status         Status         `json:"status"`
	Date           string         `json:"date"`          // YYYY-MM-DD
	DueDate        string         `json:"due_date"`      // YYYY-MM-DD
	ReceivedDate   string         `json:"received_date"` // seeded at ingestion, user-editable only
	Vendor         string         `json:"vendor"`
	InvoiceNumber  string         `json:"invoice_number"`
	PurchaseOrder  string         `json:"purchase_order"`
	Description    string         `json:"description"`
	TotalAmount    *float64       `json:"total_amount"`
	Currency       string         `json:"currency"`
	ExchangeRate   *float64       `json:"exchange_rate"`
	Classification Classification `json:"classification"`
	ErrorMessage   string         `json:"error_message,omitempty"`
	StoredFile     string         `json:"stored_file,omitempty"`
	ContentType    string         `json:"content_type,omitempty"`
}

// clone returns a copy of the record that shares no pointers with the
// original, so snapshots handed to observers stay stable.
func (r *Record) clone() Record {
	c := *r
	if r.TotalAmount != nil {
		v := *r.TotalAmount
		c.TotalAmount = &v
	}
	if r.ExchangeRate != nil {
		v := *r.ExchangeRate
		c.ExchangeRate = &v
	}
	return c
}

// FieldPatch is a partial update for a record. Nil fields are skipped. An
// empty classification is also "no change": a blank bulk-edit selector must
// never clear the field. Unknown classification values are skipped as well so
// the field always holds one of the four known tags.
type FieldPatch struct {
	Date           *string         `json:"date"`
	DueDate        *string         `json:"due_date"`
	ReceivedDate   *string         `json:"received_date"`
	Vendor         *string         `json:"vendor"`
	InvoiceNumber  *string         `json:"invoice_number"`
	PurchaseOrder  *string         `json:"purchase_order"`
	Description    *string         `json:"description"`
	TotalAmount    *float64        `json:"total_amount"`
	Currency       *string         `json:"currency"`
	ExchangeRate   *float64        `json:"exchange_rate"`
	Classification *Classification `json:"classification"`
}

// apply merges the patch into the record.
func (p FieldPatch) apply(r *Record) {
	if p.Date != nil {
		r.Date = *p.Date
	}
	if p.DueDate != nil {
		r.DueDate = *p.DueDate
	}
	if p.ReceivedDate != nil {
		r.ReceivedDate = *p.ReceivedDate
	}
	if p.Vendor != nil {
		r.Vendor = *p.Vendor
	}
	if p.InvoiceNumber != nil {
		r.InvoiceNumber = *p.InvoiceNumber
	}
	if p.PurchaseOrder != nil {
		r.PurchaseOrder = *p.PurchaseOrder
	}
	if p.Description != nil {
		r.Description = *p.Description
	}
	if p.TotalAmount != nil {
		v := sanitizeAmount(*p.TotalAmount)
		r.TotalAmount = &v
	}
	if p.Currency != nil {
		r.Currency = *p.Currency
	}
	if p.ExchangeRate != nil {
		v := sanitizeAmount(*p.ExchangeRate)
		r.ExchangeRate = &v
	}
	if p.Classification != nil && (*p.Classification).Valid() {
		r.Classification = *p.Classification
	}
}

// sanitizeAmount coalesces non-finite numeric edits to zero. Applied to every
// numeric field so totalAmount and exchangeRate behave the same.
func sanitizeAmount(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}
