package extraction

// InvoiceData contains the structured fields extracted from one invoice document.
// Vendor, TotalAmount and Currency are mandatory in a valid extraction; the
// remaining fields may be empty (strings) or nil (numbers) when the document
// does not show them.
type InvoiceData struct {
	Date          string   `json:"date"`          // YYYY-MM-DD
	DueDate       string   `json:"dueDate"`       // YYYY-MM-DD
	Vendor        string   `json:"vendor"`
	InvoiceNumber string   `json:"invoiceNumber"`
	PurchaseOrder string   `json:"purchaseOrder"`
	TotalAmount   *float64 `json:"totalAmount"`
	Currency      string   `json:"currency"` // ISO code, e.g. ARS, USD, EUR
	ExchangeRate  *float64 `json:"exchangeRate"`
	Description   string   `json:"description"`
	IsCreditNote  bool     `json:"isCreditNote"`
}

// Extractor defines the interface for invoice extraction providers
type Extractor interface {
	// ExtractInvoice analyzes an invoice image/PDF and extracts its fields
	ExtractInvoice(documentData []byte, contentType string) (*InvoiceData, error)
	// Close closes the extractor and releases resources
	Close() error
}

// invoiceExtractionPrompt is the shared instruction used by all providers.
// The wording (including the Spanish field descriptions) is part of the
// contract with the model: changing it changes extraction quality, so keep it
// stable across providers.
const invoiceExtractionPrompt = `Analiza esta factura. Extrae los siguientes datos con precisión.

Si algún dato no es visible, intenta inferirlo o déjalo vacío.

Devuelve un JSON con la siguiente estructura:
- date: Fecha de emisión de la factura (YYYY-MM-DD).
- dueDate: Fecha de vencimiento de la factura (YYYY-MM-DD). Si no hay, usa la fecha de emisión.
- vendor: Nombre de la empresa o proveedor.
- invoiceNumber: Número de factura.
- purchaseOrder: Número de Orden de Compra (OC / PO) si aparece.
- totalAmount: El monto total numérico (sin símbolos).
- currency: Código de moneda ISO (USD, ARS, EUR, etc). Si es pesos argentinos, usa 'ARS'.
- exchangeRate: Tipo de Cambio (T.C.) si aparece explícitamente en la factura.
- description: Breve descripción del ítem o servicio.
- isCreditNote: BOOLEAN. 'true' si el documento dice explícitamente "Nota de Crédito" o "Credit Note", de lo contrario 'false'.

Devuelve SOLO el objeto JSON, sin texto adicional y sin bloques de código markdown.`
