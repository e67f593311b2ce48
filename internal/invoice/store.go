package invoice

import (
	"fmt"
	"sync"

	"github.com/aperalta/factura-monday/internal/extraction"
)

// Store owns the ordered record collection for one session. Records are
// addressed by their current index; deletion shifts later indices down, so
// callers must never hold on to stale indices across a removal.
//
// All mutations are serialized behind a single mutex, and observers are
// notified after each mutation is durable in the collection.
type Store struct {
	mu        sync.RWMutex
	records   []*Record
	observers []func()
}

// NewStore creates an empty Store
func NewStore() *Store {
	return &Store{}
}

// Subscribe registers fn to run after every mutation. Observers run on the
// mutating goroutine, outside the store lock, in registration order.
func (s *Store) Subscribe(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.observers = append(s.observers, fn)
}

func (s *Store) notify() {
	s.mu.RLock()
	observers := make([]func(), len(s.observers))
	copy(observers, s.observers)
	s.mu.RUnlock()

	for _, fn := range observers {
		fn()
	}
}

// Append adds records to the end of the collection, preserving order, and
// returns the index of the first appended record.
func (s *Store) Append(records ...*Record) int {
	s.mu.Lock()
	start := len(s.records)
	s.records = append(s.records, records...)
	s.mu.Unlock()

	s.notify()
	return start
}

// Len returns the current collection size
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// Get returns a copy of the record at index
func (s *Store) Get(index int) (Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if index < 0 || index >= len(s.records) {
		return Record{}, fmt.Errorf("record index %d out of range", index)
	}
	return s.records[index].clone(), nil
}

// List returns a snapshot of all records in insertion order
func (s *Store) List() []Record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	records := make([]Record, 0, len(s.records))
	for _, r := range s.records {
		records = append(records, r.clone())
	}
	return records
}

// UpdateAt merges the given fields into the record at index
func (s *Store) UpdateAt(index int, patch FieldPatch) error {
	s.mu.Lock()
	if index < 0 || index >= len(s.records) {
		s.mu.Unlock()
		return fmt.Errorf("record index %d out of range", index)
	}
	patch.apply(s.records[index])
	s.mu.Unlock()

	s.notify()
	return nil
}

// BulkUpdate applies the same merge to every index in indices. Each merge is
// independent; invalid indices are reported but do not roll back the others.
func (s *Store) BulkUpdate(indices []int, patch FieldPatch) error {
	s.mu.Lock()
	var invalid []int
	for _, index := range indices {
		if index < 0 || index >= len(s.records) {
			invalid = append(invalid, index)
			continue
		}
		patch.apply(s.records[index])
	}
	s.mu.Unlock()

	s.notify()
	if len(invalid) > 0 {
		return fmt.Errorf("record indices out of range: %v", invalid)
	}
	return nil
}

// RemoveAt deletes the record at index, shifting subsequent indices down
func (s *Store) RemoveAt(index int) error {
	s.mu.Lock()
	if index < 0 || index >= len(s.records) {
		s.mu.Unlock()
		return fmt.Errorf("record index %d out of range", index)
	}
	s.records = append(s.records[:index], s.records[index+1:]...)
	s.mu.Unlock()

	s.notify()
	return nil
}

// Reset discards the whole collection
func (s *Store) Reset() {
	s.mu.Lock()
	s.records = nil
	s.mu.Unlock()

	s.notify()
}

// MarkProcessing transitions the record at index from PENDING to PROCESSING.
// Called by the processor immediately before the extraction call so observers
// see the record leave the queue.
func (s *Store) MarkProcessing(index int) error {
	s.mu.Lock()
	if index < 0 || index >= len(s.records) {
		s.mu.Unlock()
		return fmt.Errorf("record index %d out of range", index)
	}
	r := s.records[index]
	if r.Status != StatusPending {
		s.mu.Unlock()
		return fmt.Errorf("record %d is %s, not %s", index, r.Status, StatusPending)
	}
	r.Status = StatusProcessing
	s.mu.Unlock()

	s.notify()
	return nil
}

// Complete merges an extraction result into the record at index and moves it
// to COMPLETED. ReceivedDate is deliberately left alone: it is seeded at
// ingestion and only the user may change it.
func (s *Store) Complete(index int, data *extraction.InvoiceData) error {
	s.mu.Lock()
	if index < 0 || index >= len(s.records) {
		s.mu.Unlock()
		return fmt.Errorf("record index %d out of range", index)
	}
	r := s.records[index]
	if r.Status != StatusProcessing {
		s.mu.Unlock()
		return fmt.Errorf("record %d is %s, not %s", index, r.Status, StatusProcessing)
	}
	r.Date = data.Date
	r.DueDate = data.DueDate
	r.Vendor = data.Vendor
	r.InvoiceNumber = data.InvoiceNumber
	r.PurchaseOrder = data.PurchaseOrder
	r.Description = data.Description
	if data.TotalAmount != nil {
		v := sanitizeAmount(*data.TotalAmount)
		r.TotalAmount = &v
	}
	r.Currency = data.Currency
	if data.ExchangeRate != nil {
		v := sanitizeAmount(*data.ExchangeRate)
		r.ExchangeRate = &v
	}
	r.Classification = Classify(data.IsCreditNote)
	r.Status = StatusCompleted
	s.mu.Unlock()

	s.notify()
	return nil
}

// Fail moves the record at index to ERROR with a user-facing message
func (s *Store) Fail(index int, message string) error {
	s.mu.Lock()
	if index < 0 || index >= len(s.records) {
		s.mu.Unlock()
		return fmt.Errorf("record index %d out of range", index)
	}
	r := s.records[index]
	if r.Status.Terminal() {
		s.mu.Unlock()
		return fmt.Errorf("record %d is already %s", index, r.Status)
	}
	r.Status = StatusError
	r.ErrorMessage = message
	s.mu.Unlock()

	s.notify()
	return nil
}
