package invoice

import (
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

var (
	// ErrNoValidFiles is returned when a selection contains zero accepted files
	ErrNoValidFiles = errors.New("la selección no contiene archivos válidos")

	// ErrBusy is returned for record mutations attempted while a batch is
	// still processing. Processing and review are disjoint phases; refusing
	// edits here keeps the processor's queued indices valid.
	ErrBusy = errors.New("hay un procesamiento en curso")
)

// IDGenerator generates unique names for stored files
type IDGenerator interface {
	Generate() string
}

// defaultIDGenerator generates UUIDs
type defaultIDGenerator struct{}

func (g *defaultIDGenerator) Generate() string {
	return uuid.NewString()
}

// Session owns one record collection from batch submission through review and
// export to reset. All mutation entry points live here.
type Session struct {
	store       *Store
	processor   *Processor
	storage     Storage
	exporter    *Exporter
	idGenerator IDGenerator
}

// NewSession creates a Session
func NewSession(store *Store, processor *Processor, storage Storage, exporter *Exporter) *Session {
	return &Session{
		store:       store,
		processor:   processor,
		storage:     storage,
		exporter:    exporter,
		idGenerator: &defaultIDGenerator{},
	}
}

// NewSessionWithDeps creates a Session with a custom ID generator for testing
func NewSessionWithDeps(store *Store, processor *Processor, storage Storage, exporter *Exporter, idGen IDGenerator) *Session {
	s := NewSession(store, processor, storage, exporter)
	s.idGenerator = idGen
	return s
}

// acceptedContentType decides whether a selected file is processable and
// returns its canonical MIME type. The declared type wins; the extension is
// the fallback for browsers that send none.
func acceptedContentType(filename, contentType string) (string, bool) {
	switch strings.ToLower(strings.TrimSpace(contentType)) {
	case "application/pdf":
		return "application/pdf", true
	case "image/jpeg", "image/jpg":
		return "image/jpeg", true
	case "image/png":
		return "image/png", true
	}

	switch strings.ToLower(filepath.Ext(filename)) {
	case ".pdf":
		return "application/pdf", true
	case ".jpg", ".jpeg":
		return "image/jpeg", true
	case ".png":
		return "image/png", true
	}
	return "", false
}

// AddBatch filters a user selection down to accepted files (PDF, JPEG, PNG),
// stores them, and queues them for extraction. Invalid files are silently
// dropped; a selection with zero valid files is refused without touching the
// collection. Returns the number of queued files.
func (s *Session) AddBatch(files []BatchFile) (int, error) {
	valid := make([]BatchFile, 0, len(files))
	for _, f := range files {
		contentType, ok := acceptedContentType(f.Name, f.ContentType)
		if !ok {
			slog.Info("Dropping unsupported file", "file", f.Name, "content_type", f.ContentType)
			continue
		}
		f.ContentType = contentType
		valid = append(valid, f)
	}
	if len(valid) == 0 {
		return 0, ErrNoValidFiles
	}

	for i := range valid {
		storedName := fmt.Sprintf("%s_%s", s.idGenerator.Generate(), sanitizeFilename(valid[i].Name))
		savedPath, err := s.storage.Save(storedName, valid[i].Data)
		if err != nil {
			// Roll back the files already stored; no records exist yet.
			for _, f := range valid[:i] {
				s.storage.Delete(f.StoredFile)
			}
			return 0, fmt.Errorf("saving file: %w", err)
		}
		valid[i].StoredFile = savedPath
	}

	if _, err := s.processor.Enqueue(valid); err != nil {
		return 0, err
	}
	return len(valid), nil
}

// Records returns a snapshot of the collection
func (s *Session) Records() []Record {
	return s.store.List()
}

// Busy reports whether a batch is still processing
func (s *Session) Busy() bool {
	return s.processor.Busy()
}

// UpdateRecord merges the given fields into one record
func (s *Session) UpdateRecord(index int, patch FieldPatch) error {
	if s.processor.Busy() {
		return ErrBusy
	}
	return s.store.UpdateAt(index, patch)
}

// BulkUpdate merges the given fields into every selected record
func (s *Session) BulkUpdate(indices []int, patch FieldPatch) error {
	if s.processor.Busy() {
		return ErrBusy
	}
	return s.store.BulkUpdate(indices, patch)
}

// DeleteRecord removes one record and its stored file
func (s *Session) DeleteRecord(index int) error {
	if s.processor.Busy() {
		return ErrBusy
	}

	record, err := s.store.Get(index)
	if err != nil {
		return err
	}
	if err := s.store.RemoveAt(index); err != nil {
		return err
	}
	if record.StoredFile != "" {
		if err := s.storage.Delete(record.StoredFile); err != nil {
			slog.Warn("Failed to delete stored file", "file", record.StoredFile, "error", err)
		}
	}
	return nil
}

// Export builds the Monday import workbook from the COMPLETED records and
// returns its bytes and download file name.
func (s *Session) Export() ([]byte, string, error) {
	data, err := s.exporter.Export(s.store.List())
	if err != nil {
		return nil, "", err
	}
	return data, s.exporter.FileName(), nil
}

// Reset discards the whole session: queue, records and stored files. An
// in-flight extraction resolves into the void.
func (s *Session) Reset() {
	s.processor.Reset()

	for _, record := range s.store.List() {
		if record.StoredFile == "" {
			continue
		}
		if err := s.storage.Delete(record.StoredFile); err != nil {
			slog.Warn("Failed to delete stored file", "file", record.StoredFile, "error", err)
		}
	}
	s.store.Reset()
}
