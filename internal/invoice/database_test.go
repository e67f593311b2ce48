package invoice

import (
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("BoltDB", func() {
	var db *BoltDB

	BeforeEach(func() {
		var err error
		db, err = NewBoltDB(filepath.Join(GinkgoT().TempDir(), "test.db"))
		Expect(err).NotTo(HaveOccurred())

		DeferCleanup(func() {
			Expect(db.Close()).To(Succeed())
		})
	})

	It("returns an empty collection before any save", func() {
		records, err := db.LoadRecords()
		Expect(err).NotTo(HaveOccurred())
		Expect(records).To(BeEmpty())
	})

	It("round-trips a snapshot of the collection", func() {
		saved := []Record{
			{
				FileName:       "a.pdf",
				Status:         StatusCompleted,
				ReceivedDate:   "2024-03-01",
				Vendor:         "Acme",
				TotalAmount:    floatPtr(100),
				Currency:       "ARS",
				Classification: ClassificationAlau,
				StoredFile:     "id-1_a.pdf",
				ContentType:    "application/pdf",
			},
			{
				FileName:     "b.png",
				Status:       StatusError,
				ReceivedDate: "2024-03-01",
				ErrorMessage: "Fallo al procesar",
			},
		}
		Expect(db.SaveRecords(saved)).To(Succeed())

		loaded, err := db.LoadRecords()
		Expect(err).NotTo(HaveOccurred())
		Expect(loaded).To(Equal(saved))
	})

	It("keeps only the latest snapshot", func() {
		Expect(db.SaveRecords([]Record{{FileName: "a.pdf", Status: StatusPending}})).To(Succeed())
		Expect(db.SaveRecords([]Record{})).To(Succeed())

		loaded, err := db.LoadRecords()
		Expect(err).NotTo(HaveOccurred())
		Expect(loaded).To(BeEmpty())
	})
})
