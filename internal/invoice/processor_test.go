package invoice

import (
	"errors"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Processor", func() {
	var (
		store     *Store
		extractor *mockExtractor
		timeSrc   *mockTimeSource
		processor *Processor
	)

	BeforeEach(func() {
		store = NewStore()
		extractor = newMockExtractor()
		timeSrc = &mockTimeSource{now: time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)}
		processor = NewProcessorWithDeps(store, extractor, timeSrc)

		DeferCleanup(func() {
			extractor.release()
			Expect(processor.Close()).To(Succeed())
		})
	})

	statusOf := func(index int) func() Status {
		return func() Status {
			record, err := store.Get(index)
			if err != nil {
				return ""
			}
			return record.Status
		}
	}

	Describe("Enqueue", func() {
		It("appends one PENDING record per file in file order", func() {
			extractor.block()
			start, err := processor.Enqueue([]BatchFile{
				{Name: "a.pdf", Data: []byte("a"), ContentType: "application/pdf"},
				{Name: "b.png", Data: []byte("b"), ContentType: "image/png"},
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(start).To(Equal(0))
			Expect(store.Len()).To(Equal(2))

			records := store.List()
			Expect(records[0].FileName).To(Equal("a.pdf"))
			Expect(records[1].FileName).To(Equal("b.png"))
			Expect(records[1].Status).To(Equal(StatusPending))
		})

		It("seeds the received date with the ingestion date", func() {
			extractor.block()
			_, err := processor.Enqueue([]BatchFile{
				{Name: "a.pdf", Data: []byte("a"), ContentType: "application/pdf"},
			})
			Expect(err).NotTo(HaveOccurred())

			record, err := store.Get(0)
			Expect(err).NotTo(HaveOccurred())
			Expect(record.ReceivedDate).To(Equal("2024-03-01"))
		})

		It("defaults the classification to ALAU", func() {
			extractor.block()
			_, err := processor.Enqueue([]BatchFile{
				{Name: "a.pdf", Data: []byte("a"), ContentType: "application/pdf"},
			})
			Expect(err).NotTo(HaveOccurred())

			record, err := store.Get(0)
			Expect(err).NotTo(HaveOccurred())
			Expect(record.Classification).To(Equal(ClassificationAlau))
		})

		It("rejects an empty batch", func() {
			_, err := processor.Enqueue(nil)
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("processing a batch", func() {
		When("one file succeeds and another fails", func() {
			BeforeEach(func() {
				extractor.results["a"] = arsInvoice("Acme", 100)
				extractor.errs["b"] = errors.New("service unavailable")

				_, err := processor.Enqueue([]BatchFile{
					{Name: "a.pdf", Data: []byte("a"), ContentType: "application/pdf"},
					{Name: "b.png", Data: []byte("b"), ContentType: "image/png"},
				})
				Expect(err).NotTo(HaveOccurred())
				Eventually(processor.Busy).Should(BeFalse())
			})

			It("leaves every record in a terminal status", func() {
				for _, record := range store.List() {
					Expect(record.Status.Terminal()).To(BeTrue())
				}
			})

			It("completes the first record with the extracted fields", func() {
				record, err := store.Get(0)
				Expect(err).NotTo(HaveOccurred())
				Expect(record.Status).To(Equal(StatusCompleted))
				Expect(record.Vendor).To(Equal("Acme"))
				Expect(record.TotalAmount).To(HaveValue(Equal(100.0)))
				Expect(record.Currency).To(Equal("ARS"))
				Expect(record.Classification).To(Equal(ClassificationAlau))
			})

			It("marks only the failed record as ERROR with a generic message", func() {
				record, err := store.Get(1)
				Expect(err).NotTo(HaveOccurred())
				Expect(record.Status).To(Equal(StatusError))
				Expect(record.ErrorMessage).To(Equal("Fallo al procesar"))
			})

			It("does not let the failure clear the seeded fields", func() {
				record, err := store.Get(1)
				Expect(err).NotTo(HaveOccurred())
				Expect(record.ReceivedDate).To(Equal("2024-03-01"))
				Expect(record.Classification).To(Equal(ClassificationAlau))
			})
		})

		When("the extraction flags a credit note", func() {
			BeforeEach(func() {
				result := arsInvoice("Acme", 100)
				result.IsCreditNote = true
				extractor.results["a"] = result

				_, err := processor.Enqueue([]BatchFile{
					{Name: "a.pdf", Data: []byte("a"), ContentType: "application/pdf"},
				})
				Expect(err).NotTo(HaveOccurred())
				Eventually(processor.Busy).Should(BeFalse())
			})

			It("classifies the record as NOTA DE CREDITO", func() {
				record, err := store.Get(0)
				Expect(err).NotTo(HaveOccurred())
				Expect(record.Classification).To(Equal(ClassificationCreditNote))
			})
		})

		It("processes files strictly in submission order", func() {
			for _, key := range []string{"a", "b", "c"} {
				extractor.results[key] = arsInvoice("Acme "+key, 100)
			}

			_, err := processor.Enqueue([]BatchFile{
				{Name: "a.pdf", Data: []byte("a"), ContentType: "application/pdf"},
				{Name: "b.png", Data: []byte("b"), ContentType: "image/png"},
				{Name: "c.jpg", Data: []byte("c"), ContentType: "image/jpeg"},
			})
			Expect(err).NotTo(HaveOccurred())
			Eventually(processor.Busy).Should(BeFalse())

			Expect(extractor.callOrder()).To(Equal([]string{"a", "b", "c"}))
		})

		It("marks a record PROCESSING before the extraction call returns", func() {
			extractor.block()
			extractor.results["a"] = arsInvoice("Acme", 100)

			_, err := processor.Enqueue([]BatchFile{
				{Name: "a.pdf", Data: []byte("a"), ContentType: "application/pdf"},
			})
			Expect(err).NotTo(HaveOccurred())

			Eventually(statusOf(0)).Should(Equal(StatusProcessing))

			extractor.release()
			Eventually(statusOf(0)).Should(Equal(StatusCompleted))
		})
	})

	Describe("Busy", func() {
		It("is true while a file is queued or in flight", func() {
			extractor.block()
			extractor.results["a"] = arsInvoice("Acme", 100)

			_, err := processor.Enqueue([]BatchFile{
				{Name: "a.pdf", Data: []byte("a"), ContentType: "application/pdf"},
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(processor.Busy()).To(BeTrue())

			extractor.release()
			Eventually(processor.Busy).Should(BeFalse())
		})
	})

	Describe("a second batch submitted mid-flight", func() {
		It("queues behind the in-flight batch and processes in order", func() {
			extractor.block()
			extractor.results["a"] = arsInvoice("Acme", 100)
			extractor.results["b"] = arsInvoice("Globex", 200)

			_, err := processor.Enqueue([]BatchFile{
				{Name: "a.pdf", Data: []byte("a"), ContentType: "application/pdf"},
			})
			Expect(err).NotTo(HaveOccurred())
			Eventually(statusOf(0)).Should(Equal(StatusProcessing))

			start, err := processor.Enqueue([]BatchFile{
				{Name: "b.png", Data: []byte("b"), ContentType: "image/png"},
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(start).To(Equal(1))

			extractor.release()
			Eventually(processor.Busy).Should(BeFalse())

			Expect(extractor.callOrder()).To(Equal([]string{"a", "b"}))
			Expect(statusOf(0)()).To(Equal(StatusCompleted))
			Expect(statusOf(1)()).To(Equal(StatusCompleted))
		})
	})

	Describe("Reset", func() {
		It("drops the result of an in-flight extraction silently", func() {
			extractor.block()
			extractor.results["a"] = arsInvoice("Acme", 100)

			_, err := processor.Enqueue([]BatchFile{
				{Name: "a.pdf", Data: []byte("a"), ContentType: "application/pdf"},
			})
			Expect(err).NotTo(HaveOccurred())
			Eventually(statusOf(0)).Should(Equal(StatusProcessing))

			processor.Reset()
			store.Reset()
			extractor.release()

			Eventually(processor.Busy).Should(BeFalse())
			Consistently(store.Len).Should(Equal(0))
		})

		It("discards queued files that have not started", func() {
			extractor.block()
			extractor.results["a"] = arsInvoice("Acme", 100)

			_, err := processor.Enqueue([]BatchFile{
				{Name: "a.pdf", Data: []byte("a"), ContentType: "application/pdf"},
				{Name: "b.png", Data: []byte("b"), ContentType: "image/png"},
			})
			Expect(err).NotTo(HaveOccurred())
			Eventually(statusOf(0)).Should(Equal(StatusProcessing))

			processor.Reset()
			store.Reset()
			extractor.release()

			Eventually(processor.Busy).Should(BeFalse())
			Expect(extractor.callOrder()).To(Equal([]string{"a"}))
		})
	})
})
