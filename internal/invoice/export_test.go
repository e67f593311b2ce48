package invoice

import (
	"bytes"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/xuri/excelize/v2"
)

func completedRecord(fileName, vendor, currency string, amount float64) Record {
	return Record{
		FileName:       fileName,
		Status:         StatusCompleted,
		Date:           "2024-03-05",
		DueDate:        "2024-04-05",
		ReceivedDate:   "2024-03-01",
		Vendor:         vendor,
		InvoiceNumber:  "A-0001-00001234",
		TotalAmount:    floatPtr(amount),
		Currency:       currency,
		Classification: ClassificationAlau,
	}
}

var _ = Describe("projectRows", func() {
	It("keeps only COMPLETED records", func() {
		records := []Record{
			completedRecord("a.pdf", "Acme", "ARS", 100),
			{FileName: "b.png", Status: StatusError},
			{FileName: "c.jpg", Status: StatusPending},
			{FileName: "d.pdf", Status: StatusProcessing},
			completedRecord("e.pdf", "Globex", "USD", 50),
		}

		rows := projectRows(records)
		Expect(rows).To(HaveLen(2))
		Expect(rows[0].FileName).To(Equal("a.pdf"))
		Expect(rows[1].FileName).To(Equal("e.pdf"))
	})

	It("routes an ARS amount to the ARS column only", func() {
		rows := projectRows([]Record{completedRecord("a.pdf", "Acme", "ARS", 125000.50)})
		Expect(rows[0].AmountARS).To(Equal(125000.50))
		Expect(rows[0].AmountUSD).To(BeZero())
	})

	It("routes any non-ARS currency to the foreign column only", func() {
		for _, currency := range []string{"USD", "EUR", "BRL"} {
			rows := projectRows([]Record{completedRecord("a.pdf", "Acme", currency, 99.9)})
			Expect(rows[0].AmountUSD).To(Equal(99.9))
			Expect(rows[0].AmountARS).To(BeZero())
		}
	})

	It("falls back to Factura when the vendor is empty", func() {
		rows := projectRows([]Record{completedRecord("a.pdf", "", "ARS", 100)})
		Expect(rows[0].ItemName).To(Equal("Factura"))
	})
})

var _ = Describe("Exporter", func() {
	var (
		exporter *Exporter
		records  []Record
		data     []byte
		err      error
	)

	BeforeEach(func() {
		exporter = NewExporterWithDeps(&mockTimeSource{
			now: time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC),
		})
		records = nil
	})

	JustBeforeEach(func() {
		data, err = exporter.Export(records)
	})

	Describe("FileName", func() {
		It("embeds the export date", func() {
			Expect(exporter.FileName()).To(Equal("Reporte_Gastos_2024-03-01.xlsx"))
		})
	})

	When("no record completed", func() {
		BeforeEach(func() {
			records = []Record{
				{FileName: "a.pdf", Status: StatusError},
				{FileName: "b.png", Status: StatusPending},
			}
		})

		It("refuses the export", func() {
			Expect(err).To(MatchError(ErrNoExportableRecords))
		})

		It("writes nothing", func() {
			Expect(data).To(BeNil())
		})
	})

	When("the collection mixes statuses", func() {
		var workbook *excelize.File

		BeforeEach(func() {
			withRate := completedRecord("b.pdf", "Globex", "USD", 50)
			withRate.ExchangeRate = floatPtr(1050.25)
			withRate.Classification = ClassificationExterior

			records = []Record{
				completedRecord("a.pdf", "Acme", "ARS", 100),
				{FileName: "fail.png", Status: StatusError, ErrorMessage: "Fallo al procesar"},
				withRate,
			}
		})

		JustBeforeEach(func() {
			Expect(err).NotTo(HaveOccurred())
			workbook, err = excelize.OpenReader(bytes.NewReader(data))
			Expect(err).NotTo(HaveOccurred())
			DeferCleanup(func() {
				Expect(workbook.Close()).To(Succeed())
			})
		})

		It("writes one sheet with the fixed name", func() {
			Expect(workbook.GetSheetList()).To(Equal([]string{"Monday Import"}))
		})

		It("writes the fixed header row", func() {
			rows, rowsErr := workbook.GetRows("Monday Import")
			Expect(rowsErr).NotTo(HaveOccurred())
			Expect(rows[0]).To(Equal(exportHeaders))
		})

		It("writes one data row per completed record", func() {
			rows, rowsErr := workbook.GetRows("Monday Import")
			Expect(rowsErr).NotTo(HaveOccurred())
			Expect(rows).To(HaveLen(3)) // header + 2 completed
		})

		It("fills the ARS row", func() {
			Expect(workbook.GetCellValue("Monday Import", "A2")).To(Equal("Acme"))
			Expect(workbook.GetCellValue("Monday Import", "B2")).To(Equal("ALAU"))
			Expect(workbook.GetCellValue("Monday Import", "I2")).To(Equal("100"))
			Expect(workbook.GetCellValue("Monday Import", "J2")).To(Equal("0"))
		})

		It("leaves TC FC blank when no exchange rate was extracted", func() {
			Expect(workbook.GetCellValue("Monday Import", "H2")).To(Equal(""))
		})

		It("fills the foreign-currency row", func() {
			Expect(workbook.GetCellValue("Monday Import", "A3")).To(Equal("Globex"))
			Expect(workbook.GetCellValue("Monday Import", "B3")).To(Equal("EXTERIOR"))
			Expect(workbook.GetCellValue("Monday Import", "H3")).To(Equal("1050.25"))
			Expect(workbook.GetCellValue("Monday Import", "I3")).To(Equal("0"))
			Expect(workbook.GetCellValue("Monday Import", "J3")).To(Equal("50"))
		})

		It("carries the source file name into the PDF column", func() {
			Expect(workbook.GetCellValue("Monday Import", "K2")).To(Equal("a.pdf"))
			Expect(workbook.GetCellValue("Monday Import", "K3")).To(Equal("b.pdf"))
		})
	})
})
