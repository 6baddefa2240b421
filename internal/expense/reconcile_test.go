package expense

import (
	"time"

	"cloud.google.com/go/civil"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/shopspring/decimal"

	"github.com/zombor/spend-tracker/internal/category"
	"github.com/zombor/spend-tracker/internal/extract"
	"github.com/zombor/spend-tracker/internal/scanning"
)

func ptr[T any](v T) *T {
	return &v
}

var _ = Describe("Reconcile", func() {
	var (
		capturedAt time.Time
		fields     extract.Fields
		classified *scanning.Classification
		record     *Record
	)

	BeforeEach(func() {
		capturedAt = time.Date(2024, 1, 5, 9, 0, 0, 0, time.UTC)
		fields = extract.Fields{
			Merchant: extract.UnknownMerchant,
			Total:    decimal.RequireFromString("9.50"),
			Date:     civil.Date{Year: 2024, Month: time.January, Day: 1},
			RawText:  "raw receipt",
		}
		classified = nil
	})

	JustBeforeEach(func() {
		record = Reconcile("id-1", fields, classified, capturedAt)
	})

	When("the classification is partial", func() {
		BeforeEach(func() {
			classified = &scanning.Classification{
				Merchant: ptr("Cafe X"),
				Category: ptr(category.Food),
			}
		})

		It("should take classified fields and fall back for the rest", func() {
			Expect(record.Merchant).To(Equal("Cafe X"))
			Expect(record.Total.StringFixed(2)).To(Equal("9.50"))
			Expect(record.Date).To(Equal("2024-01-01"))
			Expect(record.Category).To(Equal(category.Food))
		})

		It("should keep the raw text and id", func() {
			Expect(record.RawText).To(Equal("raw receipt"))
			Expect(record.ID).To(Equal("id-1"))
			Expect(record.CapturedAt).To(Equal(capturedAt))
		})
	})

	When("the classification is complete", func() {
		BeforeEach(func() {
			classified = &scanning.Classification{
				Merchant: ptr("Metro"),
				Total:    ptr(decimal.RequireFromString("2.755")),
				Date:     ptr(civil.Date{Year: 2023, Month: time.December, Day: 31}),
				Category: ptr(category.Transport),
			}
		})

		It("should prefer every classified field", func() {
			Expect(record.Merchant).To(Equal("Metro"))
			Expect(record.Total.StringFixed(2)).To(Equal("2.76"))
			Expect(record.Date).To(Equal("2023-12-31"))
			Expect(record.Category).To(Equal(category.Transport))
		})
	})

	When("there is no classification", func() {
		It("should use the heuristic fields and General", func() {
			Expect(record.Merchant).To(Equal(extract.UnknownMerchant))
			Expect(record.Category).To(Equal(category.General))
		})
	})

	When("the classified category is outside the enumeration", func() {
		BeforeEach(func() {
			classified = &scanning.Classification{Category: ptr(category.Category("Groceries"))}
		})

		It("should use General", func() {
			Expect(record.Category).To(Equal(category.General))
		})
	})

	When("the heuristic merchant is empty too", func() {
		BeforeEach(func() {
			fields.Merchant = ""
		})

		It("should never leave the merchant empty", func() {
			Expect(record.Merchant).To(Equal(extract.UnknownMerchant))
		})
	})

	When("the classified merchant is blank", func() {
		BeforeEach(func() {
			fields.Merchant = "Corner Shop"
			classified = &scanning.Classification{Merchant: ptr("  ")}
		})

		It("should keep the heuristic merchant", func() {
			Expect(record.Merchant).To(Equal("Corner Shop"))
		})
	})
})
