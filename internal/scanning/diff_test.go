package scanning

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func intp(v int) *int       { return &v }
func strp(v string) *string { return &v }
func boolp(v bool) *bool    { return &v }

var _ = Describe("Corrections", func() {
	var (
		original    *ExtractedData
		edited      *ExtractedData
		corrections map[string]Change
	)

	BeforeEach(func() {
		original = &ExtractedData{}
		edited = &ExtractedData{}
	})

	JustBeforeEach(func() {
		corrections = Corrections(original, edited)
	})

	When("nothing was edited", func() {
		BeforeEach(func() {
			original = &ExtractedData{
				TotalAmount:  intp(12000),
				CustomerName: strp("田中様"),
				IsCard:       boolp(true),
			}
			edited = original.Clone()
		})

		It("is empty", func() {
			Expect(corrections).To(BeEmpty())
		})
	})

	When("the total amount was corrected", func() {
		BeforeEach(func() {
			original = &ExtractedData{TotalAmount: intp(1000), CustomerName: strp("A")}
			edited = &ExtractedData{TotalAmount: intp(1200), CustomerName: strp("A")}
		})

		It("records only the amount change", func() {
			Expect(corrections).To(HaveLen(1))
			Expect(corrections).To(HaveKeyWithValue("total_amount", Change{From: 1000, To: 1200}))
		})
	})

	When("a null field was filled in", func() {
		BeforeEach(func() {
			edited = &ExtractedData{CustomerName: strp("鈴木様")}
		})

		It("records nil as the original side", func() {
			Expect(corrections).To(HaveKeyWithValue("customer_name", Change{From: nil, To: "鈴木様"}))
		})
	})

	When("a proposed value was cleared", func() {
		BeforeEach(func() {
			original = &ExtractedData{ChampagneType: strp("モエ")}
		})

		It("records nil as the edited side", func() {
			Expect(corrections).To(HaveKeyWithValue("champagne_type", Change{From: "モエ", To: nil}))
		})
	})

	When("null is replaced by an empty string", func() {
		BeforeEach(func() {
			edited = &ExtractedData{CustomerName: strp("")}
		})

		It("treats them as different", func() {
			Expect(corrections).To(HaveKey("customer_name"))
		})
	})

	When("strings differ only by surrounding whitespace", func() {
		BeforeEach(func() {
			original = &ExtractedData{CustomerName: strp("田中様")}
			edited = &ExtractedData{CustomerName: strp("  田中様  ")}
		})

		It("treats them as equal", func() {
			Expect(corrections).To(BeEmpty())
		})
	})

	When("the payment method was flipped", func() {
		BeforeEach(func() {
			original = &ExtractedData{IsCard: boolp(false)}
			edited = &ExtractedData{IsCard: boolp(true)}
		})

		It("records the flip", func() {
			Expect(corrections).To(HaveKeyWithValue("is_card", Change{From: false, To: true}))
		})
	})

	When("several fields were corrected", func() {
		BeforeEach(func() {
			original = &ExtractedData{
				TotalAmount: intp(10000),
				DrinkCount:  intp(2),
				Date:        strp("2024-01-15"),
			}
			edited = &ExtractedData{
				TotalAmount: intp(12000),
				DrinkCount:  intp(3),
				Date:        strp("2024-01-15"),
			}
		})

		It("records each of them", func() {
			Expect(corrections).To(HaveLen(2))
			Expect(corrections).To(HaveKey("total_amount"))
			Expect(corrections).To(HaveKey("drink_count"))
		})
	})

	When("both sides are nil", func() {
		BeforeEach(func() {
			original = nil
			edited = nil
		})

		It("is empty", func() {
			Expect(corrections).To(BeEmpty())
		})
	})
})

var _ = Describe("ExtractedData.Clone", func() {
	It("copies every field by value", func() {
		src := &ExtractedData{
			TotalAmount:    intp(12000),
			CustomerName:   strp("田中様"),
			EmployeeName:   strp("あやか"),
			Date:           strp("2024-01-15"),
			DrinkCount:     intp(3),
			ChampagneType:  strp("モエ"),
			ChampagnePrice: intp(8000),
			IsCard:         boolp(true),
		}
		clone := src.Clone()

		*clone.TotalAmount = 99999
		*clone.CustomerName = "edited"

		Expect(src.TotalAmount).To(HaveValue(Equal(12000)))
		Expect(src.CustomerName).To(HaveValue(Equal("田中様")))
	})

	It("returns nil for a nil receiver", func() {
		var src *ExtractedData
		Expect(src.Clone()).To(BeNil())
	})
})
