package validation_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	errors "github.com/frahmantamala/expense-assistant/internal"
	"github.com/frahmantamala/expense-assistant/internal/core/common/validation"
)

var _ = Describe("ValidationBuilder", func() {
	It("passes when every field is valid", func() {
		v := validation.NewValidator()
		v.Field("amount", int64(1250)).MinInt(validation.MinAmountMinor, errors.ErrCodeAmountTooLow)
		v.Field("currency", "GBP").Required().CurrencyCode()
		Expect(v.Validate()).To(BeNil())
	})

	It("reports only the first failure per field", func() {
		v := validation.NewValidator()
		v.Field("description", "").Required().MaxLength(3, errors.ErrCodeInvalidDescription)

		appErr := v.Validate()
		Expect(appErr).NotTo(BeNil())
		details := appErr.Details.(errors.ValidationErrors)
		Expect(details.Errors).To(HaveLen(1))
		Expect(details.Errors[0].Message).To(Equal("description is required"))
	})

	It("collects failures across fields with their codes", func() {
		v := validation.NewValidator()
		v.Field("amount", validation.MaxAmountMinor+1).MaxInt(validation.MaxAmountMinor, errors.ErrCodeAmountTooHigh)
		v.Field("reviewerId", int64(0)).Positive(errors.ErrCodeInvalidReviewer)
		v.Field("currency", "gbp").CurrencyCode()

		appErr := v.Validate()
		Expect(appErr).NotTo(BeNil())
		Expect(appErr.Code).To(Equal(errors.ErrCodeValidationFailed))
		Expect(appErr.FieldErrors()).To(HaveKey("amount"))
		Expect(appErr.FieldErrors()).To(HaveKey("reviewerId"))
		Expect(appErr.FieldErrors()).To(HaveKeyWithValue("currency", "currency must be a three letter currency code"))

		codes := []string{}
		for _, fe := range appErr.Details.(errors.ValidationErrors).Errors {
			codes = append(codes, fe.Code)
		}
		Expect(codes).To(ConsistOf(
			string(errors.ErrCodeAmountTooHigh),
			string(errors.ErrCodeInvalidReviewer),
			string(errors.ErrCodeInvalidCurrency),
		))
	})

	It("counts description length in characters", func() {
		v := validation.NewValidator()
		v.Field("description", "ééé").MaxLength(3, errors.ErrCodeInvalidDescription)
		Expect(v.Validate()).To(BeNil())
	})
})
