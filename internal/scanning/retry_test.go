package scanning

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"google.golang.org/api/googleapi"
)

var _ = Describe("RetryPolicy", func() {
	var (
		policy   RetryPolicy
		calls    int
		fnErrors []error
		err      error
	)

	BeforeEach(func() {
		policy = RetryPolicy{MaxAttempts: 3, BaseDelay: time.Millisecond}
		calls = 0
	})

	JustBeforeEach(func() {
		err = policy.Do(context.Background(), func() error {
			var e error
			if calls < len(fnErrors) {
				e = fnErrors[calls]
			}
			calls++
			return e
		})
	})

	When("the call succeeds immediately", func() {
		BeforeEach(func() {
			fnErrors = nil
		})

		It("should not return an error", func() {
			Expect(err).NotTo(HaveOccurred())
		})

		It("should call the function once", func() {
			Expect(calls).To(Equal(1))
		})
	})

	When("a rate limit clears after one retry", func() {
		BeforeEach(func() {
			fnErrors = []error{&googleapi.Error{Code: http.StatusTooManyRequests}}
		})

		It("should not return an error", func() {
			Expect(err).NotTo(HaveOccurred())
		})

		It("should call the function twice", func() {
			Expect(calls).To(Equal(2))
		})
	})

	When("the service keeps failing with 5xx", func() {
		BeforeEach(func() {
			fnErrors = []error{
				&googleapi.Error{Code: http.StatusServiceUnavailable},
				&googleapi.Error{Code: http.StatusServiceUnavailable},
				&googleapi.Error{Code: http.StatusServiceUnavailable},
			}
		})

		It("returns the last error after exhausting attempts", func() {
			var apiErr *googleapi.Error
			Expect(errors.As(err, &apiErr)).To(BeTrue())
		})

		It("stops at MaxAttempts", func() {
			Expect(calls).To(Equal(3))
		})
	})

	When("the response is malformed", func() {
		BeforeEach(func() {
			fnErrors = []error{
				fmt.Errorf("parsing receipt data: %w", ErrMalformedResponse),
				nil,
			}
		})

		It("does not retry", func() {
			Expect(calls).To(Equal(1))
		})

		It("returns the error", func() {
			Expect(err).To(MatchError(ErrMalformedResponse))
		})
	})

	When("the document is unsupported", func() {
		BeforeEach(func() {
			fnErrors = []error{
				fmt.Errorf("decoding image: %w", ErrUnsupportedDocument),
				nil,
			}
		})

		It("does not retry", func() {
			Expect(calls).To(Equal(1))
		})
	})
})

var _ = Describe("IsTransient", func() {
	It("treats rate limits as transient", func() {
		Expect(IsTransient(&googleapi.Error{Code: http.StatusTooManyRequests})).To(BeTrue())
	})

	It("treats server errors as transient", func() {
		Expect(IsTransient(&googleapi.Error{Code: http.StatusBadGateway})).To(BeTrue())
	})

	It("treats client errors as permanent", func() {
		Expect(IsTransient(&googleapi.Error{Code: http.StatusBadRequest})).To(BeFalse())
	})

	It("treats deadline exceeded as transient", func() {
		Expect(IsTransient(context.DeadlineExceeded)).To(BeTrue())
	})

	It("treats malformed responses as permanent", func() {
		Expect(IsTransient(ErrMalformedResponse)).To(BeFalse())
	})

	It("treats nil as not transient", func() {
		Expect(IsTransient(nil)).To(BeFalse())
	})
})
