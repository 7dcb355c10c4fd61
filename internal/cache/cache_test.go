package cache

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/shopspring/decimal"

	"github.com/zombor/spesen-tracker/internal/expense"
)

func TestCache(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Cache Suite")
}

var _ = Describe("Compute", func() {
	It("is stable for identical bytes", func() {
		Expect(Compute([]byte("receipt"))).To(Equal(Compute([]byte("receipt"))))
	})

	It("differs for distinct bytes", func() {
		Expect(Compute([]byte("receipt a"))).NotTo(Equal(Compute([]byte("receipt b"))))
	})

	It("ignores everything but content", func() {
		// Same bytes from different "files" must collide on purpose.
		a := append([]byte(nil), []byte("identical content")...)
		b := append([]byte(nil), []byte("identical content")...)
		Expect(Compute(a)).To(Equal(Compute(b)))
	})
})

var _ = Describe("Cache", func() {
	var (
		tempDir string
		c       *Cache
		record  *expense.Record
		fp      Fingerprint
		err     error
	)

	BeforeEach(func() {
		tempDir, err = os.MkdirTemp("", "spesen-cache-test-*")
		Expect(err).NotTo(HaveOccurred())

		c, err = Open(filepath.Join(tempDir, "cache.db"))
		Expect(err).NotTo(HaveOccurred())

		fp = Compute([]byte("some receipt bytes"))
		record = &expense.Record{
			Category:    expense.CategoryBewirtung,
			Date:        time.Date(2025, 11, 23, 0, 0, 0, 0, time.UTC),
			Amount:      decimal.RequireFromString("42.75"),
			Description: "Dinner",
			Fingerprint: string(fp),
		}
	})

	AfterEach(func() {
		c.Close()
		os.RemoveAll(tempDir)
	})

	Describe("Lookup", func() {
		When("nothing was stored", func() {
			It("reports a miss", func() {
				_, hit, err := c.Lookup(fp, "v2")
				Expect(err).NotTo(HaveOccurred())
				Expect(hit).To(BeFalse())
			})
		})

		When("a record was stored under the same version", func() {
			BeforeEach(func() {
				Expect(c.Store(fp, record, "v2")).To(Succeed())
			})

			It("reports a hit", func() {
				cached, hit, err := c.Lookup(fp, "v2")
				Expect(err).NotTo(HaveOccurred())
				Expect(hit).To(BeTrue())
				Expect(cached.Equal(record)).To(BeTrue())
			})

			It("survives a close and reopen", func() {
				Expect(c.Close()).To(Succeed())

				reopened, err := Open(filepath.Join(tempDir, "cache.db"))
				Expect(err).NotTo(HaveOccurred())
				defer reopened.Close()

				cached, hit, err := reopened.Lookup(fp, "v2")
				Expect(err).NotTo(HaveOccurred())
				Expect(hit).To(BeTrue())
				Expect(cached.Equal(record)).To(BeTrue())
			})
		})

		When("the entry was written under an older extractor version", func() {
			BeforeEach(func() {
				Expect(c.Store(fp, record, "v1")).To(Succeed())
			})

			It("reports a miss", func() {
				_, hit, err := c.Lookup(fp, "v2")
				Expect(err).NotTo(HaveOccurred())
				Expect(hit).To(BeFalse())
			})
		})

		When("bypass mode is enabled", func() {
			BeforeEach(func() {
				Expect(c.Store(fp, record, "v2")).To(Succeed())
				c.Bypass = true
			})

			It("unconditionally reports a miss", func() {
				_, hit, err := c.Lookup(fp, "v2")
				Expect(err).NotTo(HaveOccurred())
				Expect(hit).To(BeFalse())
			})

			It("still accepts writes that refresh the entry", func() {
				updated := *record
				updated.Description = "Dinner, reprocessed"
				Expect(c.Store(fp, &updated, "v2")).To(Succeed())

				c.Bypass = false
				cached, hit, err := c.Lookup(fp, "v2")
				Expect(err).NotTo(HaveOccurred())
				Expect(hit).To(BeTrue())
				Expect(cached.Description).To(Equal("Dinner, reprocessed"))
			})
		})
	})

	Describe("Store", func() {
		It("is last-writer-wins", func() {
			Expect(c.Store(fp, record, "v2")).To(Succeed())

			updated := *record
			updated.Amount = decimal.RequireFromString("10.00")
			Expect(c.Store(fp, &updated, "v2")).To(Succeed())

			cached, hit, err := c.Lookup(fp, "v2")
			Expect(err).NotTo(HaveOccurred())
			Expect(hit).To(BeTrue())
			Expect(cached.Amount.Equal(decimal.RequireFromString("10.00"))).To(BeTrue())
		})
	})

	Describe("Len", func() {
		It("counts stored extractions", func() {
			Expect(c.Store(fp, record, "v2")).To(Succeed())
			Expect(c.Store(Compute([]byte("other")), record, "v2")).To(Succeed())

			n, err := c.Len()
			Expect(err).NotTo(HaveOccurred())
			Expect(n).To(Equal(2))
		})
	})
})
