package expense

import (
	"os"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/shopspring/decimal"
)

var _ = Describe("BoltDB", func() {
	var (
		tempDir string
		db      *BoltDB
		err     error
	)

	BeforeEach(func() {
		tempDir, err = os.MkdirTemp("", "spesen-db-test-*")
		Expect(err).NotTo(HaveOccurred())

		db, err = NewBoltDB(filepath.Join(tempDir, "spesen.db"))
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		db.Close()
		os.RemoveAll(tempDir)
	})

	record := func(description string, amount string) *Record {
		return &Record{
			Category:    CategorySonstiges,
			Date:        time.Date(2025, 11, 23, 0, 0, 0, 0, time.UTC),
			Amount:      decimal.RequireFromString(amount),
			Description: description,
			Fingerprint: "fp-" + description,
		}
	}

	Describe("AppendRecords", func() {
		When("no abrechnung exists yet", func() {
			It("creates one with the records", func() {
				abrechnung, err := db.AppendRecords("Max Mustermann", "Nov 2025", []*Record{record("a", "10.00")})
				Expect(err).NotTo(HaveOccurred())
				Expect(abrechnung.Records).To(HaveLen(1))
				Expect(abrechnung.Name).To(Equal("Max Mustermann"))
			})
		})

		When("an abrechnung already exists", func() {
			BeforeEach(func() {
				_, err = db.AppendRecords("Max Mustermann", "Nov 2025", []*Record{record("a", "10.00")})
				Expect(err).NotTo(HaveOccurred())
			})

			It("appends instead of overwriting", func() {
				abrechnung, err := db.AppendRecords("Max Mustermann", "Nov 2025", []*Record{record("b", "5.50")})
				Expect(err).NotTo(HaveOccurred())
				Expect(abrechnung.Records).To(HaveLen(2))
			})

			It("keeps separate months apart", func() {
				_, err := db.AppendRecords("Max Mustermann", "Dez 2025", []*Record{record("c", "7.00")})
				Expect(err).NotTo(HaveOccurred())

				november, err := db.GetAbrechnung("Max Mustermann", "Nov 2025")
				Expect(err).NotTo(HaveOccurred())
				Expect(november.Records).To(HaveLen(1))
			})
		})
	})

	Describe("GetAbrechnung", func() {
		It("round-trips records through persistence", func() {
			original := record("restaurant", "42.75")
			_, err := db.AppendRecords("Max", "Nov 2025", []*Record{original})
			Expect(err).NotTo(HaveOccurred())

			stored, err := db.GetAbrechnung("Max", "Nov 2025")
			Expect(err).NotTo(HaveOccurred())
			Expect(stored.Records).To(HaveLen(1))
			Expect(stored.Records[0].Equal(original)).To(BeTrue())
		})

		It("returns an error for an unknown grouping", func() {
			_, err := db.GetAbrechnung("Nobody", "Jan 2020")
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("ListAbrechnungen", func() {
		It("returns all groupings", func() {
			_, err = db.AppendRecords("Max", "Nov 2025", []*Record{record("a", "1.00")})
			Expect(err).NotTo(HaveOccurred())
			_, err = db.AppendRecords("Erika", "Nov 2025", []*Record{record("b", "2.00")})
			Expect(err).NotTo(HaveOccurred())

			all, err := db.ListAbrechnungen()
			Expect(err).NotTo(HaveOccurred())
			Expect(all).To(HaveLen(2))
		})
	})
})
