package expense

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("ParseMonthLabel", func() {
	It("parses a German short month", func() {
		year, month := ParseMonthLabel("Nov 2025")
		Expect(year).To(Equal(2025))
		Expect(month).To(Equal(11))
	})

	It("parses a full month name", func() {
		year, month := ParseMonthLabel("Dezember 2025")
		Expect(year).To(Equal(2025))
		Expect(month).To(Equal(12))
	})

	It("parses an English month name", func() {
		year, month := ParseMonthLabel("May 2026")
		Expect(year).To(Equal(2026))
		Expect(month).To(Equal(5))
	})

	It("parses a numeric label", func() {
		year, month := ParseMonthLabel("11/2025")
		Expect(year).To(Equal(2025))
		Expect(month).To(Equal(11))
	})

	It("parses a dotted numeric label", func() {
		year, month := ParseMonthLabel("3.2026")
		Expect(year).To(Equal(2026))
		Expect(month).To(Equal(3))
	})
})

var _ = Describe("MonthDir", func() {
	It("builds the year/month subtree segment", func() {
		Expect(MonthDir(2025, 11)).To(Equal("2025/11_November"))
	})

	It("builds the March segment with umlaut", func() {
		Expect(MonthDir(2026, 3)).To(Equal("2026/03_März"))
	})
})
