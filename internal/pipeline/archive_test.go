package pipeline

import (
	"os"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/zombor/spesen-tracker/internal/cache"
)

var _ = Describe("Archiver", func() {
	var (
		tempDir  string
		archiver *Archiver
		date     time.Time
		err      error
	)

	source := func(name, content string) (string, cache.Fingerprint) {
		path := filepath.Join(tempDir, name)
		Expect(os.WriteFile(path, []byte(content), 0644)).To(Succeed())
		return path, cache.Compute([]byte(content))
	}

	BeforeEach(func() {
		tempDir, err = os.MkdirTemp("", "spesen-archive-test-*")
		Expect(err).NotTo(HaveOccurred())

		archiver = &Archiver{Root: filepath.Join(tempDir, "archiv")}
		date = time.Date(2025, 11, 21, 0, 0, 0, 0, time.UTC)
	})

	AfterEach(func() {
		os.RemoveAll(tempDir)
	})

	It("moves the file into the year/month subtree", func() {
		path, fp := source("rechnung.pdf", "pdf bytes")

		target, err := archiver.Archive(path, fp, date)
		Expect(err).NotTo(HaveOccurred())
		Expect(target).To(Equal(filepath.Join(archiver.Root, "2025", "11_November", "rechnung.pdf")))
		Expect(target).To(BeAnExistingFile())
		Expect(path).NotTo(BeAnExistingFile())

		moved, err := os.ReadFile(target)
		Expect(err).NotTo(HaveOccurred())
		Expect(string(moved)).To(Equal("pdf bytes"))
	})

	It("uses the German month name for the subtree", func() {
		path, fp := source("quittung.png", "png bytes")

		target, err := archiver.Archive(path, fp, time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC))
		Expect(err).NotTo(HaveOccurred())
		Expect(target).To(ContainSubstring(filepath.Join("2026", "03_März")))
	})

	When("the destination already holds the same content", func() {
		It("treats the move as already done", func() {
			first, fp := source("rechnung.pdf", "pdf bytes")
			target, err := archiver.Archive(first, fp, date)
			Expect(err).NotTo(HaveOccurred())

			// The same receipt shows up in the inbox again.
			second, _ := source("rechnung.pdf", "pdf bytes")
			again, err := archiver.Archive(second, fp, date)
			Expect(err).NotTo(HaveOccurred())
			Expect(again).To(Equal(target))
			Expect(second).NotTo(BeAnExistingFile())

			entries, err := os.ReadDir(filepath.Dir(target))
			Expect(err).NotTo(HaveOccurred())
			Expect(entries).To(HaveLen(1))
		})
	})

	When("a different receipt has the same file name", func() {
		It("adds a counter suffix instead of overwriting", func() {
			first, firstFp := source("scan.jpg", "first receipt")
			_, err := archiver.Archive(first, firstFp, date)
			Expect(err).NotTo(HaveOccurred())

			second, secondFp := source("scan.jpg", "second receipt")
			target, err := archiver.Archive(second, secondFp, date)
			Expect(err).NotTo(HaveOccurred())
			Expect(target).To(Equal(filepath.Join(archiver.Root, "2025", "11_November", "scan_1.jpg")))

			kept, err := os.ReadFile(filepath.Join(archiver.Root, "2025", "11_November", "scan.jpg"))
			Expect(err).NotTo(HaveOccurred())
			Expect(string(kept)).To(Equal("first receipt"))
		})

		It("keeps counting past existing suffixes", func() {
			for i, content := range []string{"one", "two", "three"} {
				path, fp := source("scan.jpg", content)
				target, err := archiver.Archive(path, fp, date)
				Expect(err).NotTo(HaveOccurred())
				if i == 2 {
					Expect(target).To(HaveSuffix("scan_2.jpg"))
				}
			}
		})
	})
})
