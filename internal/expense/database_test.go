package expense

import (
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("BoltDB", func() {
	var (
		dbPath string
		db     *BoltDB
	)

	BeforeEach(func() {
		dbPath = filepath.Join(GinkgoT().TempDir(), "test.db")
		var err error
		db, err = NewBoltDB(dbPath)
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		if db != nil {
			db.Close()
		}
	})

	Describe("Get", func() {
		When("the key was never written", func() {
			It("should return nil without an error", func() {
				data, err := db.Get("missing")
				Expect(err).NotTo(HaveOccurred())
				Expect(data).To(BeNil())
			})
		})

		When("the key was written", func() {
			BeforeEach(func() {
				Expect(db.Put("slot", []byte(`[1,2]`))).To(Succeed())
			})

			It("should return the stored value", func() {
				data, err := db.Get("slot")
				Expect(err).NotTo(HaveOccurred())
				Expect(string(data)).To(Equal(`[1,2]`))
			})
		})
	})

	Describe("Put", func() {
		It("should replace the previous value", func() {
			Expect(db.Put("slot", []byte("first"))).To(Succeed())
			Expect(db.Put("slot", []byte("second"))).To(Succeed())

			data, err := db.Get("slot")
			Expect(err).NotTo(HaveOccurred())
			Expect(string(data)).To(Equal("second"))
		})

		It("should survive reopening the database", func() {
			Expect(db.Put("slot", []byte("kept"))).To(Succeed())
			Expect(db.Close()).To(Succeed())

			var err error
			db, err = NewBoltDB(dbPath)
			Expect(err).NotTo(HaveOccurred())

			data, err := db.Get("slot")
			Expect(err).NotTo(HaveOccurred())
			Expect(string(data)).To(Equal("kept"))
		})
	})
})
