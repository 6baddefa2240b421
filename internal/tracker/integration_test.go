package tracker_test

import (
	"bytes"
	"encoding/json"
	"image"
	"image/png"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/onsi/gomega/ghttp"
	"github.com/shopspring/decimal"

	"github.com/zombor/spend-tracker/internal/category"
	"github.com/zombor/spend-tracker/internal/expense"
	"github.com/zombor/spend-tracker/internal/scanning"
	"github.com/zombor/spend-tracker/internal/tracker"
)

func ollamaAnswer(content string) http.HandlerFunc {
	return ghttp.CombineHandlers(
		ghttp.VerifyRequest(http.MethodPost, "/api/chat"),
		ghttp.RespondWithJSONEncoded(http.StatusOK, map[string]any{
			"message": map[string]string{"role": "assistant", "content": content},
			"done":    true,
		}),
	)
}

var _ = Describe("Integration", func() {
	var (
		tempDir     string
		dbPath      string
		storagePath string
		db          *expense.BoltDB
		storage     *tracker.LocalStorage
		ollama      *ghttp.Server
		server      *tracker.Server
		ghServer    *ghttp.Server
	)

	BeforeEach(func() {
		var err error
		tempDir, err = os.MkdirTemp("", "spend-tracker-test-*")
		Expect(err).NotTo(HaveOccurred())

		dbPath = filepath.Join(tempDir, "test.db")
		storagePath = filepath.Join(tempDir, "receipts")

		db, err = expense.NewBoltDB(dbPath)
		Expect(err).NotTo(HaveOccurred())

		storage, err = tracker.NewLocalStorage(storagePath)
		Expect(err).NotTo(HaveOccurred())

		store, err := expense.OpenStore(db)
		Expect(err).NotTo(HaveOccurred())

		ollama = ghttp.NewServer()
		client, err := scanning.NewOllama(ollama.URL(), "llava", "llama3.1")
		Expect(err).NotTo(HaveOccurred())

		service := tracker.NewService(store, client, client, storage, tracker.Config{
			ClassifyTimeout: 5 * time.Second,
			Budget:          decimal.NewFromInt(1000),
		})
		server = tracker.NewServer(service, tracker.BasicAuth{})
		ghServer = ghttp.NewServer()
	})

	AfterEach(func() {
		ghServer.Close()
		ollama.Close()
		if db != nil {
			db.Close()
		}
		os.RemoveAll(tempDir)
	})

	It("should capture an uploaded receipt and keep it across restarts", func() {
		ghServer.AppendHandlers(server.Handler().ServeHTTP, server.Handler().ServeHTTP)
		ollama.AppendHandlers(
			ollamaAnswer("CORNER SHOP\n03/02/2024\nMilk 2.50\nTOTAL: 7.25"),
			ollamaAnswer(`{"merchant": "Corner Shop", "total": null, "date": null, "category": "Food"}`),
		)

		var img bytes.Buffer
		Expect(png.Encode(&img, image.NewRGBA(image.Rect(0, 0, 2, 2)))).To(Succeed())

		body := &bytes.Buffer{}
		writer := multipart.NewWriter(body)
		part, err := writer.CreateFormFile("file", "receipt.png")
		Expect(err).NotTo(HaveOccurred())
		_, err = part.Write(img.Bytes())
		Expect(err).NotTo(HaveOccurred())
		Expect(writer.Close()).To(Succeed())

		resp, err := http.Post(ghServer.URL()+"/api/captures", writer.FormDataContentType(), body)
		Expect(err).NotTo(HaveOccurred())
		defer resp.Body.Close()
		Expect(resp.StatusCode).To(Equal(http.StatusCreated))

		respBody, err := io.ReadAll(resp.Body)
		Expect(err).NotTo(HaveOccurred())
		var record expense.Record
		Expect(json.Unmarshal(respBody, &record)).To(Succeed())

		Expect(record.Merchant).To(Equal("Corner Shop"))
		Expect(record.Total.StringFixed(2)).To(Equal("7.25"))
		Expect(record.Date).To(Equal("2024-02-03"))
		Expect(record.Category).To(Equal(category.Food))

		// Image is kept next to the record
		data, err := storage.Get(record.ImageFile)
		Expect(err).NotTo(HaveOccurred())
		Expect(data).To(Equal(img.Bytes()))

		imgResp, err := http.Get(ghServer.URL() + "/api/expenses/" + record.ID + "/image")
		Expect(err).NotTo(HaveOccurred())
		defer imgResp.Body.Close()
		Expect(imgResp.StatusCode).To(Equal(http.StatusOK))
		Expect(imgResp.Header.Get("Content-Type")).To(Equal("image/png"))

		// Reopen the database as a restart would
		Expect(db.Close()).To(Succeed())
		db, err = expense.NewBoltDB(dbPath)
		Expect(err).NotTo(HaveOccurred())

		reopened, err := expense.OpenStore(db)
		Expect(err).NotTo(HaveOccurred())
		Expect(reopened.Records()).To(HaveLen(1))

		saved, err := reopened.Get(record.ID)
		Expect(err).NotTo(HaveOccurred())
		Expect(saved.Merchant).To(Equal("Corner Shop"))
		Expect(saved.Total.Equal(decimal.RequireFromString("7.25"))).To(BeTrue())
		Expect(saved.RawText).To(ContainSubstring("TOTAL: 7.25"))
	})

	It("should fall back to extracted fields when the classifier misbehaves", func() {
		ghServer.AppendHandlers(server.Handler().ServeHTTP, server.Handler().ServeHTTP)
		ollama.AppendHandlers(
			ghttp.RespondWith(http.StatusInternalServerError, "model not loaded"),
		)

		resp, err := http.Post(ghServer.URL()+"/api/captures/text", "application/json",
			bytes.NewBufferString(`{"rawText":"BAKERY ROSE\nTOTAL 3,40"}`))
		Expect(err).NotTo(HaveOccurred())
		resp.Body.Close()
		Expect(resp.StatusCode).To(Equal(http.StatusCreated))

		dash, err := http.Get(ghServer.URL() + "/api/analytics")
		Expect(err).NotTo(HaveOccurred())
		defer dash.Body.Close()

		var view struct {
			ReceiptCount   int `json:"receiptCount"`
			CategoryTotals []struct {
				Name  string `json:"name"`
				Value string `json:"value"`
			} `json:"categoryTotals"`
			Recent []expense.Record `json:"recent"`
		}
		Expect(json.NewDecoder(dash.Body).Decode(&view)).To(Succeed())
		Expect(view.ReceiptCount).To(Equal(1))
		Expect(view.Recent).To(HaveLen(1))
		Expect(view.Recent[0].Merchant).To(Equal("BAKERY ROSE"))
		Expect(view.Recent[0].Total.StringFixed(2)).To(Equal("3.40"))
		Expect(view.CategoryTotals).To(HaveLen(1))
		Expect(view.CategoryTotals[0].Name).To(Equal("General"))
	})
})
