package ledger

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/onsi/gomega/ghttp"

	"github.com/kanjo-app/kanjo/internal/scanning"
)

var _ = Describe("Server", func() {
	var (
		db          *mockDB
		service     *Service
		server      *Server
		authToken   string
		ghttpServer *ghttp.Server
	)

	setupServer := func() {
		if ghttpServer != nil {
			ghttpServer.Close()
		}
		ghttpServer = ghttp.NewServer()
		ghttpServer.AppendHandlers(server.ServeHTTP)
	}

	doJSON := func(method, path string, body any) *http.Response {
		var buf bytes.Buffer
		if body != nil {
			Expect(json.NewEncoder(&buf).Encode(body)).NotTo(HaveOccurred())
		}
		req, err := http.NewRequest(method, ghttpServer.URL()+path, &buf)
		Expect(err).NotTo(HaveOccurred())
		req.Header.Set("Content-Type", "application/json")
		if authToken != "" {
			req.Header.Set("Authorization", "Bearer "+authToken)
		}
		resp, err := http.DefaultClient.Do(req)
		Expect(err).NotTo(HaveOccurred())
		return resp
	}

	decodeBody := func(resp *http.Response, v any) {
		defer resp.Body.Close()
		data, err := io.ReadAll(resp.Body)
		Expect(err).NotTo(HaveOccurred())
		Expect(json.Unmarshal(data, v)).NotTo(HaveOccurred())
	}

	BeforeEach(func() {
		db = newMockDB()
		authToken = ""
		service = NewService(db, newMockScanner(), newMockStorage())
		server = NewServerWithMux(service, authToken, http.NewServeMux())
		setupServer()
	})

	AfterEach(func() {
		if ghttpServer != nil {
			ghttpServer.Close()
		}
	})

	Describe("authentication", func() {
		BeforeEach(func() {
			server = NewServerWithMux(service, "secret-token", http.NewServeMux())
			setupServer()
		})

		When("no token is sent", func() {
			It("returns 401 with a challenge", func() {
				resp, err := http.Get(ghttpServer.URL() + "/api/ledgers")
				Expect(err).NotTo(HaveOccurred())
				defer resp.Body.Close()
				Expect(resp.StatusCode).To(Equal(http.StatusUnauthorized))
				Expect(resp.Header.Get("WWW-Authenticate")).To(ContainSubstring("Bearer"))
			})
		})

		When("the wrong token is sent", func() {
			It("returns 401", func() {
				authToken = "wrong-token"
				resp := doJSON("GET", "/api/ledgers", nil)
				resp.Body.Close()
				Expect(resp.StatusCode).To(Equal(http.StatusUnauthorized))
			})
		})

		When("the right token is sent", func() {
			It("returns 200", func() {
				authToken = "secret-token"
				resp := doJSON("GET", "/api/ledgers", nil)
				resp.Body.Close()
				Expect(resp.StatusCode).To(Equal(http.StatusOK))
			})
		})
	})

	Describe("handleOpenLedger", func() {
		When("the request is valid", func() {
			It("returns 201 with the new ledger", func() {
				resp := doJSON("POST", "/api/ledgers", map[string]string{
					"date":          "2024-06-15",
					"employee_name": "佐藤",
				})
				Expect(resp.StatusCode).To(Equal(http.StatusCreated))
				var ledger DailyLedger
				decodeBody(resp, &ledger)
				Expect(ledger.Date).To(Equal("2024-06-15"))
				Expect(ledger.ID).NotTo(BeEmpty())
			})
		})

		When("the date is malformed", func() {
			It("returns 400", func() {
				resp := doJSON("POST", "/api/ledgers", map[string]string{
					"date":          "junk",
					"employee_name": "佐藤",
				})
				resp.Body.Close()
				Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
			})
		})

		When("the body is not JSON", func() {
			It("returns 400", func() {
				resp, err := http.Post(ghttpServer.URL()+"/api/ledgers", "application/json", bytes.NewBufferString("{"))
				Expect(err).NotTo(HaveOccurred())
				resp.Body.Close()
				Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
			})
		})
	})

	Describe("handleGetLedger", func() {
		When("the ledger exists", func() {
			BeforeEach(func() {
				db.ledgers["ledger-1"] = &DailyLedger{ID: "ledger-1", Date: "2024-06-15", EmployeeName: "佐藤"}
			})

			It("returns it", func() {
				resp := doJSON("GET", "/api/ledgers/ledger-1", nil)
				Expect(resp.StatusCode).To(Equal(http.StatusOK))
				var ledger DailyLedger
				decodeBody(resp, &ledger)
				Expect(ledger.ID).To(Equal("ledger-1"))
			})
		})

		When("the ledger does not exist", func() {
			It("returns 404", func() {
				resp := doJSON("GET", "/api/ledgers/missing", nil)
				resp.Body.Close()
				Expect(resp.StatusCode).To(Equal(http.StatusNotFound))
			})
		})
	})

	Describe("handleLedgerTotals", func() {
		BeforeEach(func() {
			ledger := &DailyLedger{ID: "ledger-1", Date: "2024-06-15", EmployeeName: "佐藤"}
			Expect(ledger.AddReceipt(Receipt{ID: "r1", TotalAmount: 1000})).NotTo(HaveOccurred())
			Expect(ledger.AddReceipt(Receipt{ID: "r2", TotalAmount: 2000, IsCard: true})).NotTo(HaveOccurred())
			ledger.SetCashSettings(CashSettings{StartingCash: 50000})
			Expect(ledger.SetAlcoholExpense(500)).NotTo(HaveOccurred())
			db.ledgers["ledger-1"] = ledger
		})

		It("returns the derived totals", func() {
			resp := doJSON("GET", "/api/ledgers/ledger-1/totals", nil)
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			var totals Totals
			decodeBody(resp, &totals)
			Expect(totals.TotalSales).To(Equal(3000))
			Expect(totals.CashRemaining).To(Equal(50500))
			Expect(totals.NetProfit).To(Equal(2500))
		})
	})

	Describe("handleAddReceipt", func() {
		BeforeEach(func() {
			db.ledgers["ledger-1"] = &DailyLedger{ID: "ledger-1", Date: "2024-06-15", EmployeeName: "佐藤"}
		})

		When("the receipt is valid", func() {
			It("returns 201 with the updated ledger", func() {
				resp := doJSON("POST", "/api/ledgers/ledger-1/receipts", Receipt{
					CustomerName: "田中様",
					TotalAmount:  8000,
				})
				Expect(resp.StatusCode).To(Equal(http.StatusCreated))
				var ledger DailyLedger
				decodeBody(resp, &ledger)
				Expect(ledger.Receipts).To(HaveLen(1))
			})
		})

		When("the receipt fails validation", func() {
			It("returns 400", func() {
				resp := doJSON("POST", "/api/ledgers/ledger-1/receipts", Receipt{TotalAmount: -1})
				resp.Body.Close()
				Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
			})
		})
	})

	Describe("handleAddExpense", func() {
		BeforeEach(func() {
			db.ledgers["ledger-1"] = &DailyLedger{ID: "ledger-1", Date: "2024-06-15", EmployeeName: "佐藤"}
		})

		It("returns 201 with the updated ledger", func() {
			resp := doJSON("POST", "/api/ledgers/ledger-1/expenses", Expense{Type: "supplies", Amount: 1200})
			Expect(resp.StatusCode).To(Equal(http.StatusCreated))
			var ledger DailyLedger
			decodeBody(resp, &ledger)
			Expect(ledger.Expenses).To(HaveLen(1))
		})
	})

	Describe("handleSetCash", func() {
		BeforeEach(func() {
			db.ledgers["ledger-1"] = &DailyLedger{ID: "ledger-1", Date: "2024-06-15", EmployeeName: "佐藤"}
		})

		It("replaces the starting cash", func() {
			resp := doJSON("PUT", "/api/ledgers/ledger-1/cash", CashSettings{StartingCash: 30000})
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			var ledger DailyLedger
			decodeBody(resp, &ledger)
			Expect(ledger.Cash.StartingCash).To(Equal(30000))
		})
	})

	Describe("handleSetAlcoholExpense", func() {
		BeforeEach(func() {
			db.ledgers["ledger-1"] = &DailyLedger{ID: "ledger-1", Date: "2024-06-15", EmployeeName: "佐藤"}
		})

		It("replaces the alcohol expense", func() {
			resp := doJSON("PUT", "/api/ledgers/ledger-1/alcohol", map[string]int{"amount": 500})
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			var ledger DailyLedger
			decodeBody(resp, &ledger)
			Expect(ledger.AlcoholExpense).To(Equal(500))
		})

		When("the amount is negative", func() {
			It("returns 400", func() {
				resp := doJSON("PUT", "/api/ledgers/ledger-1/alcohol", map[string]int{"amount": -1})
				resp.Body.Close()
				Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
			})
		})
	})

	Describe("handleScanReceipt", func() {
		When("the image scans cleanly", func() {
			It("returns the extraction with a confidence score", func() {
				resp := doJSON("POST", "/api/receipts/scan", scanning.ScanRequest{ImageData: pngPayload()})
				Expect(resp.StatusCode).To(Equal(http.StatusOK))
				var scanResp scanning.ScanResponse
				decodeBody(resp, &scanResp)
				Expect(scanResp.Success).To(BeTrue())
				Expect(scanResp.ScanID).NotTo(BeEmpty())
				Expect(scanResp.ConfidenceScore).To(BeNumerically(">", 0))
			})
		})

		When("image_data is missing", func() {
			It("returns 400", func() {
				resp := doJSON("POST", "/api/receipts/scan", scanning.ScanRequest{})
				resp.Body.Close()
				Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
			})
		})

		When("the payload is not base64", func() {
			It("returns 400", func() {
				resp := doJSON("POST", "/api/receipts/scan", scanning.ScanRequest{ImageData: "!!!"})
				resp.Body.Close()
				Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
			})
		})
	})

	Describe("handleConfirmScan", func() {
		var total int

		BeforeEach(func() {
			total = 15000
			db.ledgers["ledger-1"] = &DailyLedger{ID: "ledger-1", Date: "2024-06-15", EmployeeName: "佐藤"}
			db.scans["scan-1"] = &ScanRecord{ID: "scan-1", LedgerID: "ledger-1", ImagePath: "scan-1_receipt.png"}
		})

		When("the confirmation is valid", func() {
			It("returns the new receipt ID", func() {
				resp := doJSON("PUT", "/api/receipts/scan/scan-1/confirm", scanning.ConfirmRequest{
					ConfirmedData: &scanning.ExtractedData{TotalAmount: &total},
				})
				Expect(resp.StatusCode).To(Equal(http.StatusOK))
				var confirmResp scanning.ConfirmResponse
				decodeBody(resp, &confirmResp)
				Expect(confirmResp.Success).To(BeTrue())
				Expect(confirmResp.ReceiptID).NotTo(BeEmpty())
				Expect(confirmResp.LedgerID).To(Equal("ledger-1"))
			})
		})

		When("the scan record does not exist", func() {
			It("returns 404", func() {
				resp := doJSON("PUT", "/api/receipts/scan/missing/confirm", scanning.ConfirmRequest{
					ConfirmedData: &scanning.ExtractedData{TotalAmount: &total},
				})
				resp.Body.Close()
				Expect(resp.StatusCode).To(Equal(http.StatusNotFound))
			})
		})

		When("the total amount is missing", func() {
			It("answers success false with 200", func() {
				resp := doJSON("PUT", "/api/receipts/scan/scan-1/confirm", scanning.ConfirmRequest{
					ConfirmedData: &scanning.ExtractedData{},
				})
				Expect(resp.StatusCode).To(Equal(http.StatusOK))
				var confirmResp scanning.ConfirmResponse
				decodeBody(resp, &confirmResp)
				Expect(confirmResp.Success).To(BeFalse())
			})
		})
	})

	Describe("handleScanHistory", func() {
		BeforeEach(func() {
			db.scans["s1"] = &ScanRecord{ID: "s1", LedgerID: "ledger-1"}
			db.scans["s2"] = &ScanRecord{ID: "s2", LedgerID: "ledger-2"}
		})

		It("returns all records", func() {
			resp := doJSON("GET", "/api/receipts/scan/history", nil)
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			var records []*ScanRecord
			decodeBody(resp, &records)
			Expect(records).To(HaveLen(2))
		})

		It("filters by ledger", func() {
			resp := doJSON("GET", "/api/receipts/scan/history?daily_report_id=ledger-1", nil)
			var records []*ScanRecord
			decodeBody(resp, &records)
			Expect(records).To(HaveLen(1))
		})

		When("the limit is not a number", func() {
			It("returns 400", func() {
				resp := doJSON("GET", "/api/receipts/scan/history?limit=abc", nil)
				resp.Body.Close()
				Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
			})
		})
	})

	Describe("handleDeleteScan", func() {
		var storage *mockStorage

		BeforeEach(func() {
			storage = newMockStorage()
			storage.files["scan-1_receipt.png"] = []byte("png bytes")
			db.scans["scan-1"] = &ScanRecord{ID: "scan-1", ImagePath: "scan-1_receipt.png"}
			service = NewService(db, newMockScanner(), storage)
			server = NewServerWithMux(service, authToken, http.NewServeMux())
			setupServer()
		})

		When("the record is unconfirmed", func() {
			It("returns 204", func() {
				resp := doJSON("DELETE", "/api/receipts/scan/scan-1", nil)
				resp.Body.Close()
				Expect(resp.StatusCode).To(Equal(http.StatusNoContent))
			})
		})

		When("the record was confirmed", func() {
			BeforeEach(func() {
				db.scans["scan-1"].Verified = true
			})

			It("returns 400", func() {
				resp := doJSON("DELETE", "/api/receipts/scan/scan-1", nil)
				resp.Body.Close()
				Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
			})
		})

		When("the record does not exist", func() {
			It("returns 404", func() {
				resp := doJSON("DELETE", "/api/receipts/scan/missing", nil)
				resp.Body.Close()
				Expect(resp.StatusCode).To(Equal(http.StatusNotFound))
			})
		})
	})

	Describe("handleScanImage", func() {
		var storage *mockStorage

		BeforeEach(func() {
			storage = newMockStorage()
			storage.files["scan-1_receipt.png"] = []byte("png bytes")
			db.scans["scan-1"] = &ScanRecord{ID: "scan-1", ImagePath: "scan-1_receipt.png", ContentType: "image/png"}
			service = NewService(db, newMockScanner(), storage)
			server = NewServerWithMux(service, authToken, http.NewServeMux())
			setupServer()
		})

		It("serves the stored image", func() {
			resp := doJSON("GET", "/api/receipts/scan/scan-1/image", nil)
			defer resp.Body.Close()
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			Expect(resp.Header.Get("Content-Type")).To(Equal("image/png"))
			body, err := io.ReadAll(resp.Body)
			Expect(err).NotTo(HaveOccurred())
			Expect(body).To(Equal([]byte("png bytes")))
		})
	})

	Describe("CORS preflight", func() {
		It("answers OPTIONS through the middleware", func() {
			handler := server.corsMiddleware(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
			})
			corsServer := ghttp.NewServer()
			defer corsServer.Close()
			corsServer.AppendHandlers(func(w http.ResponseWriter, r *http.Request) {
				handler(w, r)
			})

			req, err := http.NewRequest("OPTIONS", corsServer.URL()+"/api/ledgers", nil)
			Expect(err).NotTo(HaveOccurred())
			resp, err := http.DefaultClient.Do(req)
			Expect(err).NotTo(HaveOccurred())
			defer resp.Body.Close()
			Expect(resp.StatusCode).To(Equal(http.StatusNoContent))
			Expect(resp.Header.Get("Access-Control-Allow-Origin")).To(Equal("*"))
		})
	})
})
