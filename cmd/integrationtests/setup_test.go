package integrationtests

import (
	"bitnow-bidding/internal/bidcache"
	bidding "bitnow-bidding/internal/biddingService"
	"bitnow-bidding/internal/broadcast"
	model "bitnow-bidding/internal/models"
	"bitnow-bidding/internal/repository"
	"bitnow-bidding/internal/server"
	"bitnow-bidding/internal/users"
	"bytes"
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// testApp is the full HTTP stack over in-memory backends
type testApp struct {
	router *gin.Engine
	hub    *broadcast.Hub
	ledger *repository.MemoryLedger
	svc    *bidding.BiddingService
}

// activeAuction returns an auction open for the next hour
func activeAuction(id string, startingBid int64) model.Auction {
	now := time.Now().UTC()
	return model.Auction{
		AuctionID:   id,
		Status:      model.AuctionActive,
		StartTime:   now.Add(-time.Minute),
		EndTime:     now.Add(time.Hour),
		StartingBid: decimal.NewFromInt(startingBid),
	}
}

// SetupTestApp initializes the router and seeds the ledger with auctions.
func SetupTestApp(cache bidcache.Cache, auctions ...model.Auction) *testApp {
	gin.SetMode(gin.TestMode)
	ledger := repository.NewMemoryLedger()
	for _, a := range auctions {
		ledger.AddAuction(a)
	}

	hub := broadcast.NewHub(0)
	names := users.NewStaticDirectory(map[string]string{"user1": "Alice"})
	opts := []bidding.Option{bidding.WithPublisher(hub), bidding.WithDirectory(names)}
	if cache != nil {
		opts = append(opts, bidding.WithCache(cache))
	}
	service := bidding.NewBiddingService(ledger, repository.NewMemoryAgentStore(), opts...)

	return &testApp{
		router: server.SetupRouter(service, hub),
		hub:    hub,
		ledger: ledger,
		svc:    service,
	}
}

// ExecuteRequestAndParse executes an HTTP request on the given router and parses the response envelope
func ExecuteRequestAndParse(t *testing.T, router *gin.Engine, method, url string, body any) (map[string]any, *httptest.ResponseRecorder) {
	t.Helper()

	var reqBody []byte
	var err error

	switch v := body.(type) {
	case nil:
	case string:
		reqBody = []byte(v)
	case []byte:
		reqBody = v
	default:
		reqBody, err = json.Marshal(v)
		if err != nil {
			t.Fatalf("failed to marshal body: %v", err)
		}
	}

	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, url, bytes.NewReader(reqBody))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	var resp map[string]any
	if len(w.Body.Bytes()) > 0 {
		if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
			t.Fatalf("failed to unmarshal response: %v", err)
		}
	}
	return resp, w
}

// data returns the envelope's data object
func data(t *testing.T, resp map[string]any) map[string]any {
	t.Helper()

	d, ok := resp["data"].(map[string]any)
	if !ok {
		t.Fatalf("response has no data object: %v", resp)
	}
	return d
}

// amount reads a decimal encoded as a JSON string
func amount(t *testing.T, v any) decimal.Decimal {
	t.Helper()

	s, ok := v.(string)
	if !ok {
		t.Fatalf("amount %v is not a string", v)
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		t.Fatalf("amount %q: %v", s, err)
	}
	return d
}
