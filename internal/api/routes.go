package api

import (
	"encoding/base64"
	"encoding/json"
	"log"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Jpatching/daybreakscan/internal/addr"
	"github.com/Jpatching/daybreakscan/internal/db"
	"github.com/Jpatching/daybreakscan/internal/payment"
	"github.com/Jpatching/daybreakscan/internal/quota"
	"github.com/Jpatching/daybreakscan/internal/scan"
	"github.com/Jpatching/daybreakscan/internal/scanerr"
	"github.com/Jpatching/daybreakscan/pkg/models"
)

// paymentValidity is how long a quoted payment option stays redeemable
// before the client must request a fresh 402.
const paymentValidity = 15 * time.Minute

// APIHandler holds every dependency the route handlers need. Grounded
// on the teacher's APIHandler struct — same shape, new collaborators.
type APIHandler struct {
	dbStore      *db.PostgresStore
	wsHub        *Hub
	coordinator  *scan.Coordinator
	quotaGate    *quota.Gate
	paymentVer   *payment.Verifier
	adminWallets map[string]bool
}

// SetupRouter builds the Gin engine and registers every route.
func SetupRouter(dbStore *db.PostgresStore, wsHub *Hub, coordinator *scan.Coordinator, quotaGate *quota.Gate, paymentVer *payment.Verifier) *gin.Engine {
	r := gin.Default()

	allowedOrigins := os.Getenv("ALLOWED_ORIGINS")
	r.Use(func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if allowedOrigins == "" || allowedOrigins == "*" {
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		} else {
			for _, allowed := range strings.Split(allowedOrigins, ",") {
				if strings.TrimSpace(allowed) == origin {
					c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
					break
				}
			}
		}
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, X-Wallet-Address, X-Payment, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	})

	handler := &APIHandler{
		dbStore:      dbStore,
		wsHub:        wsHub,
		coordinator:  coordinator,
		quotaGate:    quotaGate,
		paymentVer:   paymentVer,
		adminWallets: parseAdminWallets(os.Getenv("ADMIN_WALLETS")),
	}

	pub := r.Group("/api/v1")
	{
		pub.GET("/health", handler.handleHealth)
		pub.GET("/stream", wsHub.Subscribe)
	}

	scanGroup := r.Group("/api/v1")
	scanGroup.Use(AuthMiddleware())
	// Scan endpoints fan out into many upstream RPC calls per request;
	// rate-limit them more tightly than static reads.
	scanGroup.Use(NewRateLimiter(20, 5).Middleware())
	{
		scanGroup.POST("/scan/token/:mint", handler.handleScanToken)
		scanGroup.POST("/scan/deployer/:wallet", handler.handleScanDeployer)
		scanGroup.GET("/scans/recent", handler.handleRecentScans)
	}

	return r
}

func parseAdminWallets(csv string) map[string]bool {
	wallets := make(map[string]bool)
	for _, w := range strings.Split(csv, ",") {
		w = strings.TrimSpace(w)
		if w != "" {
			wallets[w] = true
		}
	}
	return wallets
}

// resolveIdentity determines the quota subject for a request: the
// caller's wallet if X-Wallet-Address is set, otherwise its IP.
func (h *APIHandler) resolveIdentity(c *gin.Context) models.Identity {
	if wallet := c.GetHeader("X-Wallet-Address"); wallet != "" {
		return models.Identity{Key: wallet, Kind: models.IdentityWallet, Admin: h.adminWallets[wallet]}
	}
	return models.Identity{Key: c.ClientIP(), Kind: models.IdentityIP}
}

// handleHealth returns service status and capabilities for service
// discovery, in the idiom of the teacher's handleHealth.
func (h *APIHandler) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "operational",
		"service": "DaybreakScan",
		"capabilities": gin.H{
			"deployerDiscovery":  true,
			"tokenEnumeration":   true,
			"livenessClassifier": true,
			"deathClassifier":    true,
			"fundingCluster":     true,
			"riskSignals":        true,
			"reputationEngine":   true,
			"x402Payments":       true,
		},
		"dbConnected": h.dbStore != nil,
	})
}

// handleScanToken runs the full pipeline starting from a mint address.
// POST /api/v1/scan/token/:mint
func (h *APIHandler) handleScanToken(c *gin.Context) {
	mint := c.Param("mint")
	if !addr.Valid(mint) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid mint address", "kind": scanerr.InvalidAddress})
		return
	}
	h.runGatedScan(c, func(ctx *gin.Context) (*models.Scan, error) {
		return h.coordinator.ScanToken(ctx.Request.Context(), mint)
	})
}

// handleScanDeployer runs the full pipeline for an already-known
// deployer wallet. POST /api/v1/scan/deployer/:wallet
func (h *APIHandler) handleScanDeployer(c *gin.Context) {
	wallet := c.Param("wallet")
	if !addr.Valid(wallet) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid deployer wallet address", "kind": scanerr.InvalidAddress})
		return
	}
	h.runGatedScan(c, func(ctx *gin.Context) (*models.Scan, error) {
		return h.coordinator.ScanDeployer(ctx.Request.Context(), wallet)
	})
}

// runGatedScan enforces the quota/payment gate before invoking fn, and
// maps scanerr.Kind to the HTTP status classes internal/scanerr names.
func (h *APIHandler) runGatedScan(c *gin.Context, fn func(*gin.Context) (*models.Scan, error)) {
	identity := h.resolveIdentity(c)

	allowed, _, _, err := h.quotaGate.Allow(c.Request.Context(), identity)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "quota check failed", "details": err.Error()})
		return
	}

	if !allowed {
		if !h.verifyPaymentHeader(c) {
			details := h.paymentVer.AcceptDetails(time.Now().Add(paymentValidity))
			c.JSON(http.StatusPaymentRequired, gin.H{
				"error":   "daily scan quota exhausted",
				"accepts": details.Accepts,
			})
			return
		}
		// A verified payment upgrades this single request past quota
		// without consuming the daily counter.
	} else if err := h.quotaGate.Consume(c.Request.Context(), identity); err != nil {
		log.Printf("api: failed to record quota usage for %s: %v", identity.Key, err)
	}

	result, err := fn(c)
	if err != nil {
		writeScanError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// paymentHeaderEnvelope is the X-Payment header's base64-encoded JSON
// body: {"scheme": "on-chain"|"signed-claim", ...scheme-specific fields}.
type paymentHeaderEnvelope struct {
	Scheme string `json:"scheme"`
}

// verifyPaymentHeader decodes and verifies an X-Payment header against
// either x402 scheme. Returns false if absent or invalid.
func (h *APIHandler) verifyPaymentHeader(c *gin.Context) bool {
	raw := c.GetHeader("X-Payment")
	if raw == "" {
		return false
	}
	decoded, err := base64.StdEncoding.DecodeString(raw)
	if err != nil {
		decoded = []byte(raw) // tolerate an already-decoded JSON body
	}

	var envelope paymentHeaderEnvelope
	if err := json.Unmarshal(decoded, &envelope); err != nil {
		return false
	}

	switch models.PaymentScheme(envelope.Scheme) {
	case models.SchemeOnChainTransfer:
		var payload models.OnChainPaymentPayload
		if err := json.Unmarshal(decoded, &payload); err != nil {
			return false
		}
		_, err := h.paymentVer.VerifyOnChain(c.Request.Context(), payload)
		return err == nil
	case models.SchemeSignedClaim:
		var payload models.SignedClaimPayload
		if err := json.Unmarshal(decoded, &payload); err != nil {
			return false
		}
		_, err := h.paymentVer.VerifySignedClaim(c.Request.Context(), payload, h.paymentVer.ExpectedRawAmount())
		return err == nil
	default:
		return false
	}
}

// handleRecentScans returns the most recently completed scans.
// GET /api/v1/scans/recent?limit=50
func (h *APIHandler) handleRecentScans(c *gin.Context) {
	if h.dbStore == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "database not connected"})
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	entries, err := h.dbStore.RecentScans(c.Request.Context(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch recent scans", "details": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": entries})
}

// writeScanError maps a scanerr.Kind to its HTTP status class.
func writeScanError(c *gin.Context, err error) {
	se, ok := scanerr.As(err)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	status := http.StatusInternalServerError
	switch se.Kind {
	case scanerr.InvalidAddress:
		status = http.StatusBadRequest
	case scanerr.DeployerNotFound:
		status = http.StatusNotFound
	case scanerr.UpstreamRateLimited, scanerr.UpstreamError, scanerr.NoProvidersConfigured:
		status = http.StatusServiceUnavailable
	case scanerr.ScanTimeout:
		status = http.StatusGatewayTimeout
	case scanerr.QuotaExceeded, scanerr.PaymentInvalid:
		status = http.StatusPaymentRequired
	}

	body := gin.H{"error": se.Message, "kind": se.Kind}
	if se.Payment != nil {
		body["accepts"] = se.Payment.Accepts
	}
	c.JSON(status, body)
}

// BroadcastScanAlert sends a scan-completion alert via the WebSocket
// hub. It is wired as the alertFunc callback for scan.Coordinator, in
// the idiom of the teacher's BroadcastCoinJoinAlert wired into
// scanner.BlockScanner.
func BroadcastScanAlert(wsHub *Hub) func(models.Scan) {
	return func(result models.Scan) {
		eventType := "scan.completed"
		if result.Reputation.Verdict == models.VerdictSerialRugger {
			eventType = "scan.serial_rugger_detected"
		}
		payload := gin.H{"type": eventType, "scan": result}
		alertBytes, err := json.Marshal(payload)
		if err != nil {
			log.Printf("api: failed to marshal scan alert: %v", err)
			return
		}
		wsHub.Broadcast(alertBytes)
		log.Printf("[ALERT] %s: deployer=%s verdict=%s score=%d", eventType, result.Deployer.Wallet, result.Reputation.Verdict, result.Reputation.Score)
	}
}
