package main

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/Jpatching/daybreakscan/internal/api"
	"github.com/Jpatching/daybreakscan/internal/cache"
	"github.com/Jpatching/daybreakscan/internal/db"
	"github.com/Jpatching/daybreakscan/internal/death"
	"github.com/Jpatching/daybreakscan/internal/discovery"
	"github.com/Jpatching/daybreakscan/internal/enumeration"
	"github.com/Jpatching/daybreakscan/internal/funding"
	"github.com/Jpatching/daybreakscan/internal/liveness"
	"github.com/Jpatching/daybreakscan/internal/payment"
	"github.com/Jpatching/daybreakscan/internal/quota"
	"github.com/Jpatching/daybreakscan/internal/risk"
	"github.com/Jpatching/daybreakscan/internal/rpcrouter"
	"github.com/Jpatching/daybreakscan/internal/scan"
	"github.com/Jpatching/daybreakscan/internal/upstream"
)

const (
	mintAuthCacheTTL  = 10 * time.Minute
	livenessCacheTTL  = 2 * time.Minute
	rugReportCacheTTL = 30 * time.Minute
)

func main() {
	log.Println("Starting DaybreakScan deployer-reputation engine...")

	// ─── Required Environment Variables ─────────────────────────────────
	// All credentials MUST come from environment variables. No fallback
	// defaults for security-sensitive values. Use a .env file for local
	// development: cp .env.example .env && edit .env
	// ────────────────────────────────────────────────────────────────────

	dbURL := requireEnv("DATABASE_URL")

	dbStore, err := db.Connect(dbURL)
	if err != nil {
		log.Fatalf("FATAL: failed to connect to PostgreSQL: %v", err)
	}
	defer dbStore.Close()
	if err := dbStore.InitSchema(); err != nil {
		log.Fatalf("FATAL: DB schema init failed: %v", err)
	}

	router := rpcrouter.New(rpcrouter.Config{
		BasicProviderURLs: splitCSV(requireEnv("BASIC_RPC_URLS")),
		EnhancedBaseURL:   requireEnv("ENHANCED_RPC_BASE_URL"),
		EnhancedAPIKey:    requireEnv("ENHANCED_RPC_API_KEY"),
	})

	chain := upstream.NewChainRPC(router)
	enhanced := upstream.NewEnhancedHistory(router)
	dexIndex := upstream.NewDexIndex(getEnvOrDefault("DEX_INDEX_BASE_URL", "https://api.dexscreener.com"))
	priceOracle := upstream.NewPriceOracle(getEnvOrDefault("PRICE_ORACLE_BASE_URL", "https://api.dexscreener.com"))
	rugReport := upstream.NewRugReportOracle(getEnvOrDefault("RUG_REPORT_BASE_URL", "https://api.rugcheck.xyz"))

	livenessCache := cache.New(livenessCacheTTL)
	defer livenessCache.Close()
	mintAuthCache := cache.New(mintAuthCacheTTL)
	defer mintAuthCache.Close()
	rugCache := cache.New(rugReportCacheTTL)
	defer rugCache.Close()

	discoverer := discovery.New(enhanced, chain)
	enumerator := enumeration.New(enhanced, chain)
	livenessClassifier := liveness.New(dexIndex, livenessCache)
	fundingResolver := funding.New(enhanced, chain)
	riskAssessor := risk.New(chain, enhanced, rugReport, mintAuthCache, rugCache)
	deathClassifier := death.New(chain, enhanced, deathSampleCap(), scan.FundingOf(fundingResolver))

	quotaGate := quota.New(dbStore, intEnvOrDefault("WALLET_DAILY_LIMIT", 3), intEnvOrDefault("IP_DAILY_LIMIT", 1))

	paymentVerifier := payment.New(payment.Config{
		TreasuryWallet: requireEnv("TREASURY_WALLET"),
		USDCMint:       getEnvOrDefault("USDC_MINT", "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v"),
		PriceUSD:       floatEnvOrDefault("SCAN_PRICE_USD", 0.50),
		Network:        getEnvOrDefault("PAYMENT_NETWORK", "solana"),
		Asset:          getEnvOrDefault("PAYMENT_ASSET", "USDC"),
	}, chain, dbStore)

	wsHub := api.NewHub()
	go wsHub.Run()

	coordinator := scan.New(
		discoverer,
		enumerator,
		livenessClassifier,
		deathClassifier,
		fundingResolver,
		riskAssessor,
		priceOracle,
		dbStore,
		api.BroadcastScanAlert(wsHub),
		durationEnvOrDefault("BURNER_WINDOW", time.Hour),
	)

	r := api.SetupRouter(dbStore, wsHub, coordinator, quotaGate, paymentVerifier)

	port := getEnvOrDefault("PORT", "8089")
	log.Printf("DaybreakScan running on :%s\n", port)
	if err := r.Run(":" + port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

// requireEnv reads a required environment variable and exits if it is not set.
// This prevents the binary from starting with missing critical configuration.
func requireEnv(key string) string {
	val := os.Getenv(key)
	if val == "" {
		log.Fatalf("FATAL: Required environment variable %s is not set. "+
			"Copy .env.example to .env and fill in your values: cp .env.example .env", key)
	}
	return val
}

// getEnvOrDefault returns the env var value or a safe default for non-secret settings.
func getEnvOrDefault(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func intEnvOrDefault(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			return n
		}
	}
	return fallback
}

func floatEnvOrDefault(key string, fallback float64) float64 {
	if val := os.Getenv(key); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			return f
		}
	}
	return fallback
}

func durationEnvOrDefault(key string, fallback time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return fallback
}

func deathSampleCap() int {
	return intEnvOrDefault("DEATH_CLASSIFICATION_SAMPLE_CAP", 50)
}

func splitCSV(csv string) []string {
	parts := strings.Split(csv, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
