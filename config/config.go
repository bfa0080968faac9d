package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// DefaultRefundApprovalThreshold gates automatic refunds. Refunds for
// captured payments above this amount wait for manual approval.
const DefaultRefundApprovalThreshold = 5000.0

// LoadEnv loads a .env file when present. Missing files are fine; in
// deployed environments everything comes from real env vars.
func LoadEnv() {
	_ = godotenv.Load()
}

// GetEnv returns the value for key, or fallback when unset.
func GetEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// RefundApprovalThreshold reads REFUND_APPROVAL_THRESHOLD, falling back
// to the default when unset or malformed.
func RefundApprovalThreshold() float64 {
	raw := os.Getenv("REFUND_APPROVAL_THRESHOLD")
	if raw == "" {
		return DefaultRefundApprovalThreshold
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || v < 0 {
		return DefaultRefundApprovalThreshold
	}
	return v
}
