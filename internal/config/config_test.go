package config

import (
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/property-shares/backend/internal/models"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("SWEEP_INTERVAL_SECONDS", "")
	t.Setenv("VOTE_WEIGHT_POLICY", "")

	cfg := Load()
	if cfg.SweepInterval != time.Minute {
		t.Errorf("SweepInterval = %s, want 1m", cfg.SweepInterval)
	}
	if cfg.VoteWeightPolicy != models.WeightAtVoteTime {
		t.Errorf("VoteWeightPolicy = %q, want %q", cfg.VoteWeightPolicy, models.WeightAtVoteTime)
	}
	if _, ok := cfg.NativeRate(); ok {
		t.Error("native currency should be disabled without a rate")
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("ADMIN_HOLDER_IDS", " alice, ,bob ")
	t.Setenv("NATIVE_RATE_NUM", "3")
	t.Setenv("NATIVE_RATE_DEN", "2")
	t.Setenv("KYC_REQUIRED", "false")
	t.Setenv("MAX_SALE_WINDOW_HOURS", "not-a-number")

	cfg := Load()
	if !cfg.IsAdmin("alice") || !cfg.IsAdmin("bob") || cfg.IsAdmin("") {
		t.Errorf("AdminHolderIDs = %v", cfg.AdminHolderIDs)
	}
	rate, ok := cfg.NativeRate()
	if !ok || rate.Num != 3 || rate.Den != 2 {
		t.Errorf("NativeRate() = %+v, %v", rate, ok)
	}
	if cfg.KYCRequired {
		t.Error("KYC_REQUIRED=false not honored")
	}
	if cfg.MaxSaleWindow != 90*24*time.Hour {
		t.Errorf("invalid int should fall back, got %s", cfg.MaxSaleWindow)
	}
}

func TestValidateResetsUnknownPolicy(t *testing.T) {
	cfg := &Config{VoteWeightPolicy: "whatever", JWTSecret: "s", LedgerOwner: "o", KYCRequired: true}
	cfg.Validate(zap.NewNop())
	if cfg.VoteWeightPolicy != models.WeightAtVoteTime {
		t.Errorf("VoteWeightPolicy = %q after Validate", cfg.VoteWeightPolicy)
	}
}
