package config

import (
	"os"
	"testing"

	"github.com/spf13/viper"

	"combgraph/internal/testutil"
)

func TestLoadConfigDefaults(t *testing.T) {
	sb, err := testutil.NewSandbox()
	if err != nil {
		t.Fatalf("NewSandbox failed: %v", err)
	}
	defer sb.Cleanup()

	if err := os.Mkdir(sb.Path("config"), 0700); err != nil {
		t.Fatalf("Mkdir failed: %v", err)
	}
	if err := sb.WriteFile("config/default.yaml", []byte("logging:\n  level: info\n"), 0600); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("Getwd failed: %v", err)
	}
	defer os.Chdir(wd)
	viper.Reset()

	if err := os.Chdir(sb.Root); err != nil {
		t.Fatalf("chdir failed: %v", err)
	}

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Ingest.ForkBufferCap != 10_000 {
		t.Fatalf("expected default fork buffer cap 10000, got %d", cfg.Ingest.ForkBufferCap)
	}
	if cfg.Graph.MaxSendMsgSize != 50<<20 {
		t.Fatalf("expected default 50MiB send size, got %d", cfg.Graph.MaxSendMsgSize)
	}
}

func TestLoadConfigOverride(t *testing.T) {
	sb, err := testutil.NewSandbox()
	if err != nil {
		t.Fatalf("NewSandbox failed: %v", err)
	}
	defer sb.Cleanup()

	if err := os.Mkdir(sb.Path("config"), 0700); err != nil {
		t.Fatalf("Mkdir failed: %v", err)
	}
	if err := sb.WriteFile("config/default.yaml", []byte("ingest:\n  fork_buffer_cap: 500\n"), 0600); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	if err := sb.WriteFile("config/staging.yaml", []byte("ingest:\n  fork_buffer_cap: 750\n"), 0600); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("Getwd failed: %v", err)
	}
	defer os.Chdir(wd)
	viper.Reset()

	if err := os.Chdir(sb.Root); err != nil {
		t.Fatalf("chdir failed: %v", err)
	}

	cfg, err := Load("staging")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Ingest.ForkBufferCap != 750 {
		t.Fatalf("expected overridden fork buffer cap 750, got %d", cfg.Ingest.ForkBufferCap)
	}
}
