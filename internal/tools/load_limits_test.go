package tools

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"ExchangeQuotesService/internal/model"
)

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "limits.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return path
}

func TestLoadLimits(t *testing.T) {
	path := writeFile(t, `
btc: {min: 0.1, max: 10}
ETH:
  min: 0.5
  max: 100
stq: {min: 1, max: 1000000}
`)
	limits, err := LoadLimits(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := limits[model.BTC]; got.Min != 0.1 || got.Max != 10 {
		t.Errorf("unexpected btc limit: %+v", got)
	}
	if got := limits[model.ETH]; got.Min != 0.5 || got.Max != 100 {
		t.Errorf("unexpected eth limit: %+v", got)
	}
}

func TestLoadLimits_Errors(t *testing.T) {
	tests := map[string]string{
		"missing currency": "btc: {min: 0.1, max: 10}\neth: {min: 1, max: 2}\n",
		"unknown currency": "btc: {min: 0.1, max: 10}\neth: {min: 1, max: 2}\nstq: {min: 1, max: 2}\ndoge: {min: 1, max: 2}\n",
		"min above max":    "btc: {min: 10, max: 1}\neth: {min: 1, max: 2}\nstq: {min: 1, max: 2}\n",
		"negative min":     "btc: {min: -1, max: 1}\neth: {min: 1, max: 2}\nstq: {min: 1, max: 2}\n",
		"not yaml":         "btc: [",
	}
	for name, content := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := LoadLimits(writeFile(t, content)); err == nil {
				t.Errorf("expected error")
			}
		})
	}

	_, err := LoadLimits(filepath.Join(t.TempDir(), "nope.yaml"))
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("expected not-exist error, got %v", err)
	}
}
