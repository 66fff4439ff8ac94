package marketdata

import (
	"context"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"EventPull/internal/domain/models"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	return path
}

func TestCSVSourceReturns(t *testing.T) {
	path := writeFile(t, "returns.csv",
		"date,AAPL,SPY\n"+
			"2024-01-02,0.01,0.005\n"+
			"2024-01-03,-0.02,\n"+
			"2024-01-04,0.015,0.002\n")

	src := NewCSVSource(path, "", false, false, nil)
	got, err := src.GetReturns(context.Background(), "AAPL", time.Time{}, time.Time{})
	if err != nil {
		t.Fatalf("get returns: %v", err)
	}
	if got.Len() != 3 {
		t.Fatalf("len = %d, want 3", got.Len())
	}
	if got.Returns[1] != -0.02 {
		t.Fatalf("AAPL[1] = %v, want -0.02", got.Returns[1])
	}

	// the empty SPY cell is a non-trading day for that column only
	spy, err := src.GetReturns(context.Background(), "SPY", time.Time{}, time.Time{})
	if err != nil {
		t.Fatalf("get returns: %v", err)
	}
	if spy.Len() != 2 {
		t.Fatalf("SPY len = %d, want 2", spy.Len())
	}

	if _, err := src.GetReturns(context.Background(), "MSFT", time.Time{}, time.Time{}); err == nil {
		t.Fatalf("expected error for unknown ticker")
	}
}

func TestCSVSourceDateClip(t *testing.T) {
	path := writeFile(t, "returns.csv",
		"date,AAPL\n"+
			"2024-01-02,0.01\n"+
			"2024-01-03,-0.02\n"+
			"2024-01-04,0.015\n"+
			"2024-01-05,0.001\n")

	src := NewCSVSource(path, "", false, false, nil)
	got, err := src.GetReturns(context.Background(), "AAPL",
		time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 1, 4, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("get returns: %v", err)
	}
	if got.Len() != 2 {
		t.Fatalf("len = %d, want 2", got.Len())
	}
	if got.Returns[0] != -0.02 || got.Returns[1] != 0.015 {
		t.Fatalf("unexpected clipped returns %v", got.Returns)
	}
}

func TestCSVSourcePriceConversion(t *testing.T) {
	path := writeFile(t, "prices.csv",
		"date,AAPL\n"+
			"2024-01-02,100\n"+
			"2024-01-03,110\n"+
			"2024-01-04,99\n")

	src := NewCSVSource(path, "", true, true, nil)
	got, err := src.GetReturns(context.Background(), "AAPL", time.Time{}, time.Time{})
	if err != nil {
		t.Fatalf("get returns: %v", err)
	}
	if got.Len() != 2 {
		t.Fatalf("len = %d, want 2 (first price consumed)", got.Len())
	}
	if math.Abs(got.Returns[0]-math.Log(1.1)) > 1e-12 {
		t.Fatalf("log return = %v, want ln(1.1)", got.Returns[0])
	}

	simple := NewCSVSource(path, "", true, false, nil)
	got, err = simple.GetReturns(context.Background(), "AAPL", time.Time{}, time.Time{})
	if err != nil {
		t.Fatalf("get returns: %v", err)
	}
	if math.Abs(got.Returns[0]-0.1) > 1e-12 {
		t.Fatalf("simple return = %v, want 0.1", got.Returns[0])
	}
}

func TestFactorCSVRescales(t *testing.T) {
	path := writeFile(t, "factors.csv",
		"date,Mkt-RF,SMB,HML,RF\n"+
			"20240102,1.5,-0.3,0.2,0.01\n"+
			"20240103,-0.8,0.1,0.0,0.01\n")

	src := NewFactorCSV(path, "")
	got, err := src.GetFactors(context.Background(), models.ModelThreeFactor, time.Time{}, time.Time{})
	if err != nil {
		t.Fatalf("get factors: %v", err)
	}
	if got.Len() != 2 {
		t.Fatalf("len = %d, want 2", got.Len())
	}
	mkt, err := got.Column("Mkt-RF")
	if err != nil {
		t.Fatalf("column: %v", err)
	}
	if math.Abs(mkt[0]-0.015) > 1e-12 {
		t.Fatalf("Mkt-RF[0] = %v, want 0.015 (percent rescaled)", mkt[0])
	}
	if _, err := got.Column("RMW"); err == nil {
		t.Fatalf("expected missing column error")
	}
}
