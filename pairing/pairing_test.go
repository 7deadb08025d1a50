package pairing

import (
	"errors"
	"testing"
)

func TestMixIdentifier(t *testing.T) {
	cases := map[string]string{
		"report.pg_matrix_E25_30_4_440960_600":  "30_4_440960_600",
		"report.pg_matrix_E100_30_4_440960_600": "30_4_440960_600",
		"sample_e-25_batch7":                    "batch7",
		"QC_Y150_run2":                          "run2",
		"qc_y_75_run2":                          "run2",
		"no_condition_token":                    "",
		"trailing_E25":                          "",
	}
	for in, want := range cases {
		if got := MixIdentifier(in); got != want {
			t.Errorf("MixIdentifier(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestConditionDetection(t *testing.T) {
	lows := []string{"x_E25_y", "x_e-25_y", "x_E_25_y", "a_Y150_b", "a_y-150_b"}
	for _, name := range lows {
		if !IsLowCondition(name) {
			t.Errorf("IsLowCondition(%q) = false", name)
		}
		if IsHighCondition(name) {
			t.Errorf("IsHighCondition(%q) = true", name)
		}
	}

	highs := []string{"x_E100_y", "x_e_100_y", "a_Y75_b", "a_y-75_b"}
	for _, name := range highs {
		if !IsHighCondition(name) {
			t.Errorf("IsHighCondition(%q) = false", name)
		}
	}
}

func TestResolveStrictPairs(t *testing.T) {
	names := []string{
		"report_E25_mix1",
		"report_E100_mix1",
		"report_E25_mix2",
		"report_E100_mix2",
		"report_E25_orphan",
		"unrelated_file",
	}

	pairs, singlets, err := Resolve(names)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}

	if len(pairs) != 2 {
		t.Fatalf("pairs = %v, want 2", pairs)
	}
	if pairs[0].Mix != "mix1" || pairs[0].Low != "report_E25_mix1" || pairs[0].High != "report_E100_mix1" {
		t.Errorf("pair 0 = %+v", pairs[0])
	}
	if pairs[1].Mix != "mix2" {
		t.Errorf("pair 1 = %+v", pairs[1])
	}

	// The orphan lacks a high-condition partner and must be excluded, not
	// silently paired with a file from another mix.
	if len(singlets) != 1 || singlets[0] != "report_E25_orphan" {
		t.Errorf("singlets = %v", singlets)
	}
}

func TestResolveIndexFallback(t *testing.T) {
	// Condition tokens at the end of the name carry no mix suffix, so strict
	// grouping finds nothing and sorted-index pairing takes over.
	names := []string{"b_run_E25", "a_run_E25", "b_run_E100", "a_run_E100"}

	pairs, singlets, err := Resolve(names)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if len(pairs) != 2 {
		t.Fatalf("pairs = %v, want 2", pairs)
	}
	if pairs[0].Low != "a_run_E25" || pairs[0].High != "a_run_E100" {
		t.Errorf("pair 0 = %+v", pairs[0])
	}
	if len(singlets) != 0 {
		t.Errorf("singlets = %v", singlets)
	}
}

func TestResolveNoPairs(t *testing.T) {
	var pairErr *PairingError

	_, _, err := Resolve([]string{"report_E25_mix1", "report_E25_mix2"})
	if !errors.As(err, &pairErr) {
		t.Errorf("only low files: got %v, want PairingError", err)
	}

	_, _, err = Resolve(nil)
	if !errors.As(err, &pairErr) {
		t.Errorf("no files: got %v, want PairingError", err)
	}
}
