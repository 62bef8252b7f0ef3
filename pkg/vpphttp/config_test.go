package vpphttp

import "testing"

func TestDefaultEngineConfigNeedsNoClamping(t *testing.T) {
	cfg := DefaultEngineConfig()
	if adjusted := cfg.Clamp(); len(adjusted) != 0 {
		t.Errorf("DefaultEngineConfig required clamping: %v", adjusted)
	}
}

func TestEngineConfigClampReportsOutOfRangeFields(t *testing.T) {
	cfg := EngineConfig{
		FirstSegmentSize: -1,
		AddSegmentSize:   -1,
		FIFOSize:         1,
		MaxBurstBytes:    0,
	}
	adjusted := cfg.Clamp()

	want := map[string]bool{
		"first-segment-size": true,
		"add-segment-size":   true,
		"fifo-size":          true,
		"max-burst-bytes":    true,
		"inactivity-timeout": true,
	}
	got := map[string]bool{}
	for _, f := range adjusted {
		got[f] = true
	}
	for f := range want {
		if !got[f] {
			t.Errorf("Clamp did not report adjusting %q", f)
		}
	}
	if cfg.FirstSegmentSize < MinFirstSegmentSize {
		t.Errorf("FirstSegmentSize = %d, want >= %d", cfg.FirstSegmentSize, MinFirstSegmentSize)
	}
	if cfg.ServerName == "" || cfg.ClientName == "" {
		t.Error("Clamp did not fill in default identity strings")
	}
}

func TestEngineConfigClampFIFOSizeUpperBound(t *testing.T) {
	cfg := DefaultEngineConfig()
	cfg.FIFOSize = MaxFIFOSize + 1
	adjusted := cfg.Clamp()
	if cfg.FIFOSize != MaxFIFOSize {
		t.Errorf("FIFOSize = %d, want clamped to %d", cfg.FIFOSize, MaxFIFOSize)
	}
	found := false
	for _, f := range adjusted {
		if f == "fifo-size" {
			found = true
		}
	}
	if !found {
		t.Error("Clamp did not report fifo-size as adjusted when over the upper bound")
	}
}
