package vpphttp

import "time"

// EngineConfig is the engine's plain-struct configuration surface
// (spec §6 "Configuration surface"), following the same doc-comment-
// per-field, DefaultConfig()-prefilled shape as the teacher's
// server.Config (pkg/shockwave/server/server.go). There is no config
// file parsing here, same as the teacher: a host embedding this engine
// builds an EngineConfig in code and passes it to NewEngine.
type EngineConfig struct {
	// FirstSegmentSize is the initial RX scratch buffer allocation per
	// connection. Clamped to [MinFirstSegmentSize, unbounded).
	// Default: 32 MiB.
	FirstSegmentSize int

	// AddSegmentSize is the configured growth increment for the RX
	// scratch buffer. Clamped to [MinAddSegmentSize, unbounded). The
	// engine does not read it beyond clamping: the RX scratch buffer
	// grows by plain append once FirstSegmentSize is exhausted.
	// Default: 256 MiB.
	AddSegmentSize int

	// FIFOSize is the capacity of each app-facing FIFO (both
	// directions). Clamped to [MinFIFOSize, MaxFIFOSize].
	// Default: 512 KiB.
	FIFOSize int

	// MaxBurstBytes bounds how much HTTPBuffer.GetSegs hands to the
	// transport in a single call (spec §4.2).
	// Default: 64 KiB.
	MaxBurstBytes int

	// InactivityTimeout is the default per-connection timeout, used
	// when an endpoint's HTTP extension does not override it.
	// Default: 60s.
	InactivityTimeout time.Duration

	// ServerName is the identity string a server-role connection
	// reports in the Server header when the embedding app supplies
	// none (spec §6 "Server or User-Agent (the app name or a default").
	// Default: "VPP server app".
	ServerName string

	// ClientName is the identity string a client-role connection
	// reports in the User-Agent header under the same fallback rule.
	// Default: "VPP HTTP client".
	ClientName string
}

// DefaultEngineConfig returns an EngineConfig with every field set to
// its documented default.
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		FirstSegmentSize:  DefaultFirstSegmentSize,
		AddSegmentSize:    DefaultAddSegmentSize,
		FIFOSize:          DefaultFIFOSize,
		MaxBurstBytes:     DefaultMaxBurstBytes,
		InactivityTimeout: DefaultInactivityTimeout,
		ServerName:        defaultServerName,
		ClientName:        defaultClientName,
	}
}

// Clamp normalizes out-of-range fields to the configuration surface's
// documented bounds, returning the list of fields it adjusted so the
// caller can log a warning (spec §6: "Out-of-range inputs are clamped
// with a warning").
func (c *EngineConfig) Clamp() []string {
	var adjusted []string

	if c.FirstSegmentSize < MinFirstSegmentSize {
		c.FirstSegmentSize = MinFirstSegmentSize
		adjusted = append(adjusted, "first-segment-size")
	}
	if c.AddSegmentSize < MinAddSegmentSize {
		c.AddSegmentSize = MinAddSegmentSize
		adjusted = append(adjusted, "add-segment-size")
	}
	if c.FIFOSize < MinFIFOSize {
		c.FIFOSize = MinFIFOSize
		adjusted = append(adjusted, "fifo-size")
	} else if c.FIFOSize > MaxFIFOSize {
		c.FIFOSize = MaxFIFOSize
		adjusted = append(adjusted, "fifo-size")
	}
	if c.MaxBurstBytes <= 0 {
		c.MaxBurstBytes = DefaultMaxBurstBytes
		adjusted = append(adjusted, "max-burst-bytes")
	}
	if c.InactivityTimeout <= 0 {
		c.InactivityTimeout = DefaultInactivityTimeout
		adjusted = append(adjusted, "inactivity-timeout")
	}
	if c.ServerName == "" {
		c.ServerName = defaultServerName
	}
	if c.ClientName == "" {
		c.ClientName = defaultClientName
	}

	return adjusted
}
