package vpphttp

import "github.com/hashicorp/go-hclog"

// logFor returns l if non-nil, otherwise a logger that discards
// everything. The engine is embedded in a larger host (spec §1); it
// never assumes a default stderr sink the host didn't ask for, mirroring
// nabbar-golib's logger/hashicorp bridge convention of never leaving a
// nil logger reachable from call sites.
func logFor(l hclog.Logger) hclog.Logger {
	if l == nil {
		return hclog.NewNullLogger()
	}
	return l
}
