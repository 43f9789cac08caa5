package reconcile

import (
	"net/netip"

	"github.com/mort88/aws-ddns/internal/resolver"
)

// Outcome is the terminal result of one family's check.
type Outcome struct {
	Family     resolver.Family
	FQDN       string
	Registered netip.Addr // zero when no record currently exists
	Observed   netip.Addr
	Updated    bool
	Err        error
}

type Results struct {
	Outcomes []Outcome
}

func (r Results) Updated() int {
	n := 0
	for _, o := range r.Outcomes {
		if o.Updated {
			n++
		}
	}
	return n
}

func (r Results) Failed() int {
	n := 0
	for _, o := range r.Outcomes {
		if o.Err != nil {
			n++
		}
	}
	return n
}

// AllFailed reports whether every family check failed. A run where no
// family produced an outcome is a failed run even in skip-and-continue
// mode.
func (r Results) AllFailed() bool {
	return len(r.Outcomes) > 0 && r.Failed() == len(r.Outcomes)
}
