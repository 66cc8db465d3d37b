package inquiry

import (
	"strings"

	"github.com/rotisserie/eris"

	"github.com/finadvisor/platform/internal/admissibility"
)

var (
	// ErrNoProvidersAvailable means the ACTIVE provider set was empty at
	// dispatch time. Fatal for the inquiry.
	ErrNoProvidersAvailable = eris.New("inquiry: no active providers available")

	// ErrAllProvidersFailed means no provider produced a usable reply.
	// Fatal for the inquiry.
	ErrAllProvidersFailed = eris.New("inquiry: all providers failed")
)

// RejectedError reports an admissibility rejection. No inquiry row
// exists when this is returned.
type RejectedError struct {
	Verdict admissibility.Verdict
}

func (e *RejectedError) Error() string {
	if len(e.Verdict.Reasons) == 0 {
		return "inquiry: question rejected"
	}
	return "inquiry: question rejected: " + strings.Join(e.Verdict.Reasons, "; ")
}
