package registry

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/vk/flowbridge/internal/ctxlog"
)

// ValidateRegistry checks that every registered capability is complete: it
// names a result event, has a positive deadline and provides the request,
// handler and failure constructors.
func (r *Registry) ValidateRegistry(ctx context.Context) error {
	var errs []string
	logger := ctxlog.FromContext(ctx)

	results := make(map[string]string)
	for _, event := range r.Events() {
		c := r.CapabilityRegistry[event]
		if c.ResultEvent == "" {
			errs = append(errs, fmt.Sprintf("capability '%s': no result event", event))
		} else if other, dup := results[c.ResultEvent]; dup {
			errs = append(errs, fmt.Sprintf("capability '%s': result event '%s' already used by '%s'", event, c.ResultEvent, other))
		} else {
			results[c.ResultEvent] = event
		}
		if c.Timeout <= 0 {
			errs = append(errs, fmt.Sprintf("capability '%s': timeout must be positive", event))
		}
		if c.NewRequest == nil {
			errs = append(errs, fmt.Sprintf("capability '%s': missing request constructor", event))
		}
		if c.Fn == nil {
			errs = append(errs, fmt.Sprintf("capability '%s': missing handler function", event))
		}
		if c.Failure == nil {
			errs = append(errs, fmt.Sprintf("capability '%s': missing failure constructor", event))
		}
	}

	if len(r.StopperRegistry) == 0 && len(r.CapabilityRegistry) > 0 {
		logger.Warn("No stoppers registered; stop-execution will not silence local devices.")
	}

	if len(errs) > 0 {
		sort.Strings(errs)
		return fmt.Errorf("registry validation failed:\n- %s", strings.Join(errs, "\n- "))
	}

	return nil
}
