package telemetry

import (
	"context"
	"maps"
	"sort"
	"strings"

	"github.com/grafana/pyroscope-go"

	"github.com/bizcore/backend/internal/tenantctx"
)

// Profiling label keys. Tenant is the main slicing dimension: profiles can
// be filtered per tenant to find which tenant drives the load.
const (
	ProfilingLabelRoute     = "route"
	ProfilingLabelMethod    = "method"
	ProfilingLabelTenantID  = "tenant_id"
	ProfilingLabelOperation = "operation"
)

// MaxLabelValueLength bounds label values to keep cardinality manageable
const MaxLabelValueLength = 128

// highCardinalityLabels are rejected outright; each unique value becomes a
// separate profile series in Pyroscope.
var highCardinalityLabels = map[string]bool{
	"user_id":    true,
	"request_id": true,
	"trace_id":   true,
	"span_id":    true,
	"session_id": true,
}

// WithProfilingLabels wraps fn with Pyroscope labels so profiles can be
// sliced in the UI. The labels map is copied; callers may reuse it.
func WithProfilingLabels(ctx context.Context, labels map[string]string, fn func(context.Context)) {
	pairs := sanitizeLabels(labels)
	if len(pairs) == 0 {
		fn(ctx)
		return
	}
	pyroscope.TagWrapper(ctx, pyroscope.Labels(pairs...), fn)
}

// WithTenantLabels wraps fn with the context tenant as a profiling label.
// Without a tenant in context, fn runs unlabeled.
func WithTenantLabels(ctx context.Context, operation string, fn func(context.Context)) {
	labels := map[string]string{ProfilingLabelOperation: operation}
	if tenantID, ok := tenantctx.CurrentTenant(ctx); ok {
		labels[ProfilingLabelTenantID] = tenantID.String()
	}
	WithProfilingLabels(ctx, labels, fn)
}

// HTTPRequestLabels builds the standard label set for HTTP request profiling
func HTTPRequestLabels(route, method, tenantID string) map[string]string {
	labels := make(map[string]string, 3)
	if route != "" {
		labels[ProfilingLabelRoute] = route
	}
	if method != "" {
		labels[ProfilingLabelMethod] = method
	}
	if tenantID != "" {
		labels[ProfilingLabelTenantID] = tenantID
	}
	return labels
}

// sanitizeLabels drops empty and high-cardinality labels, truncates long
// values, and returns a deterministic key-value slice.
func sanitizeLabels(labels map[string]string) []string {
	if len(labels) == 0 {
		return nil
	}

	copied := make(map[string]string, len(labels))
	maps.Copy(copied, labels)

	keys := make([]string, 0, len(copied))
	for k := range copied {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(copied)*2)
	for _, key := range keys {
		value := copied[key]
		if key == "" || value == "" {
			continue
		}
		if highCardinalityLabels[key] {
			continue
		}
		if len(value) > MaxLabelValueLength {
			value = value[:MaxLabelValueLength]
		}
		sanitized := sanitizeLabelKey(key)
		if sanitized == "" {
			continue
		}
		pairs = append(pairs, sanitized, value)
	}
	return pairs
}

func sanitizeLabelKey(key string) string {
	key = strings.ToLower(key)
	key = strings.ReplaceAll(key, " ", "_")
	key = strings.ReplaceAll(key, "-", "_")

	result := make([]byte, 0, len(key))
	for i := 0; i < len(key); i++ {
		c := key[i]
		if (c >= 'a' && c <= 'z') || (c >= '0' && c <= '9') || c == '_' {
			result = append(result, c)
		}
	}
	return string(result)
}
