package tenant

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestResolverPrefersHeader(t *testing.T) {
	resolver := NewResolver("X-Tenant-ID", "drive247.example", "")

	req := httptest.NewRequest(http.MethodGet, "http://acme.drive247.example/api/v1/quotes", nil)
	req.Header.Set("X-Tenant-ID", "globex")
	require.Equal(t, "globex", resolver.Resolve(req))
}

func TestResolverFallsBackToSubdomain(t *testing.T) {
	resolver := NewResolver("X-Tenant-ID", "drive247.example", "")

	req := httptest.NewRequest(http.MethodGet, "http://acme.drive247.example:8080/api/v1/quotes", nil)
	require.Equal(t, "acme", resolver.Resolve(req))
}

func TestMiddlewareInjectsDefaultTenant(t *testing.T) {
	resolver := NewResolver("X-Tenant-ID", "drive247.example", "default")

	var got string
	handler := resolver.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ = From(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "http://drive247.example/api/v1/quotes", nil)
	handler.ServeHTTP(httptest.NewRecorder(), req)
	require.Equal(t, "default", got)
}

func TestPrefixKey(t *testing.T) {
	require.Equal(t, "acme:pricing-config", PrefixKey("acme", "pricing-config"))
	require.Equal(t, "pricing-config", PrefixKey("", "pricing-config"))
}
