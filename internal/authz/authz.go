// Package authz evaluates the embedded rego policy that decides which
// authenticated callers may perform a request.
package authz

import (
	"context"
	_ "embed"
	"fmt"
	"net/http"
	"sort"
	"strings"

	"github.com/Domenick1991/railbooking/internal/auth"
	"github.com/gin-gonic/gin"
	"github.com/open-policy-agent/opa/rego"
	"github.com/rs/zerolog/log"
)

//go:embed policy.rego
var policy string

const denyQuery = "data.railbooking.authz.deny"

type Request struct {
	Method   string
	Resource string
	Subject  int64
	IsStaff  bool
}

type Authorizer struct {
	query rego.PreparedEvalQuery
}

func NewAuthorizer(ctx context.Context) (*Authorizer, error) {
	query, err := rego.New(
		rego.Query(denyQuery),
		rego.Module("policy.rego", policy),
	).PrepareForEval(ctx)
	if err != nil {
		return nil, fmt.Errorf("prepare authz policy: %w", err)
	}
	return &Authorizer{query: query}, nil
}

// Deny returns the reasons the request is refused; an empty result allows it.
func (a *Authorizer) Deny(ctx context.Context, req Request) ([]string, error) {
	input := map[string]interface{}{
		"method":   req.Method,
		"resource": req.Resource,
		"subject":  req.Subject,
		"is_staff": req.IsStaff,
	}
	rs, err := a.query.Eval(ctx, rego.EvalInput(input))
	if err != nil {
		return nil, fmt.Errorf("evaluate authz policy: %w", err)
	}
	if len(rs) == 0 || len(rs[0].Expressions) == 0 {
		return nil, nil
	}

	values, ok := rs[0].Expressions[0].Value.([]interface{})
	if !ok {
		return nil, fmt.Errorf("unexpected policy result %T", rs[0].Expressions[0].Value)
	}
	reasons := make([]string, 0, len(values))
	for _, v := range values {
		reasons = append(reasons, fmt.Sprint(v))
	}
	sort.Strings(reasons)
	return reasons, nil
}

// Resource extracts the collection name from a route pattern,
// e.g. "/api/v1/stations/:id/upload-image" gives "stations".
func Resource(route string) string {
	route = strings.TrimPrefix(route, "/api/v1")
	route = strings.TrimPrefix(route, "/")
	if i := strings.IndexByte(route, '/'); i >= 0 {
		route = route[:i]
	}
	return route
}

// Middleware must run after auth.Middleware.
func Middleware(a *Authorizer) gin.HandlerFunc {
	return func(c *gin.Context) {
		identity, _ := auth.FromContext(c)
		reasons, err := a.Deny(c.Request.Context(), Request{
			Method:   c.Request.Method,
			Resource: Resource(c.FullPath()),
			Subject:  identity.UserID,
			IsStaff:  identity.IsStaff,
		})
		if err != nil {
			log.Error().Err(err).Msg("authorization failed")
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
			return
		}
		if len(reasons) > 0 {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": reasons[0]})
			return
		}
		c.Next()
	}
}
