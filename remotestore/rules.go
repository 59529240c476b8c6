package remotestore

import (
	"context"

	"github.com/kendall-kelly/nafs-essence-api/models"
)

// Operation is the kind of access checked by Rules
type Operation string

const (
	OpList   Operation = "list"
	OpCreate Operation = "create"
	OpUpdate Operation = "update"
	OpDelete Operation = "delete"
)

// Principal is the signed-in admin performing a request
type Principal struct {
	Subject string
	Email   string
}

type principalKey struct{}

// WithPrincipal attaches the acting admin to ctx
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// PrincipalFrom returns the admin attached to ctx, if any
func PrincipalFrom(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(Principal)
	return p, ok && p.Subject != ""
}

// Rules decides whether an operation on a collection is allowed
type Rules interface {
	Allow(ctx context.Context, op Operation, collection string) bool
}

// RulesFunc adapts a function to Rules
type RulesFunc func(ctx context.Context, op Operation, collection string) bool

func (f RulesFunc) Allow(ctx context.Context, op Operation, collection string) bool {
	return f(ctx, op, collection)
}

// DefaultRules lets anyone read every collection and place orders.
// Every other write needs a principal.
func DefaultRules() Rules {
	return RulesFunc(func(ctx context.Context, op Operation, collection string) bool {
		if op == OpList {
			return true
		}
		if op == OpCreate && collection == models.CollectionOrders {
			return true
		}
		_, ok := PrincipalFrom(ctx)
		return ok
	})
}

// AllowAll disables access checks, for seeding and tests
func AllowAll() Rules {
	return RulesFunc(func(context.Context, Operation, string) bool { return true })
}
