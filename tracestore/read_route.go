package tracestore

import "context"

// ReadRoute tells a store with a read replica where a read may run.
type ReadRoute int

const (
	// PrimaryReads is the default. Trace metadata and catalogs of a trace imported a moment
	// ago are only guaranteed to be visible on the primary.
	PrimaryReads ReadRoute = iota

	// ReplicaReads lets a read run on a replica. Events of a stored trace never change,
	// so the slice and boundary reads of a window load use it.
	ReplicaReads
)

type readRouteKey struct{}

// WithPrimaryReads returns a context whose reads go to the primary.
func WithPrimaryReads(ctx context.Context) context.Context {
	return context.WithValue(ctx, readRouteKey{}, PrimaryReads)
}

// WithReplicaReads returns a context whose reads may be served by a replica.
func WithReplicaReads(ctx context.Context) context.Context {
	return context.WithValue(ctx, readRouteKey{}, ReplicaReads)
}

// ReadRouteFrom returns the route carried by ctx, PrimaryReads if none is set.
func ReadRouteFrom(ctx context.Context) ReadRoute {
	if route, ok := ctx.Value(readRouteKey{}).(ReadRoute); ok {
		return route
	}

	return PrimaryReads
}

func (r ReadRoute) String() string {
	switch r {
	case PrimaryReads:
		return "primary"
	case ReplicaReads:
		return "replica"
	default:
		return "unknown"
	}
}
