package health

import "context"

// DBPinger checks chunk store availability.
type DBPinger interface {
	Ping(ctx context.Context) error
}

// ProviderChecker checks an external AI collaborator. Implemented by the
// openai transport's embedder and generator.
type ProviderChecker interface {
	HealthCheck(ctx context.Context) error
}
