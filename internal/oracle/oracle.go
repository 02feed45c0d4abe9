package oracle

import (
	"context"
	"errors"
)

// Client is the minimal abstraction over the external LLM provider.
// The provider is treated as a non-deterministic text generator with no
// guaranteed schema compliance; callers must validate what comes back.
type Client interface {
	Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// ErrUnavailable marks network/availability failures of the provider,
// distinct from parse or validation failures of its output.
var ErrUnavailable = errors.New("oracle unavailable")
