package moderation

import "context"

// Executor performs the ban side effects once quorum is reached.
// Errors are logged by the engine and never undo the APPROVED state.
type Executor interface {
	Execute(ctx context.Context, guildID, userID, reason string) error
}

// ExecutorFunc adapts a function to the Executor interface.
type ExecutorFunc func(ctx context.Context, guildID, userID, reason string) error

func (f ExecutorFunc) Execute(ctx context.Context, guildID, userID, reason string) error {
	return f(ctx, guildID, userID, reason)
}

type noopExecutor struct{}

func (noopExecutor) Execute(context.Context, string, string, string) error { return nil }
