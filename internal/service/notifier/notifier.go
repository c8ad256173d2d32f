package notifier

import "context"

// Notifier delivers outbound notifications produced by the workflows.
// Every method is fire-and-forget: delivery failure must never roll
// back or fail the state transition that produced the message, so no
// method returns an error. Implementations log and count failures.
type Notifier interface {
	// NotifyOwner sends a direct message to the configured owner.
	NotifyOwner(ctx context.Context, text string)
	// NotifyOps broadcasts to the operations channel.
	NotifyOps(ctx context.Context, text string)
	// NotifyUser sends a direct message to an account holder.
	NotifyUser(ctx context.Context, accountID string, text string)
	// ForwardProof forwards a proof-of-payment message from the
	// account holder's chat to the owner.
	ForwardProof(ctx context.Context, accountID string, messageID int)
}

// FailureCounter reports how many deliveries have failed since start.
// The admin API surfaces it so dropped notifications are visible to
// operators even though they never fail the originating operation.
type FailureCounter interface {
	Failures() int64
}

// Nop is a Notifier that discards everything. Used where notifications
// are wired off.
type Nop struct{}

func (Nop) NotifyOwner(context.Context, string)        {}
func (Nop) NotifyOps(context.Context, string)          {}
func (Nop) NotifyUser(context.Context, string, string) {}
func (Nop) ForwardProof(context.Context, string, int)  {}
func (Nop) Failures() int64                            { return 0 }
