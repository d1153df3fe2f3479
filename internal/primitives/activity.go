package primitives

import "context"

// ActivityConfig declares a background task that runs while its owning
// state is occupied. Run should block until ctx is cancelled or the work is
// done. send feeds events back into the owning actor; it becomes a no-op
// once the activity is interrupted.
type ActivityConfig struct {
	ID  string
	Run func(ctx context.Context, c Context, evt Event, send func(Event)) error
}
