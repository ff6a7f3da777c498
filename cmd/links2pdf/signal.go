package main

import "context"

// interruptContext is notifyContext that unregisters itself on the first
// signal. The batch keeps draining after that, and a second signal falls
// through to the default handler and terminates the process.
func interruptContext(parent context.Context) (context.Context, context.CancelFunc) {
	ctx, stop := notifyContext(parent)
	go func() {
		<-ctx.Done()
		stop()
	}()
	return ctx, stop
}
