// Package activity lets workflow steps report what they are doing.
//
// A StatusLine is bound to one step and writes to a StatusHandler shared by
// all steps of an activation:
//
//	handler := activity.NewStatusHandler()
//	line := activity.NewStatusLine(workflow.GetActivityID(step), logger, handler)
//	line.Set("minting 12 sequence entries")
//
// The handler is read by the server to show progress of a running
// activation. CaptureError records a step's failure as its final status:
//
//	return activity.CaptureError(a.StatusLine, func() error {
//	    return a.export(ctx)
//	})
package activity
