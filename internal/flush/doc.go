// Package flush provides the debounce timer behind the render and publish
// cycle.
//
// A burst of discoveries calls [Scheduler.Schedule] many times; the callback
// runs once, a fixed delay after the last call. The callback runs on the
// timer's goroutine, so callers never wait for rendering or git.
//
//	Idle --Schedule--> Armed --delay--> Running --done--> Idle
//	                   Armed --Schedule--> Armed (timer restarted)
//	                   Running --Schedule--> Armed (next run waits for this one)
package flush
