// Package process runs and supervises the child processes spawned by
// actions.
//
// Every process is started in its own process group so that signals reach
// the shell and anything it spawned. Run applies a timeout: when it
// elapses the group receives SIGTERM, and if it is still alive after the
// grace period, SIGKILL. Process groups make the package Unix only.
//
//	sup := process.NewSupervisor()
//	defer sup.Shutdown(2 * time.Second)
//
//	path, args := process.ShellCommand("", "sleep 10")
//	res, err := sup.Run(ctx, process.Spec{
//	    Name:    "nap",
//	    Path:    path,
//	    Args:    args,
//	    Timeout: 50 * time.Millisecond,
//	    Grace:   2 * time.Second,
//	})
//	// res.TimedOut == true
//
// The Supervisor tracks every running process so that Shutdown can
// terminate leftovers. Both Supervisor and Process are safe for concurrent
// use.
package process
