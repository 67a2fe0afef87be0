/*
Package workers sizes worker pools from GOMAXPROCS.

runtime.NumCPU reports the host's CPUs even inside a container with a CPU
limit, while GOMAXPROCS follows the cgroup quota. The periodic scan walks
library roots in parallel and uses [ForIO] to decide how many roots are
walked at once:

	n := workers.ForIO(len(roots))

Operators can pin the count with the SCAN_WORKERS environment variable:

	env:
	- name: SCAN_WORKERS
	  value: "2"

Invalid values are logged and ignored.
*/
package workers
