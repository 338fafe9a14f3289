/*
Package cli provides command-line interface utilities for Triton.

The cli package includes typed command errors and signal handling helpers
used by the triton command.

Signal Handling:

For graceful shutdown on SIGINT/SIGTERM:

	sigChan := cli.WaitForShutdown()
	<-sigChan

For gunicorn-style pool resizing, TTIN grows the pool by one worker and
TTOU shrinks it:

	resizeChan := cli.NotifyResize()
*/
package cli
