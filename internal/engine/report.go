package engine

import (
	"fmt"
	"io"

	"github.com/inhies/go-bytesize"
)

// Report renders the stdout report for one completed pass: a
// header, the cumulative latency distribution, and the closing
// requests-per-second line. In quiet mode only that last line is printed.
func (e *Engine) Report(w io.Writer, quiet bool) {
	if quiet {
		fmt.Fprintf(w, "%.2f requests per second\n", e.requestsPerSecond())
		return
	}

	elapsed := e.Elapsed()
	min, max, mean := e.PayloadStats()
	fmt.Fprintf(w, "====== Report ======\n")
	fmt.Fprintf(w, "  %d requests completed in %.2f seconds\n", e.issued, elapsed.Seconds())
	fmt.Fprintf(w, "  %.2f requests per second\n", e.requestsPerSecond())
	fmt.Fprintf(w, "  %d parallel clients\n", e.opts.Clients)
	if e.payloadCount > 0 {
		fmt.Fprintf(w, "  payload sizes: min %d (%s), max %d (%s), mean %.0f (%s)\n",
			min, bytesize.New(float64(min)), max, bytesize.New(float64(max)), mean, bytesize.New(mean))
	}
	if e.opts.Keepalive {
		fmt.Fprintf(w, "  keep alive: 1\n")
	} else {
		fmt.Fprintf(w, "  keep alive: 0\n")
	}
	fmt.Fprintln(w)

	for _, line := range e.histogram.CumulativeReport() {
		fmt.Fprintf(w, "%.2f%% <= %d milliseconds\n", line.Pct, line.Millis)
	}
	fmt.Fprintln(w)
	fmt.Fprintf(w, "%.2f requests per second\n", e.requestsPerSecond())
}

func (e *Engine) requestsPerSecond() float64 {
	secs := e.Elapsed().Seconds()
	if secs <= 0 {
		return 0
	}
	return float64(e.issued) / secs
}
