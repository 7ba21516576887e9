package kbapi

import (
	"io"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/custodia-labs/kbprep/internal/core/ports/driven"
)

// progressTracker converts bytes read into whole percentages.
// Reported values never decrease and 100 is reported exactly once,
// when the upload body has been fully written.
type progressTracker struct {
	total    int64
	report   driven.ProgressFunc
	throttle *rate.Sometimes

	mu   sync.Mutex
	read int64
	last int
}

func newProgressTracker(total int64, interval time.Duration, report driven.ProgressFunc) *progressTracker {
	return &progressTracker{
		total:    total,
		report:   report,
		throttle: &rate.Sometimes{Interval: interval},
		last:     -1,
	}
}

func (t *progressTracker) wrap(r io.Reader) io.Reader {
	return &countingReader{r: r, t: t}
}

func (t *progressTracker) add(n int) {
	t.mu.Lock()
	t.read += int64(n)
	percent := int(t.read * 100 / t.total)
	t.mu.Unlock()

	// Hold 100 back until the multipart trailer is written.
	if percent >= 100 {
		percent = 99
	}
	t.throttle.Do(func() { t.emit(percent) })
}

func (t *progressTracker) complete() {
	t.emit(100)
}

func (t *progressTracker) emit(percent int) {
	t.mu.Lock()
	if percent <= t.last {
		t.mu.Unlock()
		return
	}
	t.last = percent
	t.mu.Unlock()

	t.report(percent)
}

type countingReader struct {
	r io.Reader
	t *progressTracker
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	if n > 0 {
		c.t.add(n)
	}
	return n, err
}
