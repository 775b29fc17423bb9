package scheduler

import (
	"context"
	"log"
	"time"
)

type Task func(ctx context.Context) error

// Status is the outcome of the runs so far.
type Status struct {
	Runs      int
	LastRunAt time.Time
	LastOkAt  time.Time
	LastError string
}

// Every runs task now and then once per interval until ctx is done. Runs
// never overlap, and the next run starts one full interval after the
// previous one ends, however long it took.
func Every(ctx context.Context, interval time.Duration, name string, task Task) Status {
	var st Status
	run := func() {
		st.Runs++
		st.LastRunAt = time.Now()
		if err := task(ctx); err != nil {
			st.LastError = err.Error()
			log.Printf("[%s] error: %v", name, err)
			return
		}
		st.LastError = ""
		st.LastOkAt = time.Now()
		log.Printf("[%s] ok run=%d next_in=%s", name, st.Runs, interval)
	}

	if ctx.Err() != nil {
		return st
	}
	run()

	t := time.NewTicker(interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return st
		case <-t.C:
			if ctx.Err() != nil {
				return st
			}
			run()
			t.Reset(interval)
		}
	}
}
