// Package parallel provides a fixed-size worker pool for the
// data-independent batch operations spec.md §5 allows to be
// parallelized: RS/LDPC encode and decode across frames, and
// modulation/demodulation across symbol ranges. Grounded on
// sixy6e-go-gsf/cmd/main.go's convert_gsf_list, which sizes a pond pool
// to 2*NumCPU and submits one task per item; ForEachRange adds the
// blocking wait that file's pool (deliberately fire-and-forget, see its
// own "TODO; fix this design") does not.
package parallel

import (
	"runtime"

	"github.com/alitto/pond"
)

// ForEachRange runs fn(i) for i in [0,n) across a pool sized to
// 2*NumCPU and blocks until every call has returned. A single range
// smaller than the pool's worker count still runs correctly, just
// under-subscribed.
func ForEachRange(n int, fn func(i int)) {
	if n == 0 {
		return
	}
	if n == 1 {
		fn(0)
		return
	}

	workers := runtime.NumCPU() * 2
	if workers > n {
		workers = n
	}
	pool := pond.New(workers, 0, pond.MinWorkers(workers))
	for i := 0; i < n; i++ {
		idx := i
		pool.Submit(func() {
			fn(idx)
		})
	}
	pool.StopAndWait()
}
