package harness

import "time"

// Timing is the wall-clock duration of one named operation
type Timing struct {
	Name    string
	Elapsed time.Duration
}

// Milliseconds returns Elapsed as fractional milliseconds
func (t Timing) Milliseconds() float64 {
	return float64(t.Elapsed) / float64(time.Millisecond)
}

// TimeAndRun measures op from just before the call to just after it
// returns. Anything op does, including staging and transfers, is inside
// the measurement; work done before TimeAndRun is called is not.
func TimeAndRun[T any](name string, op func() (T, error)) (T, Timing, error) {
	start := time.Now()
	result, err := op()
	elapsed := time.Since(start)
	if elapsed < 0 {
		elapsed = 0
	}
	return result, Timing{Name: name, Elapsed: elapsed}, err
}
