package audio

import "sync"

// Recorder is a Sink that keeps what it is given instead of playing it.
// It backs the null backend and tests.
type Recorder struct {
	sampleRate int
	limit      int

	mu      sync.Mutex
	buffers [][]float64
	total   int
}

// NewRecorder accepts buffers at sampleRate. A positive limit keeps only the
// most recent limit buffers; zero or less keeps none and only counts.
func NewRecorder(sampleRate, limit int) *Recorder {
	return &Recorder{sampleRate: sampleRate, limit: limit}
}

func (r *Recorder) Play(samples []float64, sampleRate int) error {
	if err := checkRate(r.sampleRate, sampleRate); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.total++
	if r.limit <= 0 {
		return nil
	}
	r.buffers = append(r.buffers, append([]float64(nil), samples...))
	if n := len(r.buffers) - r.limit; n > 0 {
		clear(r.buffers[:n])
		r.buffers = r.buffers[n:]
	}
	return nil
}

// Buffers returns copies of the retained buffers, oldest first.
func (r *Recorder) Buffers() [][]float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([][]float64, len(r.buffers))
	for i, b := range r.buffers {
		out[i] = append([]float64(nil), b...)
	}
	return out
}

// Count is the number of buffers accepted, retained or not.
func (r *Recorder) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.total
}
