package romgfx

import (
	"context"
	"runtime"
	"sort"
	"sync"

	"github.com/bodgit/romgfx/lz"
	"github.com/hashicorp/go-hclog"
)

// Candidate is a plausible compressed stream found by Scan.
type Candidate struct {
	Start         int
	Length        int
	DecodedLength int
}

// End returns the address just past the compressed stream.
func (c Candidate) End() int { return c.Start + c.Length }

type scanConfig struct {
	workers    int
	minDecoded int
	maxDecoded int
	unit       int
	logger     hclog.Logger
}

// ScanOption configures Scan.
type ScanOption func(*scanConfig)

// WithWorkers sets the number of goroutines validating candidates.
func WithWorkers(n int) ScanOption {
	return func(c *scanConfig) {
		if n > 0 {
			c.workers = n
		}
	}
}

// WithDecodedLength bounds the decoded size of an accepted stream, which must
// also be a whole number of unit bytes.
func WithDecodedLength(lo, hi, unit int) ScanOption {
	return func(c *scanConfig) {
		c.minDecoded, c.maxDecoded, c.unit = lo, hi, unit
	}
}

// WithScanLogger sets the logger used to report progress.
func WithScanLogger(logger hclog.Logger) ScanOption {
	return func(c *scanConfig) {
		c.logger = logger
	}
}

func (m *Model) findOffsets(ctx context.Context) (<-chan int, <-chan error) {
	out := make(chan int)
	errc := make(chan error, 1)
	go func() {
		defer close(out)
		defer close(errc)
		for addr := 0; addr+4 <= len(m.data); addr += alignment {
			if m.data[addr] != 0x10 {
				continue
			}
			select {
			case out <- addr:
			case <-ctx.Done():
				errc <- ctx.Err()
				return
			}
		}
	}()
	return out, errc
}

func (m *Model) scanWorker(ctx context.Context, cfg *scanConfig, in <-chan int, add func(Candidate)) <-chan error {
	errc := make(chan error, 1)
	go func() {
		defer close(errc)
		for addr := range in {
			if err := ctx.Err(); err != nil {
				errc <- err
				return
			}

			decoded, err := lz.DecompressedLength(m.data, addr)
			if err != nil || decoded < cfg.minDecoded || decoded > cfg.maxDecoded || decoded%cfg.unit != 0 {
				continue
			}
			n, err := lz.CompressedLength(m.data, addr)
			if err != nil {
				continue
			}

			cfg.logger.Trace("found stream", "start", hclog.Hex(addr), "length", n, "decoded", decoded)
			add(Candidate{Start: addr, Length: n, DecodedLength: decoded})
		}
	}()
	return errc
}

// Scan looks for valid compressed streams at every aligned address of the
// data, using a pool of workers. Streams starting inside an earlier stream
// are dropped.
func (m *Model) Scan(ctx context.Context, opts ...ScanOption) ([]Candidate, error) {
	cfg := &scanConfig{
		workers:    runtime.NumCPU(),
		minDecoded: 32,
		maxDecoded: 0x40000,
		unit:       32,
		logger:     m.logger,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.unit <= 0 {
		cfg.unit = 1
	}

	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	var (
		mu         sync.Mutex
		candidates []Candidate
	)
	add := func(c Candidate) {
		mu.Lock()
		defer mu.Unlock()
		candidates = append(candidates, c)
	}

	var errcList []<-chan error

	offsets, errc := m.findOffsets(ctx)
	errcList = append(errcList, errc)

	for i := 0; i < cfg.workers; i++ {
		errcList = append(errcList, m.scanWorker(ctx, cfg, offsets, add))
	}

	if err := waitForPipeline(errcList...); err != nil {
		return nil, err
	}

	sort.Slice(candidates, func(i, j int) bool { return candidates[i].Start < candidates[j].Start })

	found := candidates[:0]
	end := 0
	for _, c := range candidates {
		if c.Start < end {
			continue
		}
		found = append(found, c)
		end = c.End()
	}

	cfg.logger.Debug("scan complete", "streams", len(found), "workers", cfg.workers)

	return found, nil
}

func waitForPipeline(errs ...<-chan error) error {
	errc := mergeErrors(errs...)
	for err := range errc {
		if err != nil {
			return err
		}
	}
	return nil
}

func mergeErrors(cs ...<-chan error) <-chan error {
	var wg sync.WaitGroup
	out := make(chan error, len(cs))
	wg.Add(len(cs))
	for _, c := range cs {
		go func(c <-chan error) {
			for n := range c {
				out <- n
			}
			wg.Done()
		}(c)
	}
	go func() {
		wg.Wait()
		close(out)
	}()
	return out
}
