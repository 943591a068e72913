// aiobench drives a file or block device through the async I/O engine and
// prints throughput and latency figures. It exists to exercise the full
// lifecycle against real hardware; it is not a tuned benchmark.
package main

import (
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sys/unix"

	"github.com/blkbench/aioengine"
	"github.com/blkbench/aioengine/internal/alloc"
	"github.com/blkbench/aioengine/internal/logging"
)

func main() {
	var (
		path      = flag.String("file", "", "File or block device to drive (required)")
		engName   = flag.String("engine", "aio", "I/O engine to use")
		blockStr  = flag.String("bs", "4k", "Block size per request (e.g., 4k, 1M)")
		depth     = flag.Uint("depth", 32, "Queue depth")
		count     = flag.Uint("count", 1024, "Total number of requests")
		write     = flag.Bool("write", false, "Write instead of read")
		random    = flag.Bool("random", false, "Random offsets instead of sequential")
		userReap  = flag.Bool("userspace-reap", false, "Reap completions from the mapped ring")
		hipri     = flag.Bool("hipri", false, "Polled, latency-sensitive submissions")
		userIOCB  = flag.Bool("useriocb", false, "User-mapped descriptor table")
		fixedBufs = flag.Bool("fixedbufs", false, "Pre-register buffers (implies -useriocb)")
		direct    = flag.Bool("direct", true, "Open with O_DIRECT")
		verbose   = flag.Bool("v", false, "Verbose output")
	)
	flag.Parse()

	if *path == "" {
		flag.Usage()
		os.Exit(2)
	}
	blockSize, err := parseSize(*blockStr)
	if err != nil {
		log.Fatalf("Invalid block size '%s': %v", *blockStr, err)
	}

	logConfig := logging.DefaultConfig()
	if *verbose {
		logConfig.Level = logging.LevelDebug
	}
	logger := logging.NewLogger(logConfig)
	logging.SetDefault(logger)

	opts := aioengine.DefaultOptions()
	opts.Depth = uint32(*depth)
	opts.UserspaceReap = *userReap
	opts.HighPriority = *hipri
	opts.UserDescriptors = *userIOCB || *fixedBufs
	opts.FixedBuffers = *fixedBufs
	opts.RecordIssue = true
	opts.Logger = logger

	engine, err := aioengine.NewRegistry().New(*engName, opts)
	if err != nil {
		logger.Error("engine construction failed", "engine", *engName, "error", err)
		os.Exit(1)
	}

	if err := run(engine, opts, *path, blockSize, int(*count), *write, *random, *direct, logger); err != nil {
		logger.Error("run failed", "error", err)
		os.Exit(1)
	}
}

func run(engine aioengine.IOEngine, opts aioengine.Options, path string,
	blockSize int64, count int, write, random, direct bool, logger *logging.Logger) error {

	openFlags := os.O_RDWR
	if direct {
		openFlags |= unix.O_DIRECT
	}
	f, err := os.OpenFile(path, openFlags, 0)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return err
	}
	span := deviceSize(f, info)
	if span < blockSize {
		return fmt.Errorf("%s is smaller than one block", path)
	}
	blocks := span / blockSize

	if err := engine.Init(); err != nil {
		return err
	}
	defer func() {
		if err := engine.Cleanup(); err != nil {
			logger.Error("cleanup failed", "error", err)
		}
	}()

	// One page-aligned region carved into per-slot buffers; O_DIRECT
	// requires the alignment and fixed-buffer registration requires the
	// buffers to exist before PostInit.
	region, err := alloc.New(int(blockSize) * int(opts.Depth))
	if err != nil {
		return err
	}
	defer region.Release()

	dir := aioengine.DirRead
	if write {
		dir = aioengine.DirWrite
	}
	reqs := make([]*aioengine.Request, opts.Depth)
	for i := range reqs {
		buf := region.Bytes()[int64(i)*blockSize : int64(i+1)*blockSize]
		reqs[i] = &aioengine.Request{
			Dir:   dir,
			FD:    int32(f.Fd()),
			Buf:   buf,
			Len:   uint64(blockSize),
			Index: uint32(i),
		}
		if err := engine.InitRequest(reqs[i]); err != nil {
			return err
		}
	}

	if err := engine.PostInit(); err != nil {
		return err
	}

	logger.Info("starting run", "path", path, "dir", dir.String(),
		"bs", blockSize, "depth", opts.Depth, "count", count)

	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	free := make([]*aioengine.Request, len(reqs))
	copy(free, reqs)
	issued, reaped := 0, 0
	nextBlock := int64(0)
	start := time.Now()

	for reaped < count {
		for issued < count && len(free) > 0 {
			r := free[len(free)-1]
			block := nextBlock % blocks
			if random {
				block = rng.Int63n(blocks)
			}
			r.Off = block * blockSize
			nextBlock++

			st, err := engine.Queue(r)
			if err != nil {
				return err
			}
			if st == aioengine.Busy {
				break
			}
			free = free[:len(free)-1]
			issued++
		}
		if err := engine.Commit(); err != nil {
			return err
		}

		min := 1
		if issued >= count {
			// Everything still outstanding is the tail of the run.
			min = count - reaped
		}
		n, err := engine.GetEvents(min, int(opts.Depth), nil)
		if err != nil {
			return err
		}
		for i := 0; i < n; i++ {
			r := engine.Event(i)
			if r.Err != 0 {
				return fmt.Errorf("%s at offset %d: %w", r.Dir, r.Off, r.Err)
			}
			if r.Resid != 0 {
				logger.Warn("short transfer", "off", r.Off, "resid", r.Resid)
			}
			free = append(free, r)
			reaped++
		}
	}
	elapsed := time.Since(start)

	if write {
		sync := &aioengine.Request{Dir: aioengine.DirSync, FD: int32(f.Fd())}
		if st, err := engine.Queue(sync); err != nil {
			return err
		} else if st == aioengine.Completed && sync.Err != 0 {
			return fmt.Errorf("sync: %w", sync.Err)
		}
	}

	printSummary(engine, count, blockSize, elapsed)
	return nil
}

func printSummary(engine aioengine.IOEngine, count int, blockSize int64, elapsed time.Duration) {
	bytes := int64(count) * blockSize
	secs := elapsed.Seconds()
	fmt.Printf("Completed %d requests in %v\n", count, elapsed.Round(time.Millisecond))
	fmt.Printf("Throughput: %.1f MB/s, %.0f IOPS\n",
		float64(bytes)/secs/(1<<20), float64(count)/secs)

	e, ok := engine.(*aioengine.Engine)
	if !ok {
		return
	}
	snap := e.Metrics().Snapshot()
	fmt.Printf("Submits: %d calls, %d partial, %d retries, %d backpressure\n",
		snap.SubmitCalls, snap.PartialSubmits, snap.SubmitRetries, snap.Backpressure)
	fmt.Printf("Reaps: %d syscall, %d userspace\n", snap.SyscallReaps, snap.UserReaps)
	fmt.Printf("Latency: %v avg over %d completions\n", snap.AvgLatency, snap.Completions)
}

func deviceSize(f *os.File, info os.FileInfo) int64 {
	if info.Mode()&os.ModeDevice == 0 {
		return info.Size()
	}
	size, err := unix.IoctlGetInt(int(f.Fd()), unix.BLKGETSIZE64)
	if err != nil {
		return info.Size()
	}
	return int64(size)
}

func parseSize(s string) (int64, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	mult := int64(1)
	switch {
	case strings.HasSuffix(s, "K"):
		mult, s = 1<<10, strings.TrimSuffix(s, "K")
	case strings.HasSuffix(s, "M"):
		mult, s = 1<<20, strings.TrimSuffix(s, "M")
	case strings.HasSuffix(s, "G"):
		mult, s = 1<<30, strings.TrimSuffix(s, "G")
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, err
	}
	if n <= 0 {
		return 0, fmt.Errorf("size must be positive")
	}
	return n * mult, nil
}
