package progress

import (
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/go-logr/logr"
)

// Global variables for progress tracking
var (
	totalBytesProcessed atomic.Uint64
	totalFilesProcessed atomic.Uint64
	totalSize           atomic.Uint64
	done                chan struct{}
	finished            chan struct{}
	progressRunning     bool
	progressMutex       sync.Mutex
	log                 = logr.Discard()
)

// interval between two progress lines
const interval = time.Second

// Init starts progress tracking. Calling Init while tracking is running only
// updates the expected total size.
func Init(l logr.Logger, size uint64) {
	progressMutex.Lock()
	defer progressMutex.Unlock()

	totalSize.Store(size)
	if progressRunning {
		return
	}

	totalBytesProcessed.Store(0)
	totalFilesProcessed.Store(0)
	if l.GetSink() == nil {
		l = logr.Discard()
	}
	log = l.WithName("progress")

	done = make(chan struct{})
	finished = make(chan struct{})
	progressRunning = true
	go logger(done, finished)
}

// Stop stops the progress tracking and waits for the final summary line
func Stop() {
	progressMutex.Lock()
	defer progressMutex.Unlock()

	if progressRunning {
		close(done)
		<-finished
		progressRunning = false
	}
}

// AddBytes adds processed bytes to the counter
func AddBytes(n uint64) {
	if n > 0 {
		totalBytesProcessed.Add(n)
	}
}

// AddFile counts one processed file
func AddFile() {
	totalFilesProcessed.Add(1)
}

// Counts returns the bytes and files processed since the last Init
func Counts() (bytes, files uint64) {
	return totalBytesProcessed.Load(), totalFilesProcessed.Load()
}

// logger logs processing progress periodically
func logger(done <-chan struct{}, finished chan<- struct{}) {
	defer close(finished)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	var prevBytes uint64
	startTime := time.Now()

	for {
		select {
		case <-ticker.C:
			currentBytes := totalBytesProcessed.Load()
			rate := uint64(float64(currentBytes-prevBytes) / interval.Seconds())
			prevBytes = currentBytes

			total := totalSize.Load()
			if total > 0 && currentBytes <= total {
				log.Info("Processed",
					"bytes", humanize.IBytes(currentBytes),
					"total", humanize.IBytes(total),
					"percent", float64(currentBytes)/float64(total)*100,
					"rate", humanize.IBytes(rate)+"/s",
					"files", totalFilesProcessed.Load())
			} else {
				log.Info("Processed",
					"bytes", humanize.IBytes(currentBytes),
					"rate", humanize.IBytes(rate)+"/s",
					"files", totalFilesProcessed.Load())
			}
		case <-done:
			totalTime := time.Since(startTime).Seconds()
			if totalTime < 0.001 {
				totalTime = 0.001 // Avoid division by zero
			}
			processed := totalBytesProcessed.Load()
			log.V(1).Info("Completed processing",
				"bytes", humanize.IBytes(processed),
				"files", totalFilesProcessed.Load(),
				"seconds", totalTime,
				"avgRate", humanize.IBytes(uint64(float64(processed)/totalTime))+"/s")
			return
		}
	}
}

// Reader is a reader that tracks bytes read for progress reporting
type Reader struct {
	R io.Reader
}

// Read implements io.Reader and tracks bytes read
func (pr *Reader) Read(p []byte) (n int, err error) {
	n, err = pr.R.Read(p)
	if n > 0 {
		AddBytes(uint64(n))
	}
	return
}
