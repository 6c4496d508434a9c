package game

import (
	"bufio"
	"encoding/json"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"bunny-chase/internal/protocol"
)

const (
	JournalBufferSize    = 1024
	MaxJournalEventsPerS = 1000
	JournalBatchSize     = 64
	JournalFlushInterval = 100 * time.Millisecond
)

// Journal is a bounded, rate-limited record of match events, written as
// JSON lines by a background goroutine. Emit never blocks the simulation:
// when the buffer is full the oldest pending event is dropped.
//
// A nil *Journal is valid and discards everything.
type Journal struct {
	mu      sync.Mutex
	buffer  [JournalBufferSize]Event
	head    uint64 // next sequence to write
	tail    uint64 // next sequence to flush
	limiter *rate.Limiter

	stopChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
	running  atomic.Bool

	file *os.File
	out  *bufio.Writer

	dropped atomic.Uint64
	total   atomic.Uint64
}

// NewJournal creates a stopped journal.
func NewJournal() *Journal {
	return &Journal{
		limiter:  rate.NewLimiter(MaxJournalEventsPerS, MaxJournalEventsPerS/10),
		stopChan: make(chan struct{}),
	}
}

// Start opens path for appending and starts the writer. With an empty
// path events are counted and then discarded.
func (j *Journal) Start(path string) error {
	if j == nil || j.running.Load() {
		return nil
	}
	if path != "" {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return err
		}
		j.file = f
		j.out = bufio.NewWriter(f)
	}
	j.running.Store(true)
	j.wg.Add(1)
	go j.writerLoop()
	return nil
}

// Stop flushes pending events and closes the file.
func (j *Journal) Stop() {
	if j == nil {
		return
	}
	j.stopOnce.Do(func() {
		if !j.running.Load() {
			return
		}
		j.running.Store(false)
		close(j.stopChan)
		j.wg.Wait()
		if j.file != nil {
			if err := j.file.Close(); err != nil {
				log.Warn().Err(err).Msg("journal close")
			}
		}
	})
}

// Emit queues an event. It reports false when the event was rate limited
// or the journal is not running.
func (j *Journal) Emit(e Event) bool {
	if j == nil || !j.running.Load() {
		return false
	}
	if !j.limiter.Allow() {
		j.dropped.Add(1)
		return false
	}

	j.mu.Lock()
	if j.head-j.tail >= JournalBufferSize {
		j.tail++
		j.dropped.Add(1)
	}
	e.Sequence = j.head
	j.buffer[j.head%JournalBufferSize] = e
	j.head++
	j.mu.Unlock()

	j.total.Add(1)
	return true
}

// Record builds and emits an event.
func (j *Journal) Record(t EventType, tick uint64, role protocol.Role, payload any) bool {
	if j == nil {
		return false
	}
	return j.Emit(NewEvent(t, tick, role, payload))
}

func (j *Journal) writerLoop() {
	defer j.wg.Done()

	ticker := time.NewTicker(JournalFlushInterval)
	defer ticker.Stop()

	batch := make([]Event, 0, JournalBatchSize)
	for {
		select {
		case <-j.stopChan:
			for {
				batch = j.collect(batch[:0])
				if len(batch) == 0 {
					return
				}
				j.flush(batch)
			}
		case <-ticker.C:
			batch = j.collect(batch[:0])
			if len(batch) > 0 {
				j.flush(batch)
			}
		}
	}
}

func (j *Journal) collect(batch []Event) []Event {
	j.mu.Lock()
	defer j.mu.Unlock()
	for j.tail < j.head && len(batch) < JournalBatchSize {
		batch = append(batch, j.buffer[j.tail%JournalBufferSize])
		j.tail++
	}
	return batch
}

func (j *Journal) flush(batch []Event) {
	if j.out == nil {
		return
	}
	for _, e := range batch {
		data, err := json.Marshal(e)
		if err != nil {
			continue
		}
		j.out.Write(data)
		j.out.WriteByte('\n')
	}
	if err := j.out.Flush(); err != nil {
		log.Warn().Err(err).Msg("journal flush")
	}
}

// JournalStats summarizes the journal for monitoring.
type JournalStats struct {
	Total   uint64 `json:"total"`
	Dropped uint64 `json:"dropped"`
	Pending uint64 `json:"pending"`
	Running bool   `json:"running"`
}

func (j *Journal) Stats() JournalStats {
	if j == nil {
		return JournalStats{}
	}
	j.mu.Lock()
	pending := j.head - j.tail
	j.mu.Unlock()
	return JournalStats{
		Total:   j.total.Load(),
		Dropped: j.dropped.Load(),
		Pending: pending,
		Running: j.running.Load(),
	}
}
