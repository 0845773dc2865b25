package upgrade

import (
	"sync/atomic"
	"time"

	"github.com/wal-g/tracelog"
)

// Stats counts what the pipeline did to the stream. Counters are atomic
// because the stages run concurrently.
type Stats struct {
	CommandsRead       uint64
	CommandsUpgraded   uint64
	CommandsStamped    uint64
	CommandsAppended   uint64
	CommandsCompressed uint64
	CommandsPadded     uint64
	BytesRead          uint64
	BytesWritten       uint64

	startedAt  time.Time
	finishedAt time.Time
}

func newStats() *Stats {
	return &Stats{startedAt: time.Now()}
}

func (stats *Stats) addRead(bytes int) {
	atomic.AddUint64(&stats.CommandsRead, 1)
	atomic.AddUint64(&stats.BytesRead, uint64(bytes))
}

func (stats *Stats) addUpgraded()   { atomic.AddUint64(&stats.CommandsUpgraded, 1) }
func (stats *Stats) addStamped()    { atomic.AddUint64(&stats.CommandsStamped, 1) }
func (stats *Stats) addAppended()   { atomic.AddUint64(&stats.CommandsAppended, 1) }
func (stats *Stats) addCompressed() { atomic.AddUint64(&stats.CommandsCompressed, 1) }
func (stats *Stats) addPadded()     { atomic.AddUint64(&stats.CommandsPadded, 1) }

func (stats *Stats) addWritten(bytes int) {
	atomic.AddUint64(&stats.BytesWritten, uint64(bytes))
}

func (stats *Stats) finish() {
	stats.finishedAt = time.Now()
}

func (stats *Stats) Duration() time.Duration {
	return stats.finishedAt.Sub(stats.startedAt)
}

func (stats *Stats) Log() {
	tracelog.InfoLogger.Printf("commands: read %v, upgraded %v, stamped %v, appended %v, compressed %v, padded %v",
		atomic.LoadUint64(&stats.CommandsRead),
		atomic.LoadUint64(&stats.CommandsUpgraded),
		atomic.LoadUint64(&stats.CommandsStamped),
		atomic.LoadUint64(&stats.CommandsAppended),
		atomic.LoadUint64(&stats.CommandsCompressed),
		atomic.LoadUint64(&stats.CommandsPadded))
	tracelog.InfoLogger.Printf("bytes: %v in, %v out, took %v",
		atomic.LoadUint64(&stats.BytesRead),
		atomic.LoadUint64(&stats.BytesWritten),
		stats.Duration())
}
