package vici

import (
	"fmt"
	"time"
)

// ByPriority holds one counter per job priority of the daemon's scheduler.
type ByPriority struct {
	Critical Count `json:"critical"`
	High     Count `json:"high"`
	Medium   Count `json:"medium"`
	Low      Count `json:"low"`
}

// Sum adds the four priorities in fixed order.
func (p ByPriority) Sum() Count {
	return SumCounts(p.Critical, p.High, p.Medium, p.Low)
}

// Workers describes the daemon's thread pool.
type Workers struct {
	Total Count `json:"total"`
	// Running is derived from ActiveByPriority and need not match Total-Idle.
	Running          Count      `json:"running"`
	Idle             Count      `json:"idle"`
	ActiveByPriority ByPriority `json:"activeByPriority"`
}

// Memory is the allocator's mallinfo block, in bytes.
type Memory struct {
	NonMappedSpace Count `json:"nonMappedSpace"` // sbrk
	MappedSpace    Count `json:"mappedSpace"`    // mmap
	Used           Count `json:"used"`
	Free           Count `json:"free"`
}

// Stats is the normalized reply to the "stats" command. Plugins is nil when
// the reply has no plugin list and empty when the list is empty.
type Stats struct {
	RunningSince     time.Time  `json:"runningSince"`
	Workers          Workers    `json:"workers"`
	Queues           Count      `json:"queues"`
	QueuesByPriority ByPriority `json:"queuesByPriority"`
	Scheduled        Count      `json:"scheduled"`
	IkeSas           Count      `json:"ikeSas"`
	IkeSasHalfOpen   Count      `json:"ikeSasHalfOpen"`
	Plugins          []string   `json:"plugins"`
	Memory           Memory     `json:"memory"`
}

// ReloadStatus is the normalized reply to "reload-settings". Error is nil
// when the daemon sent no message; a successful reload may still carry one.
type ReloadStatus struct {
	Success bool    `json:"success"`
	Error   *string `json:"error,omitempty"`
}

// IkeSaRef names the IKE_SA a log message relates to.
type IkeSaRef struct {
	Name string `json:"name"`
	ID   string `json:"id"`
}

// LogLevel is the daemon's numeric log verbosity. Values outside the named
// levels are kept as they are.
type LogLevel int64

const (
	LevelSilent      LogLevel = -1
	LevelAudit       LogLevel = 0
	LevelControl     LogLevel = 1
	LevelControlMore LogLevel = 2
	LevelRaw         LogLevel = 3
	LevelPrivate     LogLevel = 4

	// LevelUnknown is a level that could not be parsed.
	LevelUnknown = LogLevel(NaN)
)

var levelNames = map[LogLevel]string{
	LevelSilent:      "silent",
	LevelAudit:       "audit",
	LevelControl:     "control",
	LevelControlMore: "controlmore",
	LevelRaw:         "raw",
	LevelPrivate:     "private",
	LevelUnknown:     "unknown",
}

func (l LogLevel) String() string {
	if s, ok := levelNames[l]; ok {
		return s
	}
	return fmt.Sprintf("level(%d)", int64(l))
}

// MarshalJSON encodes the numeric level, with null for LevelUnknown.
func (l LogLevel) MarshalJSON() ([]byte, error) {
	return Count(l).MarshalJSON()
}

// ControlLogEvent is a "control-log" event, streamed while a command runs.
type ControlLogEvent struct {
	Group   string    `json:"group"`
	Level   LogLevel  `json:"level"`
	Message string    `json:"message"`
	IkeSa   *IkeSaRef `json:"ikeSa,omitempty"`
}

// LogEvent is a "log" event: a control-log event plus the emitting thread.
type LogEvent struct {
	ControlLogEvent
	Thread Count `json:"thread"`
}

// Version is the normalized reply to the "version" command.
type Version struct {
	Daemon  string `json:"daemon"`
	Version string `json:"version"`
	Sysname string `json:"sysname"`
	Release string `json:"release"`
	Machine string `json:"machine"`
}
