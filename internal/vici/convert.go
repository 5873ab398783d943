package vici

import (
	"errors"
	"strings"
	"time"
)

// sinceLayouts are the forms "uptime.since" is printed in. The daemon uses
// its %T printf hook, which appends " UTC" only for UTC times.
var sinceLayouts = []string{
	"Jan _2 15:04:05 2006",
	"Jan _2 15:04:05 MST 2006",
	time.ANSIC,
	time.RFC3339Nano,
}

// ConvertByPriority reads the critical/high/medium/low counters of rec.
func ConvertByPriority(rec Record) (ByPriority, error) {
	var (
		p   ByPriority
		err error
	)
	if p.Critical, err = rec.count("critical"); err != nil {
		return ByPriority{}, err
	}
	if p.High, err = rec.count("high"); err != nil {
		return ByPriority{}, err
	}
	if p.Medium, err = rec.count("medium"); err != nil {
		return ByPriority{}, err
	}
	if p.Low, err = rec.count("low"); err != nil {
		return ByPriority{}, err
	}
	return p, nil
}

func priorities(rec Record, keys ...string) (ByPriority, error) {
	section, err := rec.Section(keys...)
	if err != nil {
		return ByPriority{}, err
	}
	p, err := ConvertByPriority(section)
	if err != nil {
		var re *RecordError
		if errors.As(err, &re) {
			re.Path = strings.Join(keys, ".") + "." + re.Path
		}
		return ByPriority{}, err
	}
	return p, nil
}

type countField struct {
	dst  *Count
	path []string
}

// ConvertStats normalizes a "stats" reply. Zone-less timestamps are read as UTC.
func ConvertStats(rec Record) (*Stats, error) {
	return ConvertStatsIn(rec, time.UTC)
}

// ConvertStatsIn is ConvertStats with zone-less timestamps read in loc.
func ConvertStatsIn(rec Record, loc *time.Location) (*Stats, error) {
	active, err := priorities(rec, "workers", "active")
	if err != nil {
		return nil, err
	}
	queued, err := priorities(rec, "queues")
	if err != nil {
		return nil, err
	}

	stats := &Stats{
		Workers: Workers{
			Running:          active.Sum(),
			ActiveByPriority: active,
		},
		Queues:           queued.Sum(),
		QueuesByPriority: queued,
	}
	for _, f := range []countField{
		{&stats.Workers.Total, []string{"workers", "total"}},
		{&stats.Workers.Idle, []string{"workers", "idle"}},
		{&stats.Scheduled, []string{"scheduled"}},
		{&stats.IkeSas, []string{"ikesas", "total"}},
		{&stats.IkeSasHalfOpen, []string{"ikesas", "half-open"}},
		{&stats.Memory.NonMappedSpace, []string{"mallinfo", "sbrk"}},
		{&stats.Memory.MappedSpace, []string{"mallinfo", "mmap"}},
		{&stats.Memory.Used, []string{"mallinfo", "used"}},
		{&stats.Memory.Free, []string{"mallinfo", "free"}},
	} {
		if *f.dst, err = rec.count(f.path...); err != nil {
			return nil, err
		}
	}

	if stats.RunningSince, err = runningSince(rec, loc); err != nil {
		return nil, err
	}
	if stats.Plugins, err = rec.List("plugins"); err != nil {
		return nil, err
	}
	return stats, nil
}

func runningSince(rec Record, loc *time.Location) (time.Time, error) {
	s, err := rec.Str("uptime", "since")
	if err != nil {
		return time.Time{}, err
	}
	if loc == nil {
		loc = time.UTC
	}
	for _, layout := range sinceLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, &RecordError{Path: "uptime.since", Err: ErrUnparseableTimestamp}
}

// ConvertReloadSettings normalizes a "reload-settings" reply. Anything but
// success "yes", including an absent key, is a failure. A message that is
// present but not a string is malformed rather than dropped.
func ConvertReloadSettings(rec Record) (ReloadStatus, error) {
	success, _ := rec.OptStr("success")
	status := ReloadStatus{Success: success == "yes"}
	if v, ok := rec["errmsg"]; ok && v != nil {
		msg, ok := v.(string)
		if !ok {
			return ReloadStatus{}, malformed([]string{"errmsg"}, "expected string, got %T", v)
		}
		if msg != "" {
			status.Error = &msg
		}
	}
	return status, nil
}

// ConvertControlLog normalizes a "control-log" event. The IKE_SA reference is
// attached only when "ikesa-name" is set; "ikesa-uniqued" alone is ignored.
func ConvertControlLog(rec Record) (ControlLogEvent, error) {
	var (
		ev  ControlLogEvent
		err error
	)
	if ev.Group, err = rec.Str("group"); err != nil {
		return ControlLogEvent{}, err
	}
	level, err := rec.count("level")
	if err != nil {
		return ControlLogEvent{}, err
	}
	ev.Level = LogLevel(level)
	if ev.Message, err = rec.Str("msg"); err != nil {
		return ControlLogEvent{}, err
	}

	if name, _ := rec.OptStr("ikesa-name"); name != "" {
		id, _ := rec.OptStr("ikesa-uniqued")
		ev.IkeSa = &IkeSaRef{Name: name, ID: id}
	}
	return ev, nil
}

// ConvertLog normalizes a "log" event.
func ConvertLog(rec Record) (LogEvent, error) {
	base, err := ConvertControlLog(rec)
	if err != nil {
		return LogEvent{}, err
	}
	thread, err := rec.count("thread")
	if err != nil {
		return LogEvent{}, err
	}
	return LogEvent{ControlLogEvent: base, Thread: thread}, nil
}

// ConvertVersion normalizes a "version" reply.
func ConvertVersion(rec Record) (Version, error) {
	var v Version
	for _, f := range []struct {
		dst *string
		key string
	}{
		{&v.Daemon, "daemon"},
		{&v.Version, "version"},
		{&v.Sysname, "sysname"},
		{&v.Release, "release"},
		{&v.Machine, "machine"},
	} {
		s, err := rec.Str(f.key)
		if err != nil {
			return Version{}, err
		}
		*f.dst = s
	}
	return v, nil
}
