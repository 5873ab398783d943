package vici

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// statsRecord is a real-shaped "stats" reply as decoded from the wire.
func statsRecord() Record {
	return Record{
		"uptime": map[string]any{
			"running": "2 days, 01:02:03",
			"since":   "Mar 05 10:23:45 2024",
		},
		"workers": map[string]any{
			"total": "10",
			"idle":  "7",
			"active": map[string]any{
				"critical": "2",
				"high":     "0",
				"medium":   "1",
				"low":      "0",
			},
		},
		"queues": map[string]any{
			"critical": "0",
			"high":     "4",
			"medium":   "1",
			"low":      "3",
		},
		"scheduled": "6",
		"ikesas": map[string]any{
			"total":     "12",
			"half-open": "2",
		},
		"plugins": []any{"charon", "aes", "sha2", "vici"},
		"mallinfo": map[string]any{
			"sbrk": "1024",
			"mmap": "2048",
			"used": "900",
			"free": "124",
		},
	}
}

func section(rec Record, key string) map[string]any {
	return rec[key].(map[string]any)
}

func TestConvertByPriority(t *testing.T) {
	p, err := ConvertByPriority(Record{"low": "4", "critical": "1", "medium": "3", "high": "2"})
	require.NoError(t, err)
	assert.Equal(t, ByPriority{Critical: 1, High: 2, Medium: 3, Low: 4}, p)
	assert.Equal(t, Count(10), p.Sum())

	_, err = ConvertByPriority(Record{"critical": "1", "high": "2", "medium": "3"})
	assert.ErrorIs(t, err, ErrMalformedRecord)
}

func TestConvertStats(t *testing.T) {
	stats, err := ConvertStats(statsRecord())
	require.NoError(t, err)

	assert.True(t, stats.RunningSince.Equal(time.Date(2024, time.March, 5, 10, 23, 45, 0, time.UTC)))
	assert.Equal(t, Workers{
		Total:            10,
		Running:          3,
		Idle:             7,
		ActiveByPriority: ByPriority{Critical: 2, High: 0, Medium: 1, Low: 0},
	}, stats.Workers)
	assert.Equal(t, ByPriority{Critical: 0, High: 4, Medium: 1, Low: 3}, stats.QueuesByPriority)
	assert.Equal(t, Count(8), stats.Queues)
	assert.Equal(t, Count(6), stats.Scheduled)
	assert.Equal(t, Count(12), stats.IkeSas)
	assert.Equal(t, Count(2), stats.IkeSasHalfOpen)
	assert.Equal(t, []string{"charon", "aes", "sha2", "vici"}, stats.Plugins)
	assert.Equal(t, Memory{NonMappedSpace: 1024, MappedSpace: 2048, Used: 900, Free: 124}, stats.Memory)
}

func TestConvertStats_RunningIndependentOfTotal(t *testing.T) {
	rec := statsRecord()
	w := section(rec, "workers")
	w["total"] = "50"
	w["idle"] = "1"

	stats, err := ConvertStats(rec)
	require.NoError(t, err)
	assert.Equal(t, Count(50), stats.Workers.Total)
	assert.Equal(t, Count(1), stats.Workers.Idle)
	assert.Equal(t, Count(3), stats.Workers.Running)
}

func TestConvertStats_NaNPropagates(t *testing.T) {
	rec := statsRecord()
	section(rec, "queues")["medium"] = "n/a"
	section(rec, "mallinfo")["free"] = ""

	stats, err := ConvertStats(rec)
	require.NoError(t, err)
	assert.True(t, stats.QueuesByPriority.Medium.IsNaN())
	assert.True(t, stats.Queues.IsNaN())
	assert.True(t, stats.Memory.Free.IsNaN())
	assert.Equal(t, Count(3), stats.Workers.Running)
	assert.Equal(t, Count(900), stats.Memory.Used)
}

func TestConvertStats_Malformed(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(Record)
		path   string
	}{
		{"missing mallinfo", func(r Record) { delete(r, "mallinfo") }, "mallinfo"},
		{"missing active priority", func(r Record) { delete(section(r, "workers")["active"].(map[string]any), "high") }, "workers.active.high"},
		{"missing queue priority", func(r Record) { delete(section(r, "queues"), "low") }, "queues.low"},
		{"missing half-open", func(r Record) { delete(section(r, "ikesas"), "half-open") }, "ikesas.half-open"},
		{"missing scheduled", func(r Record) { delete(r, "scheduled") }, "scheduled"},
		{"missing uptime", func(r Record) { delete(r, "uptime") }, "uptime"},
		{"workers not a section", func(r Record) { r["workers"] = "10" }, "workers"},
		{"numeric leaf", func(r Record) { section(r, "ikesas")["total"] = 12 }, "ikesas.total"},
		{"plugin not a string", func(r Record) { r["plugins"] = []any{"charon", 1} }, "plugins.1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := statsRecord()
			tt.mutate(rec)
			stats, err := ConvertStats(rec)
			assert.Nil(t, stats)
			require.ErrorIs(t, err, ErrMalformedRecord)
			var re *RecordError
			require.True(t, errors.As(err, &re))
			assert.Equal(t, tt.path, re.Path)
		})
	}
}

func TestConvertStats_Timestamp(t *testing.T) {
	tests := []struct {
		since string
		want  time.Time
	}{
		{"Mar 05 10:23:45 2024", time.Date(2024, time.March, 5, 10, 23, 45, 0, time.UTC)},
		{"Mar  5 10:23:45 2024", time.Date(2024, time.March, 5, 10, 23, 45, 0, time.UTC)},
		{"Nov 30 23:59:59 UTC 2023", time.Date(2023, time.November, 30, 23, 59, 59, 0, time.UTC)},
		{"Tue Mar  5 10:23:45 2024", time.Date(2024, time.March, 5, 10, 23, 45, 0, time.UTC)},
		{"2024-03-05T10:23:45+02:00", time.Date(2024, time.March, 5, 8, 23, 45, 0, time.UTC)},
	}

	for _, tt := range tests {
		t.Run(tt.since, func(t *testing.T) {
			rec := statsRecord()
			section(rec, "uptime")["since"] = tt.since
			stats, err := ConvertStats(rec)
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(stats.RunningSince), "got %s", stats.RunningSince)
		})
	}

	t.Run("location", func(t *testing.T) {
		loc := time.FixedZone("CET", 3600)
		stats, err := ConvertStatsIn(statsRecord(), loc)
		require.NoError(t, err)
		assert.True(t, time.Date(2024, time.March, 5, 9, 23, 45, 0, time.UTC).Equal(stats.RunningSince))
	})

	t.Run("unparseable", func(t *testing.T) {
		rec := statsRecord()
		section(rec, "uptime")["since"] = "yesterday"
		_, err := ConvertStats(rec)
		require.ErrorIs(t, err, ErrUnparseableTimestamp)
		assert.NotErrorIs(t, err, ErrMalformedRecord)
	})
}

func TestConvertStats_NoPlugins(t *testing.T) {
	rec := statsRecord()
	delete(rec, "plugins")
	stats, err := ConvertStats(rec)
	require.NoError(t, err)
	assert.Nil(t, stats.Plugins)
}

func TestConvertStats_PluginsJSON(t *testing.T) {
	rec := statsRecord()
	rec["plugins"] = []any{}
	stats, err := ConvertStats(rec)
	require.NoError(t, err)
	b, err := json.Marshal(stats)
	require.NoError(t, err)
	assert.Contains(t, string(b), `"plugins":[]`)

	delete(rec, "plugins")
	stats, err = ConvertStats(rec)
	require.NoError(t, err)
	b, err = json.Marshal(stats)
	require.NoError(t, err)
	assert.Contains(t, string(b), `"plugins":null`)
}

func TestConvertStats_Deterministic(t *testing.T) {
	rec := statsRecord()
	a, err := ConvertStats(rec)
	require.NoError(t, err)
	b, err := ConvertStats(rec)
	require.NoError(t, err)

	if diff := cmp.Diff(a, b); diff != "" {
		t.Fatalf("conversions differ (-first +second):\n%s", diff)
	}
	a.Plugins[0] = "mutated"
	assert.Equal(t, "charon", b.Plugins[0])
	assert.Equal(t, "charon", rec["plugins"].([]any)[0])
}

func TestConvertReloadSettings(t *testing.T) {
	busy := "busy"
	advisory := "loaded with warnings"

	tests := []struct {
		name string
		rec  Record
		want ReloadStatus
	}{
		{"success", Record{"success": "yes"}, ReloadStatus{Success: true}},
		{"failure with message", Record{"success": "no", "errmsg": "busy"}, ReloadStatus{Success: false, Error: &busy}},
		{"success with advisory", Record{"success": "yes", "errmsg": advisory}, ReloadStatus{Success: true, Error: &advisory}},
		{"empty message omitted", Record{"success": "no", "errmsg": ""}, ReloadStatus{Success: false}},
		{"absent success", Record{}, ReloadStatus{Success: false}},
		{"case sensitive", Record{"success": "YES"}, ReloadStatus{Success: false}},
		{"not trimmed", Record{"success": "yes "}, ReloadStatus{Success: false}},
		{"null message", Record{"success": "yes", "errmsg": nil}, ReloadStatus{Success: true}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ConvertReloadSettings(tt.rec)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	t.Run("non-string message", func(t *testing.T) {
		_, err := ConvertReloadSettings(Record{"success": "yes", "errmsg": 404})
		require.ErrorIs(t, err, ErrMalformedRecord)
		var re *RecordError
		require.True(t, errors.As(err, &re))
		assert.Equal(t, "errmsg", re.Path)
	})
}

func TestConvertControlLog(t *testing.T) {
	t.Run("no IKE_SA despite unique id", func(t *testing.T) {
		ev, err := ConvertControlLog(Record{
			"group":         "IKE",
			"level":         "2",
			"ikesa-name":    "",
			"ikesa-uniqued": "99",
			"msg":           "hello",
		})
		require.NoError(t, err)
		assert.Equal(t, ControlLogEvent{Group: "IKE", Level: LevelControlMore, Message: "hello"}, ev)
	})

	t.Run("IKE_SA attached", func(t *testing.T) {
		ev, err := ConvertControlLog(Record{
			"group":         "CFG",
			"level":         "1",
			"ikesa-name":    "gw-gw",
			"ikesa-uniqued": "",
			"msg":           "installing",
		})
		require.NoError(t, err)
		require.NotNil(t, ev.IkeSa)
		assert.Equal(t, IkeSaRef{Name: "gw-gw", ID: ""}, *ev.IkeSa)
	})

	t.Run("IKE_SA keys absent", func(t *testing.T) {
		ev, err := ConvertControlLog(Record{"group": "DMN", "level": "0", "msg": "starting"})
		require.NoError(t, err)
		assert.Nil(t, ev.IkeSa)
	})

	t.Run("verbatim fields and open level", func(t *testing.T) {
		ev, err := ConvertControlLog(Record{"group": " ike ", "level": "17", "msg": "  x  "})
		require.NoError(t, err)
		assert.Equal(t, " ike ", ev.Group)
		assert.Equal(t, "  x  ", ev.Message)
		assert.Equal(t, LogLevel(17), ev.Level)
		assert.Equal(t, "level(17)", ev.Level.String())
	})

	t.Run("unparseable level", func(t *testing.T) {
		ev, err := ConvertControlLog(Record{"group": "IKE", "level": "high", "msg": "m"})
		require.NoError(t, err)
		assert.Equal(t, LevelUnknown, ev.Level)
	})

	t.Run("missing msg", func(t *testing.T) {
		_, err := ConvertControlLog(Record{"group": "IKE", "level": "1"})
		assert.ErrorIs(t, err, ErrMalformedRecord)
	})
}

func TestConvertLog(t *testing.T) {
	rec := Record{
		"group":         "IKE",
		"level":         "2",
		"ikesa-name":    "",
		"ikesa-uniqued": "99",
		"msg":           "hello",
		"thread":        "4",
	}

	ev, err := ConvertLog(rec)
	require.NoError(t, err)
	assert.Equal(t, Count(4), ev.Thread)

	base, err := ConvertControlLog(rec)
	require.NoError(t, err)
	if diff := cmp.Diff(base, ev.ControlLogEvent); diff != "" {
		t.Errorf("log event base differs from control-log conversion (-want +got):\n%s", diff)
	}

	withSA := Record{"group": "NET", "level": "3", "ikesa-name": "home", "ikesa-uniqued": "7", "msg": "sending", "thread": "11"}
	ev, err = ConvertLog(withSA)
	require.NoError(t, err)
	assert.Equal(t, LogEvent{
		ControlLogEvent: ControlLogEvent{Group: "NET", Level: LevelRaw, Message: "sending", IkeSa: &IkeSaRef{Name: "home", ID: "7"}},
		Thread:          11,
	}, ev)

	delete(rec, "thread")
	_, err = ConvertLog(rec)
	assert.ErrorIs(t, err, ErrMalformedRecord)
}

func TestConvertVersion(t *testing.T) {
	rec := Record{
		"daemon":  "charon",
		"version": "5.9.13",
		"sysname": "Linux",
		"release": "6.1.0",
		"machine": "x86_64",
	}
	v, err := ConvertVersion(rec)
	require.NoError(t, err)
	assert.Equal(t, Version{Daemon: "charon", Version: "5.9.13", Sysname: "Linux", Release: "6.1.0", Machine: "x86_64"}, v)

	delete(rec, "machine")
	_, err = ConvertVersion(rec)
	assert.ErrorIs(t, err, ErrMalformedRecord)
}
