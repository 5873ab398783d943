package lineprotocol

import (
	"fmt"
	"sort"
	"strings"

	"vici-telegraf-plugin/internal/vici"
)

const (
	measurement         = "strongswan"
	priorityMeasurement = "strongswan_priority"
)

// Format converts normalized daemon stats into InfluxDB line protocol output.
// Returns one line of totals and one line per job priority.
func Format(stats *vici.Stats, server string) string {
	var lines []string

	totals := map[string]vici.Count{
		"workers.total":    stats.Workers.Total,
		"workers.running":  stats.Workers.Running,
		"workers.idle":     stats.Workers.Idle,
		"queues":           stats.Queues,
		"scheduled":        stats.Scheduled,
		"ikesas.total":     stats.IkeSas,
		"ikesas.half-open": stats.IkeSasHalfOpen,
		"mallinfo.sbrk":    stats.Memory.NonMappedSpace,
		"mallinfo.mmap":    stats.Memory.MappedSpace,
		"mallinfo.used":    stats.Memory.Used,
		"mallinfo.free":    stats.Memory.Free,
		"plugins":          vici.Count(len(stats.Plugins)),
	}
	if !stats.RunningSince.IsZero() {
		totals["running-since"] = vici.Count(stats.RunningSince.Unix())
	}
	if line := formatLine(measurement, server, "", totals); line != "" {
		lines = append(lines, line)
	}

	// Per-priority lines, in scheduler order
	for _, p := range []struct {
		name           string
		active, queued vici.Count
	}{
		{"critical", stats.Workers.ActiveByPriority.Critical, stats.QueuesByPriority.Critical},
		{"high", stats.Workers.ActiveByPriority.High, stats.QueuesByPriority.High},
		{"medium", stats.Workers.ActiveByPriority.Medium, stats.QueuesByPriority.Medium},
		{"low", stats.Workers.ActiveByPriority.Low, stats.QueuesByPriority.Low},
	} {
		fields := map[string]vici.Count{
			"workers-active": p.active,
			"queued":         p.queued,
		}
		if line := formatLine(priorityMeasurement, server, p.name, fields); line != "" {
			lines = append(lines, line)
		}
	}

	return strings.Join(lines, "\n")
}

func formatLine(measurement, server, priority string, fields map[string]vici.Count) string {
	// Build fields with cleaned names, sorted for deterministic output.
	// NaN counters have no line protocol representation and are left out.
	fieldParts := make([]string, 0, len(fields))
	for name, value := range fields {
		if value.IsNaN() {
			continue
		}
		fieldParts = append(fieldParts, fmt.Sprintf("%s=%di", cleanFieldName(name), int64(value)))
	}
	if len(fieldParts) == 0 {
		return ""
	}
	sort.Strings(fieldParts)

	// Build tags
	tags := fmt.Sprintf("%s,server=%s", measurement, escapeTagValue(server))
	if priority != "" {
		tags += fmt.Sprintf(",priority=%s", priority)
	}

	return tags + " " + strings.Join(fieldParts, ",")
}

// cleanFieldName transforms wire key paths into InfluxDB-safe field names.
//
//	"ikesas.half-open" → "ikesas_half_open"
//	"mallinfo.sbrk"    → "mallinfo_sbrk"
//	"workers-active"   → "workers_active"
func cleanFieldName(name string) string {
	return strings.NewReplacer("-", "_", ".", "_").Replace(name)
}

// escapeTagValue escapes special characters in InfluxDB line protocol tag values.
func escapeTagValue(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, " ", `\ `)
	s = strings.ReplaceAll(s, ",", `\,`)
	s = strings.ReplaceAll(s, "=", `\=`)
	return s
}
