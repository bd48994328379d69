// Package parser classifies lpreserver daemon log lines into status events.
//
// A daemon log line looks like
//
//	Mon Jan  1 10:00:00 2024: Starting replication task on tank1: /var/log/lpreserver/lps-tank1.log
//
// Splitting on ':' gives the stamp in fields 0-2, the message in field 3 and
// an optional argument (dataset or progress file) in field 4.
package parser

import (
	"fmt"
	"strings"

	"github.com/SteelMorgan/lpreserver-watcher/internal/domain"
)

// Action tells the dispatcher what to do with the progress watch
type Action int

const (
	ActionNone Action = iota
	ActionStartProgress
	ActionStopProgress
)

// String returns a readable name for logs
func (a Action) String() string {
	switch a {
	case ActionStartProgress:
		return "start_progress"
	case ActionStopProgress:
		return "stop_progress"
	default:
		return "none"
	}
}

// Entry is the result of parsing one line
type Entry struct {
	Event        domain.StatusEvent
	Action       Action
	ProgressFile string // set for ActionStartProgress
	Notify       bool   // false when a later progress update announces the event
}

const logFileMarker = "LOGFILE:"

// ParseLine classifies a single daemon log line. Lines that match no known
// pattern return false.
func ParseLine(line string) (Entry, bool) {
	sections := strings.Split(line, ":")

	stamp := simplify(strings.Join(sections[:min(3, len(sections))], ":"))
	clock := ""
	if tokens := strings.Fields(stamp); len(tokens) > 3 {
		clock = tokens[3]
	}

	message := simplify(section(sections, 3))
	lower := strings.ToLower(message)
	dataset := lastToken(message)

	fields := domain.Fields{
		domain.FieldTimestamp: stamp,
		domain.FieldTime:      clock,
	}

	switch {
	case strings.Contains(lower, "creating snapshot"):
		fields[domain.FieldID] = domain.StatusSnapshotCreated
		fields[domain.FieldDataset] = dataset
		fields[domain.FieldSummary] = "New Snapshot"
		fields[domain.FieldMessage] = fmt.Sprintf("Creating snapshot for %s", dataset)
		return Entry{
			Event:  domain.StatusEvent{Category: domain.CategoryMessage, Fields: fields},
			Notify: true,
		}, true

	case strings.Contains(lower, "starting replication"):
		// dataset and message arrive with the first progress update
		fields[domain.FieldID] = domain.StatusReplicationStarted
		fields[domain.FieldSummary] = "Replication Started"
		return Entry{
			Event:        domain.StatusEvent{Category: domain.CategoryRunning, Fields: fields},
			Action:       ActionStartProgress,
			ProgressFile: simplify(section(sections, 4)),
		}, true

	case strings.Contains(lower, "finished replication"):
		fields[domain.FieldID] = domain.StatusReplicationFinished
		fields[domain.FieldDataset] = dataset
		fields[domain.FieldSummary] = "Finished Replication"
		fields[domain.FieldMessage] = fmt.Sprintf("Finished replication for %s", dataset)
		return Entry{
			Event:  domain.StatusEvent{Category: domain.CategoryRunning, Fields: fields},
			Action: ActionStopProgress,
			Notify: true,
		}, true

	case strings.Contains(lower, "failed replication"):
		logFile := ""
		if parts := strings.Split(line, logFileMarker); len(parts) > 1 {
			logFile = simplify(parts[1])
		}
		fields[domain.FieldID] = domain.StatusReplicationError
		fields[domain.FieldDataset] = dataset
		fields[domain.FieldSummary] = "Replication Failed"
		fields[domain.FieldMessage] = fmt.Sprintf("Replication Failed for %s\nLogfile available at: %s", dataset, logFile)
		return Entry{
			Event:  domain.StatusEvent{Category: domain.CategoryRunning, Fields: fields},
			Action: ActionStopProgress,
			Notify: true,
		}, true
	}

	return Entry{}, false
}

func section(sections []string, i int) string {
	if i < len(sections) {
		return sections[i]
	}
	return ""
}

// simplify trims and collapses internal whitespace runs to one space
func simplify(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func lastToken(s string) string {
	tokens := strings.Fields(s)
	if len(tokens) == 0 {
		return ""
	}
	return tokens[len(tokens)-1]
}
