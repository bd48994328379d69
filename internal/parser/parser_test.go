package parser

import (
	"testing"

	"github.com/SteelMorgan/lpreserver-watcher/internal/domain"
)

func TestParseLine(t *testing.T) {
	tests := []struct {
		name   string
		line   string
		wantOK bool
		checks func(t *testing.T, e Entry)
	}{
		{
			name:   "snapshot with iso stamp",
			line:   "2024-01-01 10:00:00: Creating snapshot for tank1",
			wantOK: true,
			checks: func(t *testing.T, e Entry) {
				if e.Event.Category != domain.CategoryMessage {
					t.Errorf("expected category message, got %s", e.Event.Category)
				}
				f := e.Event.Fields
				if f[domain.FieldID] != "SNAPCREATED" {
					t.Errorf("expected id SNAPCREATED, got %q", f[domain.FieldID])
				}
				if f[domain.FieldDataset] != "tank1" {
					t.Errorf("expected dataset tank1, got %q", f[domain.FieldDataset])
				}
				if f[domain.FieldSummary] != "New Snapshot" {
					t.Errorf("expected summary New Snapshot, got %q", f[domain.FieldSummary])
				}
				if f[domain.FieldMessage] != "Creating snapshot for tank1" {
					t.Errorf("unexpected message %q", f[domain.FieldMessage])
				}
				if f[domain.FieldTimestamp] != "2024-01-01 10:00:00" {
					t.Errorf("unexpected timestamp %q", f[domain.FieldTimestamp])
				}
				if f[domain.FieldTime] != "" {
					t.Errorf("expected empty time for short stamp, got %q", f[domain.FieldTime])
				}
				if !e.Notify || e.Action != ActionNone {
					t.Errorf("expected notify without action, got notify=%v action=%s", e.Notify, e.Action)
				}
			},
		},
		{
			name:   "snapshot with date(1) stamp",
			line:   "Mon Jan  1 10:00:00 2024: Creating snapshot for tank1/usr",
			wantOK: true,
			checks: func(t *testing.T, e Entry) {
				f := e.Event.Fields
				if f[domain.FieldTimestamp] != "Mon Jan 1 10:00:00 2024" {
					t.Errorf("unexpected timestamp %q", f[domain.FieldTimestamp])
				}
				if f[domain.FieldTime] != "10:00:00" {
					t.Errorf("expected time 10:00:00, got %q", f[domain.FieldTime])
				}
				if f[domain.FieldDataset] != "tank1/usr" {
					t.Errorf("expected dataset tank1/usr, got %q", f[domain.FieldDataset])
				}
			},
		},
		{
			name:   "starting replication",
			line:   "Mon Jan  1 10:00:00 2024: Starting replication task on tank1: /var/log/lpreserver/lps-tank1.log",
			wantOK: true,
			checks: func(t *testing.T, e Entry) {
				if e.Event.Category != domain.CategoryRunning {
					t.Errorf("expected category running, got %s", e.Event.Category)
				}
				if e.Action != ActionStartProgress {
					t.Errorf("expected start_progress, got %s", e.Action)
				}
				if e.ProgressFile != "/var/log/lpreserver/lps-tank1.log" {
					t.Errorf("unexpected progress file %q", e.ProgressFile)
				}
				if e.Notify {
					t.Error("starting replication must not notify on its own")
				}
				if _, ok := e.Event.Fields[domain.FieldDataset]; ok {
					t.Error("dataset must be deferred to progress updates")
				}
				if _, ok := e.Event.Fields[domain.FieldMessage]; ok {
					t.Error("message must be deferred to progress updates")
				}
				if e.Event.Fields[domain.FieldSummary] != "Replication Started" {
					t.Errorf("unexpected summary %q", e.Event.Fields[domain.FieldSummary])
				}
			},
		},
		{
			name:   "finished replication",
			line:   "Mon Jan  1 11:00:00 2024: Finished replication task on tank1",
			wantOK: true,
			checks: func(t *testing.T, e Entry) {
				f := e.Event.Fields
				if f[domain.FieldID] != "REPFINISHED" || f[domain.FieldDataset] != "tank1" {
					t.Errorf("unexpected fields %v", f)
				}
				if f[domain.FieldMessage] != "Finished replication for tank1" {
					t.Errorf("unexpected message %q", f[domain.FieldMessage])
				}
				if e.Action != ActionStopProgress || !e.Notify {
					t.Errorf("expected stop_progress with notify, got %s notify=%v", e.Action, e.Notify)
				}
			},
		},
		{
			name:   "failed replication",
			line:   "Mon Jan  1 11:00:00 2024: FAILED replication task on tank1: LOGFILE: /var/log/lpreserver/lps-tank1.err",
			wantOK: true,
			checks: func(t *testing.T, e Entry) {
				f := e.Event.Fields
				if f[domain.FieldID] != "REPERROR" || f[domain.FieldDataset] != "tank1" {
					t.Errorf("unexpected fields %v", f)
				}
				want := "Replication Failed for tank1\nLogfile available at: /var/log/lpreserver/lps-tank1.err"
				if f[domain.FieldMessage] != want {
					t.Errorf("message = %q, want %q", f[domain.FieldMessage], want)
				}
				if e.Action != ActionStopProgress {
					t.Errorf("expected stop_progress, got %s", e.Action)
				}
			},
		},
		{
			name:   "case insensitive match",
			line:   "2024-01-01 10:00:00: CREATING SNAPSHOT for Tank1",
			wantOK: true,
			checks: func(t *testing.T, e Entry) {
				if e.Event.Fields[domain.FieldDataset] != "Tank1" {
					t.Errorf("dataset case must be preserved, got %q", e.Event.Fields[domain.FieldDataset])
				}
			},
		},
		{
			name:   "snapshot wins over later keywords",
			line:   "2024-01-01 10:00:00: creating snapshot before starting replication tank1",
			wantOK: true,
			checks: func(t *testing.T, e Entry) {
				if e.Event.Fields[domain.FieldID] != "SNAPCREATED" {
					t.Errorf("expected first pattern to win, got %q", e.Event.Fields[domain.FieldID])
				}
			},
		},
		{
			name:   "unrelated line",
			line:   "2024-01-01 10:00:00: Pruning old snapshot tank1@auto-2023",
			wantOK: false,
		},
		{
			name:   "keyword outside message section",
			line:   "creating snapshot tank1",
			wantOK: false,
		},
		{
			name:   "empty line",
			line:   "",
			wantOK: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entry, ok := ParseLine(tt.line)
			if ok != tt.wantOK {
				t.Fatalf("ParseLine() ok = %v, want %v", ok, tt.wantOK)
			}
			if ok && tt.checks != nil {
				tt.checks(t, entry)
			}
		})
	}
}
