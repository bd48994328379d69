// Package progress follows the output of a running zfs send job and turns it
// into replication status updates.
package progress

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/SteelMorgan/lpreserver-watcher/internal/sizeunit"
)

const (
	totalMarker  = "total estimated size"
	unknownTotal = "??"
)

// Update is the replication status derived from one batch of progress lines
type Update struct {
	Dataset     string
	Transferred string  // raw size token, e.g. "512K"
	Total       string  // raw size token or "??"
	Percent     float64 // valid only when HasPercent
	HasPercent  bool
	Message     string
}

// Tracker holds the state of one replication watch. The zero value is ready
// to use.
type Tracker struct {
	total    string // raw token, empty until observed
	lastSize string // transferred token of the last emitted update
}

// unchanged reports whether transferred is the size of the last update.
// Sizes compare in K when both parse, so "512K" and "0.5M" are equal.
func (t *Tracker) unchanged(transferred string) bool {
	if t.lastSize == "" {
		return transferred == ""
	}
	cur, okCur := sizeunit.ToK(transferred)
	last, okLast := sizeunit.ToK(t.lastSize)
	if okCur && okLast {
		return cur == last
	}
	return transferred == t.lastSize
}

// Consume processes the unread lines of a progress file. It returns false when
// the batch carries no new progress.
func (t *Tracker) Consume(lines []string) (Update, bool) {
	var stat string
	for _, line := range lines {
		switch {
		case strings.Contains(line, totalMarker):
			t.total = lastToken(line)
		case strings.HasPrefix(line, "send from "), strings.HasPrefix(line, "TIME "):
			// metadata, not progress
		case strings.TrimSpace(line) == "":
		default:
			stat = line
		}
	}
	if stat == "" {
		return Update{}, false
	}

	tokens := strings.Fields(strings.ReplaceAll(stat, "\t", " "))
	transferred := token(tokens, 1)
	dataset, _, _ := strings.Cut(token(tokens, 2), "/")

	if t.unchanged(transferred) {
		log.Debug().
			Str("transferred", transferred).
			Msg("Replication progress unchanged, skipping update")
		return Update{}, false
	}

	u := Update{
		Dataset:     dataset,
		Transferred: transferred,
		Total:       t.total,
	}
	if t.total != "" {
		totK, okTot := sizeunit.ToK(t.total)
		curK, okCur := sizeunit.ToK(transferred)
		if okTot && okCur && totK > 0 {
			u.Percent = curK * 100 / totK
			u.HasPercent = true
		}
		log.Debug().
			Str("transferred", sizeunit.FormatK(curK)).
			Str("total", sizeunit.FormatK(totK)).
			Msg("Replication progress")
	} else {
		u.Total = unknownTotal
	}

	status := u.Transferred + "/" + u.Total
	if u.HasPercent {
		status += " (" + FormatPercent(u.Percent) + ")"
	}
	u.Message = fmt.Sprintf("Replicating %s: %s", dataset, status)

	t.lastSize = transferred
	return u, true
}

// Reset forgets the total and last observed size
func (t *Tracker) Reset() {
	t.total = ""
	t.lastSize = ""
}

// Total returns the raw total size token, empty if not yet observed
func (t *Tracker) Total() string { return t.total }

// LastSize returns the transferred token of the last emitted update
func (t *Tracker) LastSize() string { return t.lastSize }

// FormatPercent renders a percentage with one decimal place
func FormatPercent(p float64) string {
	return strconv.FormatFloat(p, 'f', 1, 64) + "%"
}

func token(tokens []string, i int) string {
	if i < len(tokens) {
		return tokens[i]
	}
	return ""
}

func lastToken(s string) string {
	tokens := strings.Fields(s)
	if len(tokens) == 0 {
		return ""
	}
	return tokens[len(tokens)-1]
}
