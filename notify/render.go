package notify

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/dustin/go-humanize/english"
	"github.com/samber/lo"

	"lol-monitor/pkg/lol"
)

const (
	dateLayout  = "Mon 02 Jan 2006, 15:04"
	shortLayout = "Mon 02 Jan 15:04"
	hourLayout  = "15:04"
)

// Render turns an event into a report. It never fails; missing data is left out.
func Render(ev lol.Event) lol.Report {
	r := render(ev)
	r.At = ev.At
	return r
}

func render(ev lol.Event) lol.Report {
	user := ev.Player.Name
	switch ev.Kind {
	case lol.MatchFinished:
		return renderMatch(ev)

	case lol.MatchForbidden:
		return lol.Report{
			Subject: fmt.Sprintf("LoL user %s match details unavailable (%s)", user, ev.MatchID),
			Heading: fmt.Sprintf("LoL user %s finished a match the API key may not read", user),
			Fields: []lol.Field{
				{Name: "Match ID", Value: ev.MatchID},
				{Name: "Timestamp", Value: ev.At.Format(dateLayout)},
			},
		}

	case lol.GameStarted:
		return renderStarted(ev)

	case lol.GameStopped:
		r := lol.Report{
			Subject: fmt.Sprintf("LoL user %s stopped playing", user),
			Heading: fmt.Sprintf("LoL user %s stopped playing", user),
		}
		if !ev.State.LastMatchStart.IsZero() {
			r.Fields = append(r.Fields, lol.Field{Name: "Last match", Value: dateRange(ev.State.LastMatchStart, ev.State.LastMatchStop, false)})
		}
		r.Fields = append(r.Fields, lol.Field{Name: "Timestamp", Value: ev.At.Format(dateLayout)})
		return r

	case lol.Error:
		errText := "unknown error"
		if ev.Err != nil {
			errText = ev.Err.Error()
		}
		return lol.Report{
			Subject: fmt.Sprintf("lol-monitor: API key error! (user: %s)", user),
			Heading: "API key might not be valid anymore",
			Fields: []lol.Field{
				{Name: "Error", Value: errText},
				{Name: "Timestamp", Value: ev.At.Format(dateLayout)},
			},
		}
	}

	return lol.Report{
		Subject: fmt.Sprintf("LoL user %s: %s", user, ev.Kind),
		Fields:  []lol.Field{{Name: "Timestamp", Value: ev.At.Format(dateLayout)}},
	}
}

// MatchReport renders a completed match, also used when listing recent matches.
func MatchReport(p lol.Player, m *lol.Match) lol.Report {
	return renderMatch(lol.Event{Kind: lol.MatchFinished, Player: p, Match: m, MatchID: m.ID})
}

func renderMatch(ev lol.Event) lol.Report {
	m := ev.Match
	user := ev.Player.Name
	if m == nil {
		return lol.Report{
			Subject: fmt.Sprintf("LoL user %s match summary (%s)", user, ev.MatchID),
			Fields:  []lol.Field{{Name: "Match ID", Value: ev.MatchID}},
		}
	}

	r := lol.Report{
		Subject: fmt.Sprintf("LoL user %s match summary (%s, %s, %s)",
			user, dateRange(m.Start, m.End, true), displayDuration(m.Duration, 1), outcome(m.Victory)),
		Heading: fmt.Sprintf("LoL user %s last match summary", user),
	}

	fields := []lol.Field{
		{Name: "Match ID", Value: m.ID},
		{Name: "Match start-end date", Value: dateRange(m.Start, m.End, false)},
		{Name: "Match duration", Value: displayDuration(m.Duration, 2)},
		{Name: "Victory", Value: strconv.FormatBool(m.Victory)},
		{Name: "Champion", Value: m.Champion},
		{Name: "Role", Value: m.Role},
		{Name: "Kills/deaths/assists", Value: fmt.Sprintf("%d/%d/%d", m.Kills, m.Deaths, m.Assists)},
		{Name: "Level", Value: strconv.Itoa(m.Level)},
		{Name: "Map", Value: m.Map},
		{Name: "Game mode", Value: m.Mode},
	}
	fields = append(fields, teamFields(m.Teams)...)
	if !ev.At.IsZero() {
		fields = append(fields, lol.Field{Name: "Timestamp", Value: ev.At.Format(dateLayout)})
	}

	r.Fields = lo.Filter(fields, func(f lol.Field, _ int) bool { return f.Value != "" })
	return r
}

func renderStarted(ev lol.Event) lol.Report {
	user := ev.Player.Name
	lastStop := ev.State.LastMatchStop
	live := ev.Live

	startedAt := ev.At
	if live != nil && !live.Start.IsZero() {
		startedAt = live.Start
	}

	r := lol.Report{
		Subject: fmt.Sprintf("LoL user %s is in game now", user),
		Heading: fmt.Sprintf("LoL user %s is in game now", user),
	}
	var fields []lol.Field
	if !lastStop.IsZero() {
		gap := since(lastStop, startedAt)
		r.Subject = fmt.Sprintf("LoL user %s is in game now (after %s - %s)", user, gap, lastStop.Format(shortLayout))
		r.Heading = fmt.Sprintf("LoL user %s is in game now (after %s)", user, gap)
		fields = append(fields, lol.Field{Name: "User played last time", Value: lastStop.Format(dateLayout)})
	}

	if live != nil {
		elapsed := "just starting ..."
		if live.Elapsed > 0 {
			elapsed = displayDuration(live.Elapsed, 2)
		}
		fields = append(fields,
			lol.Field{Name: "Match ID", Value: live.ID},
			lol.Field{Name: "Match creation date", Value: formatOptional(live.Start)},
			lol.Field{Name: "Match duration", Value: elapsed},
			lol.Field{Name: "Champion", Value: live.Champion},
			lol.Field{Name: "Game mode", Value: live.Mode},
		)
		fields = append(fields, teamFields(live.Teams)...)
	}
	fields = append(fields, lol.Field{Name: "Timestamp", Value: ev.At.Format(dateLayout)})

	r.Fields = lo.Filter(fields, func(f lol.Field, _ int) bool { return f.Value != "" })
	return r
}

func teamFields(teams []lol.Team) []lol.Field {
	return lo.Map(teams, func(t lol.Team, i int) lol.Field {
		name := t.Name
		if name == "" {
			name = "Team " + strconv.Itoa(i+1)
		}
		quoted := lo.Map(t.Players, func(p string, _ int) string { return "'" + p + "'" })
		return lol.Field{Name: name + " team", Value: strings.Join(quoted, " ")}
	})
}

func outcome(victory bool) string {
	if victory {
		return "victory"
	}
	return "defeat"
}

func formatOptional(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(dateLayout)
}

// dateRange prints start and end, collapsing the date when both fall on the same day.
func dateRange(start, end time.Time, short bool) string {
	layout := dateLayout
	if short {
		layout = shortLayout
	}
	if start.YearDay() == end.YearDay() && start.Year() == end.Year() {
		return start.Format(layout) + " - " + end.Format(hourLayout)
	}
	return start.Format(layout) + " - " + end.Format(layout)
}

// since describes the gap between two times in words, e.g. "3 hours".
func since(from, to time.Time) string {
	if !to.After(from) {
		return "a moment"
	}
	return strings.TrimSpace(humanize.CustomRelTime(from, to, "", "", gapMagnitudes))
}

var gapMagnitudes = []humanize.RelTimeMagnitude{
	{D: time.Minute, Format: "less than a minute", DivBy: time.Second},
	{D: 2 * time.Minute, Format: "1 minute", DivBy: 1},
	{D: time.Hour, Format: "%d minutes", DivBy: time.Minute},
	{D: 2 * time.Hour, Format: "1 hour", DivBy: 1},
	{D: humanize.Day, Format: "%d hours", DivBy: time.Hour},
	{D: 2 * humanize.Day, Format: "1 day", DivBy: 1},
	{D: humanize.Week, Format: "%d days", DivBy: humanize.Day},
	{D: 2 * humanize.Week, Format: "1 week", DivBy: 1},
	{D: humanize.Month, Format: "%d weeks", DivBy: humanize.Week},
	{D: 2 * humanize.Month, Format: "1 month", DivBy: 1},
	{D: humanize.Year, Format: "%d months", DivBy: humanize.Month},
	{D: 2 * humanize.Year, Format: "1 year", DivBy: 1},
	{D: humanize.LongTime, Format: "%d years", DivBy: humanize.Year},
}

// displayDuration prints at most granularity units, e.g. "1 hour, 5 minutes".
func displayDuration(d time.Duration, granularity int) string {
	units := []struct {
		name string
		size time.Duration
	}{
		{"day", 24 * time.Hour},
		{"hour", time.Hour},
		{"minute", time.Minute},
		{"second", time.Second},
	}

	var parts []string
	for _, u := range units {
		if len(parts) == granularity {
			break
		}
		n := int(d / u.size)
		if n == 0 {
			continue
		}
		d -= time.Duration(n) * u.size
		parts = append(parts, english.Plural(n, u.name, ""))
	}
	if len(parts) == 0 {
		return "0 seconds"
	}
	return strings.Join(parts, ", ")
}
