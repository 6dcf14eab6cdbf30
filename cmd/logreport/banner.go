package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/dustin/go-humanize"
	"github.com/tinytelemetry/logreport/internal/model"
)

var (
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	greenStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	cyanStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("39"))
	yellowStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("220"))
	boldStyle   = lipgloss.NewStyle().Bold(true)
)

// printRunBanner writes a short summary of a finished run.
func printRunBanner(w io.Writer, out model.Outcome) {
	check := greenStyle.Render("●")
	dot := dimStyle.Render("●")

	var lines []string
	lines = append(lines, "")

	switch out.Status {
	case model.OutcomeNoLogFound:
		lines = append(lines, fmt.Sprintf("    %s  %s", dot, dimStyle.Render("no log file found, nothing to do")))
	case model.OutcomeAlreadyReported:
		lines = append(lines, fmt.Sprintf("    %s  Report exists  %s", dot, dimStyle.Render(shortenPath(out.ReportPath))))
	case model.OutcomeGenerated:
		s := out.Summary
		lines = append(lines, boldStyle.Render("    Report generated"))
		lines = append(lines, "")
		lines = append(lines, fmt.Sprintf("    %s  Log            %s", check, cyanStyle.Render(shortenPath(s.LogPath))))
		lines = append(lines, fmt.Sprintf("    %s  Report         %s", check, cyanStyle.Render(shortenPath(s.ReportPath))))
		lines = append(lines, fmt.Sprintf("    %s  Lines          %s (%s bad, %.2f%%)", check,
			humanize.Comma(s.TotalLines), humanize.Comma(s.BadLines), s.BadPercent))
		lines = append(lines, fmt.Sprintf("    %s  URLs           %s", check, humanize.Comma(int64(s.URLCount))))
		lines = append(lines, fmt.Sprintf("    %s  Request time   %.3fs total, p50 %.3fs, p95 %.3fs, p99 %.3fs", check,
			s.TotalTime, s.P50, s.P95, s.P99))
		lines = append(lines, fmt.Sprintf("    %s  Read           %s in %s", check,
			humanize.Bytes(uint64(max(s.BytesRead, 0))), s.Elapsed.Round(time.Millisecond)))
		if s.RunID != "" {
			lines = append(lines, fmt.Sprintf("    %s  Run            %s", check, dimStyle.Render(s.RunID)))
		}
	}

	lines = append(lines, "")
	fmt.Fprintln(w, strings.Join(lines, "\n"))
}

// printStartupBanner describes the serve-mode endpoints and storage.
func printStartupBanner(w io.Writer, cfg appConfig) {
	check := greenStyle.Render("●")
	dot := dimStyle.Render("●")

	logo := cyanStyle.Bold(true).Render(`
    ╦  ╔═╗╔═╗╦═╗╔═╗╔═╗╔═╗╦═╗╔╦╗
    ║  ║ ║║ ╦╠╦╝║╣ ╠═╝║ ║╠╦╝ ║
    ╩═╝╚═╝╚═╝╩╚═╚═╝╩  ╚═╝╩╚═ ╩`)

	separator := dimStyle.Render("    ─────────────────────────────────")

	var lines []string
	lines = append(lines, "", logo, "    "+dimStyle.Render("v"+version), "", separator, "")

	lines = append(lines, boldStyle.Render("    Gateway"), "")
	lines = append(lines, fmt.Sprintf("    %s  HTTP API       %s", check, cyanStyle.Render(cfg.APIAddr)))
	if cfg.RunInterval > 0 {
		lines = append(lines, fmt.Sprintf("    %s  Scheduled run  %s", check, cyanStyle.Render("every "+cfg.RunInterval.String())))
	} else {
		lines = append(lines, fmt.Sprintf("    %s  Scheduled run  %s", dot, dimStyle.Render("disabled")))
	}
	lines = append(lines, "")

	lines = append(lines, boldStyle.Render("    Storage"), "")
	lines = append(lines, fmt.Sprintf("    %s  Logs           %s", check, dimStyle.Render(shortenPath(cfg.LogDir))))
	lines = append(lines, fmt.Sprintf("    %s  Reports        %s", check, dimStyle.Render(shortenPath(cfg.ReportDir))))
	if cfg.HistoryEnabled {
		lines = append(lines, fmt.Sprintf("    %s  History        %s", check, dimStyle.Render(shortenPath(cfg.DBPath))))
	} else {
		lines = append(lines, fmt.Sprintf("    %s  History        %s", dot, dimStyle.Render("in-memory")))
	}
	lines = append(lines, "")

	lines = append(lines, boldStyle.Render("    Config"), "")
	if cfg.ConfigPath != "" {
		lines = append(lines, fmt.Sprintf("    %s  Config File    %s", check, dimStyle.Render(shortenPath(cfg.ConfigPath))))
	} else {
		lines = append(lines, fmt.Sprintf("    %s  Config File    %s", dot, dimStyle.Render("default (no file)")))
	}

	lines = append(lines, "", separator, "")
	lines = append(lines, "    "+dimStyle.Render("Press ")+yellowStyle.Render("Ctrl+C")+dimStyle.Render(" to stop"), "")

	fmt.Fprintln(w, strings.Join(lines, "\n"))
}

// renderHistory formats recorded runs as a table, newest first.
func renderHistory(runs []model.RunSummary) string {
	if len(runs) == 0 {
		return dimStyle.Render("no runs recorded")
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(dimStyle).
		Headers("RUN", "LOG DATE", "LINES", "BAD %", "URLS", "TOTAL TIME", "P95", "WHEN")
	for _, r := range runs {
		t.Row(
			shortID(r.RunID),
			r.LogDate.Format("2006-01-02"),
			humanize.Comma(r.TotalLines),
			fmt.Sprintf("%.2f", r.BadPercent),
			humanize.Comma(int64(r.URLCount)),
			fmt.Sprintf("%.3f", r.TotalTime),
			fmt.Sprintf("%.3f", r.P95),
			humanize.Time(r.CreatedAt),
		)
	}
	return t.String()
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func shortenPath(path string) string {
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	if strings.HasPrefix(path, home) {
		return "~" + path[len(home):]
	}
	return path
}
