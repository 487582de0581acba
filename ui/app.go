// Package ui implements the interactive terminal dashboard: a live table of
// per-host WAN traffic rates, refreshed from the collectors once a second.
package ui

import (
	"context"
	"fmt"
	"net/netip"
	"sort"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/untoldwind/nftracker/conntrack"
	"github.com/untoldwind/nftracker/device"
	"github.com/untoldwind/nftracker/leases"
	"github.com/untoldwind/nftracker/traffic"
)

type tickMsg time.Time

// collectMsg carries one refresh of the display data, assembled off the UI
// goroutine from the collectors' snapshots.
type collectMsg struct {
	wanIn  traffic.Rate
	wanOut traffic.Rate
	rows   []hostRow
}

// hostRow is one local host's aggregate: the newest in/out rate summed over
// all its remotes.
type hostRow struct {
	local   netip.Addr
	name    string
	remotes int
	in      traffic.Rate
	out     traffic.Rate
}

// Model is the bubbletea model.
type Model struct {
	conntrack *conntrack.Collector
	device    *device.Collector
	leases    *leases.Collector
	interval  time.Duration

	width  int
	height int
	scroll int
	paused bool

	wanIn  traffic.Rate
	wanOut traffic.Rate
	rows   []hostRow
}

// NewModel creates the TUI model reading from the given collectors.
func NewModel(ct *conntrack.Collector, dev *device.Collector, ls *leases.Collector, interval time.Duration) Model {
	return Model{
		conntrack: ct,
		device:    dev,
		leases:    ls,
		interval:  interval,
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(tick(m.interval), collectOnce(m.conntrack, m.device, m.leases))
}

func tick(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(t time.Time) tea.Msg { return tickMsg(t) })
}

// latestRate returns the newest sample of a rate series, or zero when fewer
// than two counters have been recorded yet.
func latestRate(rates []traffic.Rate) traffic.Rate {
	if len(rates) == 0 {
		return traffic.Rate{}
	}
	return rates[len(rates)-1]
}

func collectOnce(ct *conntrack.Collector, dev *device.Collector, ls *leases.Collector) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()

		var msg collectMsg

		if tr := dev.Snapshot(ctx); tr != nil {
			_, inRates := tr.SnapshotInRates()
			_, outRates := tr.SnapshotOutRates()
			msg.wanIn = latestRate(inRates)
			msg.wanOut = latestRate(outRates)
		}

		table := ct.Snapshot(ctx)
		if table == nil {
			return msg
		}
		leaseMap := ls.Snapshot(ctx)

		for _, local := range table.Locals() {
			row := hostRow{local: local}
			if lease, ok := leaseMap[local]; ok && lease.Name != "*" {
				row.name = lease.Name
			}
			for _, tr := range table.Remotes(local) {
				row.remotes++
				_, inRates := tr.SnapshotInRates()
				_, outRates := tr.SnapshotOutRates()
				in := latestRate(inRates)
				out := latestRate(outRates)
				row.in.BytesPerSec += in.BytesPerSec
				row.in.PacketsPerSec += in.PacketsPerSec
				row.out.BytesPerSec += out.BytesPerSec
				row.out.PacketsPerSec += out.PacketsPerSec
			}
			msg.rows = append(msg.rows, row)
		}
		sort.Slice(msg.rows, func(i, j int) bool { return msg.rows[i].local.Less(msg.rows[j].local) })

		return msg
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "a":
			m.paused = !m.paused
			if !m.paused {
				return m, tea.Batch(tick(m.interval), collectOnce(m.conntrack, m.device, m.leases))
			}
		case "j", "down":
			if m.scroll < len(m.rows)-1 {
				m.scroll++
			}
		case "k", "up":
			if m.scroll > 0 {
				m.scroll--
			}
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case tickMsg:
		if m.paused {
			return m, nil
		}
		return m, tea.Batch(tick(m.interval), collectOnce(m.conntrack, m.device, m.leases))

	case collectMsg:
		m.wanIn = msg.wanIn
		m.wanOut = msg.wanOut
		m.rows = msg.rows
		if m.scroll >= len(m.rows) && m.scroll > 0 {
			m.scroll = len(m.rows) - 1
		}
	}

	return m, nil
}

func formatRate(r traffic.Rate) string {
	return fmt.Sprintf("%s/s %s pkt/s", humanize.Bytes(r.BytesPerSec), humanize.Comma(int64(r.PacketsPerSec)))
}

func (m Model) View() string {
	var b strings.Builder

	title := titleStyle.Render("nftracker")
	status := ""
	if m.paused {
		status = labelStyle.Render("  [paused]")
	}
	b.WriteString(title + status + "\n")

	wan := fmt.Sprintf("%s %s   %s %s",
		labelStyle.Render("WAN in:"), rateStyle.Render(formatRate(m.wanIn)),
		labelStyle.Render("out:"), rateStyle.Render(formatRate(m.wanOut)))
	b.WriteString(panelStyle.Render(wan) + "\n")

	header := fmt.Sprintf("%-18s %-16s %7s %22s %22s", "LOCAL", "HOST", "REMOTES", "IN", "OUT")
	b.WriteString(headerStyle.Render(header) + "\n")

	visible := m.height - 8
	if visible < 1 {
		visible = len(m.rows)
	}
	for i, row := range m.rows {
		if i < m.scroll || i >= m.scroll+visible {
			continue
		}
		line := fmt.Sprintf("%-18s %-16s %7d %22s %22s",
			row.local, row.name, row.remotes, formatRate(row.in), formatRate(row.out))
		b.WriteString(valueStyle.Render(line) + "\n")
	}
	if len(m.rows) == 0 {
		b.WriteString(labelStyle.Render("no local hosts observed yet") + "\n")
	}

	b.WriteString(helpStyle.Render("q quit · a pause · j/k scroll"))

	if m.width > 0 {
		return lipgloss.NewStyle().MaxWidth(m.width).Render(b.String())
	}
	return b.String()
}
