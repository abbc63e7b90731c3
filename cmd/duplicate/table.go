package main

import (
	"strconv"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	types "github.com/yungbote/episode-duplication/internal/domain"
)

type columnAlignment int

const (
	alignLeft columnAlignment = iota
	alignRight
)

func renderTable(headers []string, rows [][]string, aligns []columnAlignment) string {
	columns := len(headers)
	if columns == 0 {
		return ""
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)

	header := make(table.Row, columns)
	for i := 0; i < columns; i++ {
		header[i] = headers[i]
	}
	tw.AppendHeader(header)

	for _, row := range rows {
		r := make(table.Row, columns)
		for i := 0; i < columns; i++ {
			if i < len(row) {
				r[i] = row[i]
			}
		}
		tw.AppendRow(r)
	}

	configs := make([]table.ColumnConfig, 0, columns)
	for i := 0; i < columns; i++ {
		align := text.AlignLeft
		if i < len(aligns) && aligns[i] == alignRight {
			align = text.AlignRight
		}
		configs = append(configs, table.ColumnConfig{Number: i + 1, Align: align, AlignHeader: text.AlignLeft})
	}
	tw.SetColumnConfigs(configs)

	return tw.Render()
}

// renderDuplication prints the record header and one row per stage in chain order.
func renderDuplication(d *types.Duplication) string {
	target := "-"
	if d.TargetEpisodeID != nil {
		target = d.TargetEpisodeID.String()
	}
	head := renderTable(
		[]string{"Field", "Value"},
		[][]string{
			{"ID", d.ID.String()},
			{"Status", string(d.Status)},
			{"Source episode", d.SourceEpisodeID.String()},
			{"Target episode", target},
			{"Updated", d.UpdatedAt.Format(time.RFC3339)},
		},
		[]columnAlignment{alignLeft, alignLeft},
	)

	p := d.ProgressMap()
	rows := make([][]string, 0, len(types.DuplicationStages))
	for _, stage := range types.DuplicationStages {
		rows = append(rows, []string{string(stage), strconv.FormatInt(p.Get(stage), 10)})
	}
	progress := renderTable([]string{"Stage", "Rows"}, rows, []columnAlignment{alignLeft, alignRight})
	return head + "\n" + progress
}

func renderDuplicationList(list []*types.Duplication) string {
	rows := make([][]string, 0, len(list))
	for _, d := range list {
		target := "-"
		if d.TargetEpisodeID != nil {
			target = d.TargetEpisodeID.String()
		}
		rows = append(rows, []string{d.ID.String(), string(d.Status), target, d.CreatedAt.Format(time.RFC3339)})
	}
	return renderTable(
		[]string{"ID", "Status", "Target episode", "Created"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft},
	)
}
