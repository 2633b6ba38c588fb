package main

import (
	"fmt"
	"io"
	"path/filepath"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"ucmusic/internal/ledger"
)

// Titles and artists from the catalog can be long; wrap them so the
// table fits a terminal.
const tagColumnWidth = 32

func newTableWriter(w io.Writer) table.Writer {
	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	tw.SetStyle(table.StyleRounded)
	tw.Style().Format.Header = text.FormatDefault
	tw.Style().Format.Footer = text.FormatDefault
	return tw
}

// writeConversions renders ledger records, newest first as given.
func writeConversions(w io.Writer, records []ledger.Record) {
	tw := newTableWriter(w)
	tw.AppendHeader(table.Row{"Converted", "Track", "Title", "Artist", "Enriched", "File"})
	enriched := 0
	for _, rec := range records {
		if rec.Enriched {
			enriched++
		}
		tw.AppendRow(table.Row{
			rec.ConvertedAt.Local().Format("2006-01-02 15:04:05"),
			rec.TrackID,
			orDash(rec.Title),
			orDash(rec.Artist),
			yesNo(rec.Enriched),
			filepath.Base(rec.OutputPath),
		})
	}
	tw.AppendFooter(table.Row{fmt.Sprintf("%d shown", len(records)), "", "", "", fmt.Sprintf("%d/%d", enriched, len(records)), ""})
	tw.SetColumnConfigs([]table.ColumnConfig{
		{Name: "Track", Align: text.AlignRight, AlignHeader: text.AlignLeft},
		{Name: "Title", WidthMax: tagColumnWidth},
		{Name: "Artist", WidthMax: tagColumnWidth},
		{Name: "Enriched", Align: text.AlignCenter, AlignFooter: text.AlignCenter},
	})
	tw.Render()
}

// writeHistory renders history.txt entries in file order.
func writeHistory(w io.Writer, names []string) {
	tw := newTableWriter(w)
	tw.AppendHeader(table.Row{"#", "Source"})
	for i, name := range names {
		tw.AppendRow(table.Row{i + 1, name})
	}
	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, Align: text.AlignRight, AlignHeader: text.AlignRight},
	})
	tw.Render()
}

func orDash(value string) string {
	if value == "" {
		return "-"
	}
	return value
}
