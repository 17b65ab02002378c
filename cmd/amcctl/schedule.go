package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nurpe/amc-schedule/internal/batch"
	"github.com/nurpe/amc-schedule/internal/importer"
	"github.com/nurpe/amc-schedule/internal/model"
	"github.com/nurpe/amc-schedule/internal/service"
)

type exportOptions struct {
	format string
	out    string
	sheet  string
}

func (o *exportOptions) bind(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&o.format, "format", "f", "xlsx", "export format: xlsx, pdf, csv, json")
	cmd.Flags().StringVar(&o.out, "out", "", "export path, - for stdout (default: generated file name)")
	cmd.Flags().StringVar(&o.sheet, "sheet", "", "sheet to read from an xlsx input (default: first sheet)")
}

func newAMCCommand() *cobra.Command {
	opts := &exportOptions{}
	cmd := &cobra.Command{
		Use:   "amc <products.xlsx|products.json>",
		Short: "Build AMC schedules for a product list",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := appFrom(cmd)
			if err != nil {
				return err
			}
			products, err := readInput(cmd, args[0], opts.sheet, importer.ReadAMC)
			if err != nil {
				return err
			}
			out, err := a.schedules.RunAMCBatch(cmd.Context(), products, a.settings, progress(cmd.ErrOrStderr()))
			if err != nil {
				return err
			}
			return a.finish(cmd, model.KindAMC, out.Record, opts)
		},
	}
	opts.bind(cmd)
	return cmd
}

func newWarrantyCommand() *cobra.Command {
	opts := &exportOptions{}
	cmd := &cobra.Command{
		Use:   "warranty <items.xlsx|items.json>",
		Short: "Build warranty schedules for an item list",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := appFrom(cmd)
			if err != nil {
				return err
			}
			products, err := readInput(cmd, args[0], opts.sheet, importer.ReadWarranty)
			if err != nil {
				return err
			}
			out, err := a.schedules.RunWarrantyBatch(cmd.Context(), products, a.settings, progress(cmd.ErrOrStderr()))
			if err != nil {
				return err
			}
			return a.finish(cmd, model.KindWarranty, out.Record, opts)
		},
	}
	opts.bind(cmd)
	return cmd
}

// readInput loads products from a workbook or from JSON holding either an
// array or an object with a products array.
func readInput[P any](cmd *cobra.Command, path, sheet string, read func(io.Reader, string) ([]P, []importer.RowError, error)) ([]P, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	if strings.EqualFold(filepath.Ext(path), ".json") {
		data, err := io.ReadAll(f)
		if err != nil {
			return nil, err
		}
		var products []P
		if err := json.Unmarshal(data, &products); err == nil {
			return products, nil
		}
		var wrapped struct {
			Products []P `json:"products"`
		}
		if err := json.Unmarshal(data, &wrapped); err != nil {
			return nil, fmt.Errorf("decode %s: %w", path, err)
		}
		if wrapped.Products == nil {
			return nil, fmt.Errorf("%s: no products found", path)
		}
		return wrapped.Products, nil
	}

	products, rowErrs, err := read(f, sheet)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	for _, re := range rowErrs {
		fmt.Fprintln(cmd.ErrOrStderr(), "skipped", re.Error())
	}
	if products == nil {
		products = []P{}
	}
	return products, nil
}

func progress(w io.Writer) func(batch.Event) {
	return func(ev batch.Event) {
		switch ev.Type {
		case batch.EventProgress, batch.EventChunkComplete:
			fmt.Fprintf(w, "\rprocessed %d/%d", ev.Processed, ev.Total)
		case batch.EventComplete:
			fmt.Fprintf(w, "\rprocessed %d/%d\n", ev.Processed, ev.Total)
		case batch.EventError:
			fmt.Fprintln(w)
		}
	}
}

func (a *app) finish(cmd *cobra.Command, kind model.ScheduleKind, record *model.BatchRecord, opts *exportOptions) error {
	format, err := service.ParseFormat(opts.format)
	if err != nil {
		return err
	}
	res, err := a.exports.Export(cmd.Context(), service.ExportRequest{
		Kind:    kind,
		Format:  format,
		Results: record.Results,
	})
	if err != nil {
		return err
	}

	dest := opts.out
	if dest == "" {
		dest = res.FileName
	}
	if dest == "-" {
		_, err = cmd.OutOrStdout().Write(res.Content)
		return err
	}
	if err := os.WriteFile(dest, res.Content, 0o644); err != nil {
		return err
	}
	return a.printSummary(cmd.ErrOrStderr(), record, dest)
}

func (a *app) printSummary(w io.Writer, record *model.BatchRecord, dest string) error {
	s := record.Summary
	if a.output == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(struct {
			Summary model.BatchSummary `json:"summary"`
			File    string             `json:"file"`
		}{s, dest})
	}
	fmt.Fprintf(w, "products: %d  successful: %d  errors: %d  total (with GST): %.2f\n",
		s.Processed, s.Successful, s.Errors, s.TotalValue)
	for _, r := range record.Results {
		if r.Failed() {
			fmt.Fprintf(w, "  %s %s: %s\n", r.ID, r.ProductName, r.Error)
		}
	}
	fmt.Fprintln(w, "written", dest)
	return nil
}
