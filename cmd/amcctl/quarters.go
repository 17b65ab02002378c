package main

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/nurpe/amc-schedule/internal/calendar"
)

type quarterRow struct {
	Key   string `json:"quarterKey"`
	Start string `json:"startDate"`
	End   string `json:"endDate"`
	Days  int    `json:"days"`
}

func newQuartersCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "quarters <year>",
		Short: "Print the billing quarters of a year",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := appFrom(cmd)
			if err != nil {
				return err
			}
			year, err := strconv.Atoi(args[0])
			if err != nil || year < 1 {
				return fmt.Errorf("invalid year %q", args[0])
			}

			rows := make([]quarterRow, 0, len(calendar.All))
			for _, q := range calendar.All {
				key := calendar.Key{Quarter: q, Year: year}
				period := key.Range()
				rows = append(rows, quarterRow{
					Key:   key.String(),
					Start: calendar.FormatISO(period.Start),
					End:   calendar.FormatISO(period.End),
					Days:  period.Days(),
				})
			}

			w := cmd.OutOrStdout()
			if a.output == "json" {
				enc := json.NewEncoder(w)
				enc.SetIndent("", "  ")
				return enc.Encode(rows)
			}
			for _, r := range rows {
				fmt.Fprintf(w, "%-9s %s  %s  %3d days\n", r.Key, r.Start, r.End, r.Days)
			}
			return nil
		},
	}
}
