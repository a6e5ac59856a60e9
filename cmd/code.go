package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/example/court-scheduler/internal/slotcode"
)

// newCodeCmd derives the upstream codes offline, handy for checking what a
// reservation would submit before staging it.
func newCodeCmd() *cobra.Command {
	var (
		date     string
		fromTime string
		toTime   string
		courtNo  int
		timeBase int
	)

	c := &cobra.Command{
		Use:   "code",
		Short: "Derive the time and court codes for a date/slot/court",
		RunE: func(cmd *cobra.Command, args []string) error {
			var baseOverride *int
			if cmd.Flags().Changed("time-base") {
				baseOverride = &timeBase
			}

			timeCode, err := slotcode.DeriveTimeCode(fromTime, toTime, date, baseOverride)
			if err != nil {
				return err
			}
			d, err := slotcode.ParseDate(date)
			if err != nil {
				return err
			}
			base := slotcode.MonthBase(d.Year(), d.Month())
			if baseOverride != nil {
				base = *baseOverride
			}

			fmt.Fprintf(os.Stdout, "timeCode=%s base=%d courtCode=%s\n",
				timeCode, base, slotcode.DeriveCourtCode(courtNo))
			return nil
		},
	}

	c.Flags().StringVar(&date, "date", "", "reservation date YYYYMMDD")
	c.Flags().StringVar(&fromTime, "from", "", "slot start HH:MM")
	c.Flags().StringVar(&toTime, "to", "", "slot end HH:MM")
	c.Flags().IntVar(&courtNo, "court", 1, "court number")
	c.Flags().IntVar(&timeBase, "time-base", 0, "override the computed time-code base")

	_ = c.MarkFlagRequired("date")
	_ = c.MarkFlagRequired("from")
	_ = c.MarkFlagRequired("to")
	return c
}
