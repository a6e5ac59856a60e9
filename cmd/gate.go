package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/example/court-scheduler/internal/gate"
	"github.com/example/court-scheduler/internal/slotcode"
)

// newGateCmd prints the daily access code so whoever runs the server can
// hand it to the operator.
func newGateCmd() *cobra.Command {
	var day string

	c := &cobra.Command{
		Use:   "gate",
		Short: "Print the web UI access code for a day (default: today)",
		RunE: func(cmd *cobra.Command, args []string) error {
			secret := os.Getenv("GATE_SECRET")
			if secret == "" {
				return fmt.Errorf("GATE_SECRET is required")
			}

			when := time.Now()
			if day != "" {
				d, err := slotcode.ParseDate(day)
				if err != nil {
					return err
				}
				when = d
			}

			fmt.Fprintln(os.Stdout, gate.New(secret).CodeFor(when))
			return nil
		},
	}

	c.Flags().StringVar(&day, "day", "", "date YYYYMMDD (default: today)")
	return c
}
