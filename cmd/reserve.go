package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/example/court-scheduler/internal/booking"
	"github.com/example/court-scheduler/internal/logging"
	"github.com/example/court-scheduler/internal/pipeline"
	"github.com/example/court-scheduler/internal/transport"
)

// newReserveCmd is the headless one-shot path: stage a single reservation
// and fire it at the requested moment, exiting with the pipeline's outcome
// code (0 success, 1 exhausted, 2 missing inputs).
func newReserveCmd() *cobra.Command {
	var (
		cookie     string
		date       string
		fromTime   string
		toTime     string
		courtNo    int
		execAt     string
		timeBase   int
		maxRetries int
		baseURL    string
		timeoutSec int
	)

	c := &cobra.Command{
		Use:   "reserve",
		Short: "Submit one reservation at a given moment (no web UI)",
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true

			when := time.Now()
			if execAt != "" {
				t, err := time.ParseInLocation("2006-01-02 15:04:05", execAt, time.Local)
				if err != nil {
					return fmt.Errorf("invalid --exec-at (want \"YYYY-MM-DD HH:MM:SS\"): %w", err)
				}
				when = t
			}

			var baseOverride *int
			if cmd.Flags().Changed("time-base") {
				baseOverride = &timeBase
			}

			sink := logging.Sink(func(line string) { fmt.Fprintln(os.Stdout, line) })
			registry := booking.NewRegistry(sink)
			registry.SetCredential(cookie)

			r, err := registry.Create(date, fromTime, toTime, courtNo, when, baseOverride)
			if err != nil {
				return err
			}

			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			if wait := time.Until(r.ExecAt); wait > 0 {
				sink(fmt.Sprintf("waiting until %s", r.ExecAt.Format("2006-01-02 15:04:05")))
				select {
				case <-time.After(wait):
				case <-ctx.Done():
					return ctx.Err()
				}
			}

			pipe := &pipeline.Pipeline{
				NewSession: func(cookie string) transport.FormPoster {
					return transport.NewSession(baseURL, cookie, transport.Options{
						Timeout: time.Duration(timeoutSec) * time.Second,
					})
				},
				Form:       pipeline.DefaultForm(),
				MaxRetries: maxRetries,
				Log:        sink,
			}
			res := pipe.Run(ctx, pipeline.Request{
				Cookie:    r.Cookie,
				Date:      r.Date,
				TimeCode:  r.TimeCode,
				FromTime:  r.FromTime,
				ToTime:    r.ToTime,
				CourtCode: r.CourtCode,
				CourtNo:   r.CourtNo,
			})
			if res.Code != pipeline.OutcomeSuccess {
				os.Exit(int(res.Code))
			}
			return nil
		},
	}

	c.Flags().StringVar(&cookie, "cookie", "", "session cookie (JSESSIONID=...)")
	c.Flags().StringVar(&date, "date", "", "reservation date YYYYMMDD")
	c.Flags().StringVar(&fromTime, "from", "", "slot start HH:MM")
	c.Flags().StringVar(&toTime, "to", "", "slot end HH:MM")
	c.Flags().IntVar(&courtNo, "court", 1, "court number")
	c.Flags().StringVar(&execAt, "exec-at", "", "local run moment \"YYYY-MM-DD HH:MM:SS\" (default: now)")
	c.Flags().IntVar(&timeBase, "time-base", 0, "override the computed time-code base")
	c.Flags().IntVar(&maxRetries, "max-retries", 5, "full-sequence attempts (1-5)")
	c.Flags().StringVar(&baseURL, "base-url", "https://reserve.gmuc.co.kr", "upstream base URL")
	c.Flags().IntVar(&timeoutSec, "timeout-seconds", 15, "per-request transport timeout")

	_ = c.MarkFlagRequired("cookie")
	_ = c.MarkFlagRequired("date")
	_ = c.MarkFlagRequired("from")
	_ = c.MarkFlagRequired("to")
	return c
}
