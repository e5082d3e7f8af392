package cli

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"

	"github.com/Cornell-CIS-Slack/cucs-colloq/internal/config"
	"github.com/Cornell-CIS-Slack/cucs-colloq/internal/event"
	"github.com/Cornell-CIS-Slack/cucs-colloq/internal/logger"
	"github.com/Cornell-CIS-Slack/cucs-colloq/internal/metrics"
)

func newWatchCmd() *cobra.Command {
	var (
		out           outputFlags
		flagSchedule  string
		flagImmediate bool
	)
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Repeat run on a cron schedule",
		Long: `Repeat run on a cron schedule in the source's timezone. Failed runs are
logged and retried at the next tick; a run still in progress when the next
tick fires makes that tick a no-op.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			log, err := newLogger(cmd)
			if err != nil {
				return err
			}
			src, err := loadSource(out.source)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			m := metrics.NewRun(src.Name)
			w, err := newWatcher(src, flagSchedule, log, func(ctx context.Context) error {
				return runOnce(ctx, cmd, src, out, log, m)
			})
			if err != nil {
				return err
			}
			if flagImmediate {
				w.tick(ctx)
			}
			return w.run(ctx)
		},
	}
	out.register(cmd)
	cmd.Flags().StringVar(&flagSchedule, "schedule", "0 6 * * *", "Cron expression (minute hour dom month dow) or descriptor such as @hourly")
	cmd.Flags().BoolVar(&flagImmediate, "now", false, "Also run once at startup")
	return cmd
}

// watcher drives repeated runs of one source
type watcher struct {
	cron   *cron.Cron
	log    *logger.Logger
	source string
	job    func(context.Context) error
	ctx    context.Context
}

func newWatcher(src *config.Source, schedule string, log *logger.Logger, job func(context.Context) error) (*watcher, error) {
	loc, err := time.LoadLocation(src.Timezone)
	if err != nil {
		return nil, event.Wrap(event.ErrConfig, "loading timezone "+src.Timezone, err)
	}

	cl := logger.ForCron(log)
	w := &watcher{
		cron: cron.New(
			cron.WithLocation(loc),
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
		log:    log,
		source: src.Name,
		job:    job,
		ctx:    context.Background(),
	}
	if _, err := w.cron.AddFunc(schedule, func() { w.tick(w.ctx) }); err != nil {
		return nil, event.Wrap(event.ErrConfig, fmt.Sprintf("parsing schedule %q", schedule), err)
	}
	return w, nil
}

// tick runs the job once, logging instead of returning its error
func (w *watcher) tick(ctx context.Context) {
	if err := w.job(ctx); err != nil {
		w.log.Error("Scheduled run failed", logger.Fields{"source": w.source, "kind": event.KindName(err)}, err)
	}
}

// run starts the scheduler and blocks until ctx is done, then waits for a
// running job to finish.
func (w *watcher) run(ctx context.Context) error {
	w.ctx = ctx
	w.cron.Start()
	w.log.Info("Watching source", logger.Fields{"source": w.source, "next": w.next()})

	<-ctx.Done()
	<-w.cron.Stop().Done()
	w.log.Info("Watch stopped", logger.Fields{"source": w.source})
	return nil
}

func (w *watcher) next() string {
	entries := w.cron.Entries()
	if len(entries) == 0 || entries[0].Next.IsZero() {
		return ""
	}
	return entries[0].Next.Format(time.RFC3339)
}
