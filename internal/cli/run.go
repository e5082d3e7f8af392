package cli

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/Cornell-CIS-Slack/cucs-colloq/internal/config"
	"github.com/Cornell-CIS-Slack/cucs-colloq/internal/event"
	"github.com/Cornell-CIS-Slack/cucs-colloq/internal/logger"
	"github.com/Cornell-CIS-Slack/cucs-colloq/internal/metrics"
	"github.com/Cornell-CIS-Slack/cucs-colloq/internal/pipeline"
	"github.com/Cornell-CIS-Slack/cucs-colloq/internal/scraper"
	"github.com/Cornell-CIS-Slack/cucs-colloq/internal/sink"
)

// outputFlags selects where a run publishes its results
type outputFlags struct {
	source      string
	out         string
	csv         string
	noStdout    bool
	upload      bool
	sftpHost    string
	sftpPath    string
	sftpUser    string
	sftpKey     string
	webdavURL   string
	webdavPath  string
	metricsFile string
	timeout     time.Duration
}

func (o *outputFlags) register(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringVar(&o.source, "source", "", "Source profile name (required, see 'colloq sources')")
	f.StringVar(&o.out, "out", "", "Also write the calendar to this file")
	f.StringVar(&o.csv, "csv", "", "Write the spreadsheet export to this file")
	f.BoolVar(&o.noStdout, "no-stdout", false, "Do not print the calendar on stdout")
	f.BoolVar(&o.upload, "upload", false, "Upload to the source's configured SFTP destination")
	f.StringVar(&o.sftpHost, "sftp-host", "", "Upload the calendar to this SFTP host")
	f.StringVar(&o.sftpPath, "sftp-path", "", "Remote path for the SFTP upload")
	f.StringVar(&o.sftpUser, "sftp-user", "", "SFTP login name (default: local user)")
	f.StringVar(&o.sftpKey, "sftp-key", "", "Private key file for SFTP (default: ssh agent and ~/.ssh identities)")
	f.StringVar(&o.webdavURL, "webdav-url", "", "Upload the calendar to this WebDAV endpoint")
	f.StringVar(&o.webdavPath, "webdav-path", "", "Path of the calendar on the WebDAV server")
	f.StringVar(&o.metricsFile, "metrics-file", "", "Write run metrics to this Prometheus textfile")
	f.DurationVar(&o.timeout, "timeout", scraper.Timeout, "Timeout for each page and feed request")
	cmd.MarkFlagRequired("source")
}

func newRunCmd() *cobra.Command {
	var out outputFlags
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Scrape a source and publish its calendar",
		RunE: func(cmd *cobra.Command, args []string) error {
			log, err := newLogger(cmd)
			if err != nil {
				return err
			}
			src, err := loadSource(out.source)
			if err != nil {
				return err
			}
			return runOnce(cmd.Context(), cmd, src, out, log, metrics.NewRun(src.Name))
		},
	}
	out.register(cmd)
	return cmd
}

// runOnce executes one run and records it in m, whether or not it succeeds.
// Repeated runs share m so counters accumulate and the last success survives
// a failed run.
func runOnce(ctx context.Context, cmd *cobra.Command, src *config.Source, out outputFlags, log *logger.Logger, m *metrics.Run) error {
	started := time.Now()

	err := publish(ctx, cmd, src, out, log, m)

	elapsed := time.Since(started)
	if err != nil {
		m.Failed(event.KindName(err), elapsed)
	} else {
		m.Succeeded(time.Now(), elapsed)
	}
	if out.metricsFile != "" {
		if werr := m.WriteTextfile(out.metricsFile); werr != nil {
			log.Warn("Failed to write metrics", logger.Fields{"path": out.metricsFile, "error": werr.Error()})
		}
	}
	return err
}

func publish(ctx context.Context, cmd *cobra.Command, src *config.Source, out outputFlags, log *logger.Logger, m *metrics.Run) error {
	sinks, err := buildSinks(cmd, src, out)
	if err != nil {
		return err
	}
	var tabular *sink.File
	if out.csv != "" {
		if !src.Tabular {
			log.Warn("Source has no speaker/host fields, export columns will be sparse", logger.Fields{"source": src.Name})
		}
		if tabular, err = sink.NewFile(out.csv); err != nil {
			return event.Wrap(event.ErrConfig, "preparing csv output", err)
		}
	}

	if out.timeout <= 0 {
		return event.Errorf(event.ErrConfig, "preparing scraper", "--timeout must be positive, got %s", out.timeout)
	}
	client := scraper.New().WithClient(&http.Client{Timeout: out.timeout})

	run, err := pipeline.New(src, pipeline.Options{Scraper: client, Logger: log, Metrics: m})
	if err != nil {
		return err
	}
	cal, err := run.Execute(ctx)
	if err != nil {
		return err
	}

	data, err := cal.Bytes()
	if err != nil {
		return fmt.Errorf("encoding calendar: %w", err)
	}
	for _, s := range sinks {
		if err := s.Write(ctx, data); err != nil {
			return err
		}
		log.Debug("Calendar written", logger.Fields{"sink": s.Name(), "bytes": len(data)})
	}

	if tabular != nil {
		rows, err := sink.TabularBytes(cal.Events())
		if err != nil {
			return fmt.Errorf("encoding csv: %w", err)
		}
		if err := tabular.Write(ctx, rows); err != nil {
			return err
		}
		log.Debug("Export written", logger.Fields{"path": tabular.Path(), "rows": cal.Len()})
	}

	stats := run.Stats()
	log.Info("Run complete", logger.Fields{
		"source":     src.Name,
		"listings":   stats.Listings,
		"events":     stats.Events,
		"duplicates": stats.Duplicates,
		"filtered":   stats.Filtered,
	})
	return nil
}

// buildSinks creates every requested destination before anything is scraped,
// so bad output settings fail fast.
func buildSinks(cmd *cobra.Command, src *config.Source, out outputFlags) ([]sink.Sink, error) {
	var sinks []sink.Sink
	if !out.noStdout {
		sinks = append(sinks, sink.NewWriter("stdout", cmd.OutOrStdout()))
	}

	if out.out != "" {
		f, err := sink.NewFile(out.out)
		if err != nil {
			return nil, event.Wrap(event.ErrConfig, "preparing file output", err)
		}
		sinks = append(sinks, f)
	}

	sftpCfg := sink.SFTPConfig{Host: out.sftpHost, Path: out.sftpPath, User: out.sftpUser, KeyFile: out.sftpKey}
	if out.upload {
		if src.Upload == nil {
			return nil, event.Errorf(event.ErrConfig, "preparing upload", "source %q has no upload destination", src.Name)
		}
		sftpCfg.Host, sftpCfg.Path = src.Upload.Host, src.Upload.Path
		if sftpCfg.User == "" {
			sftpCfg.User = src.Upload.User
		}
	}
	if sftpCfg.Host != "" || sftpCfg.Path != "" {
		s, err := sink.NewSFTP(sftpCfg)
		if err != nil {
			return nil, event.Wrap(event.ErrConfig, "preparing sftp upload", err)
		}
		sinks = append(sinks, s)
	}

	if out.webdavURL != "" || out.webdavPath != "" {
		w, err := sink.NewWebDAVFromEnv(out.webdavURL, out.webdavPath)
		if err != nil {
			return nil, event.Wrap(event.ErrConfig, "preparing webdav upload", err)
		}
		sinks = append(sinks, w)
	}
	return sinks, nil
}
