package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/thediveo/enumflag/v2"

	"github.com/mirrorsync/mirrorsync/internal/config"
	"github.com/mirrorsync/mirrorsync/internal/github"
	"github.com/mirrorsync/mirrorsync/internal/gitlab"
	"github.com/mirrorsync/mirrorsync/internal/gitremote"
	"github.com/mirrorsync/mirrorsync/internal/logging"
	"github.com/mirrorsync/mirrorsync/internal/metrics"
	"github.com/mirrorsync/mirrorsync/internal/service"
	"github.com/mirrorsync/mirrorsync/pkg/refs"
	pkgsync "github.com/mirrorsync/mirrorsync/pkg/sync"
)

type pruneParams struct {
	configFile string
	dryRun     bool
	keep       []string
	logLevel   logging.Level
	logFormat  logging.Format
	summary    bool
	progress   bool
}

func newPruneCommand(env config.LookupFunc, stdout, stderr io.Writer) *cobra.Command {
	var params pruneParams

	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Delete obsolete branches and tags from the mirror",
		Long: `Lists the branches and tags of the source project and of its mirror, and
deletes from the mirror every reference missing on the source. Tags are
processed before branches. A failure on one reference is logged and the run
continues; failures to list references abort the run.

Configuration is read from the environment (GitLab CI variables) and an
optional YAML file. Runs are dry unless --dry-run=false is given or
MIRRORSYNC_DRY_RUN=false is set.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runPrune(cmd.Context(), params, cmd.Flags(), env, stdout, stderr)
		},
	}
	addPruneFlags(cmd.Flags(), &params)

	return cmd
}

func addPruneFlags(fs *pflag.FlagSet, p *pruneParams) {
	p.logLevel = logging.Info
	p.logFormat = logging.JSON

	fs.StringVarP(&p.configFile, "config", "c", "", "path to an optional YAML configuration file")
	fs.BoolVar(&p.dryRun, "dry-run", true, "look up obsolete references without deleting them")
	fs.StringArrayVar(&p.keep, "keep", nil, "glob of mirror references never to delete (repeatable)")
	fs.Var(enumflag.New(&p.logLevel, "level", logging.LevelIds, enumflag.EnumCaseInsensitive), "log-level", "log level: debug, info, warn or error")
	fs.Var(enumflag.New(&p.logFormat, "format", logging.FormatIds, enumflag.EnumCaseInsensitive), "log-format", "log format: json or text")
	fs.BoolVar(&p.summary, "summary", false, "print a table of the processed references when done")
	fs.BoolVar(&p.progress, "progress", false, "show a progress bar on stderr while deleting")
}

func runPrune(ctx context.Context, p pruneParams, flags *pflag.FlagSet, env config.LookupFunc, stdout, stderr io.Writer) error {
	cfg, err := config.Load(p.configFile, env)
	if err != nil {
		return err
	}

	// Flags win over the file and the environment, but only when given.
	if flags.Changed("dry-run") {
		cfg.Prune.DryRun = &p.dryRun
	}
	cfg.Prune.Keep = append(cfg.Prune.Keep, p.keep...)

	log, err := newLogger(cfg.Logging, p, flags, stdout)
	if err != nil {
		return err
	}

	if bs, err := json.Marshal(cfg.Redacted()); err == nil {
		log.Debugf("Configuration: %s", bs)
	}

	keep, err := refs.NewMatcher(cfg.Prune.Keep)
	if err != nil {
		return err
	}

	hc := &http.Client{Timeout: time.Duration(cfg.HTTPTimeout)}

	source, err := newSource(ctx, cfg, hc)
	if err != nil {
		return err
	}

	gh, err := github.New(cfg.GitHub, hc)
	if err != nil {
		return err
	}
	mirror, err := gh.Repository(ctx, cfg.GitHub.Owner, cfg.GitHub.Repository)
	if err != nil {
		return err
	}
	log.Debugf("Reconciling %s against %s", mirror, source)

	r := service.New(source, mirror, log).
		WithProject(cfg.Project.Name).
		WithDryRun(cfg.Prune.IsDryRun()).
		WithKeep(keep)
	if p.progress {
		r = r.WithProgress(stderr)
	}

	start := time.Now()
	report, err := r.Execute(ctx)
	metrics.RunFinished(start, err)

	if url := cfg.Metrics.PushgatewayURL; url != "" {
		if perr := metrics.Push(ctx, url, cfg.Metrics.Job, map[string]string{"project": cfg.Project.Name}); perr != nil {
			log.Warnf("Failed to push metrics to %s: %v", url, perr)
		}
	}

	if err != nil {
		log.Errorf("Reconciliation of %s failed: %v", cfg.Project.Name, err)
		return err
	}

	if p.summary {
		return report.WriteTable(stdout)
	}

	return nil
}

func newLogger(cfg config.Logging, p pruneParams, flags *pflag.FlagSet, out io.Writer) (*logging.Logger, error) {
	level, err := logging.ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}
	if flags.Changed("log-level") {
		level = p.logLevel
	}

	format, err := logging.ParseFormat(cfg.Format)
	if err != nil {
		return nil, err
	}
	if flags.Changed("log-format") {
		format = p.logFormat
	}

	return logging.NewLogger(logging.Config{Level: level, Format: format, Output: out}), nil
}

type namedLister interface {
	pkgsync.RefLister
	fmt.Stringer
}

func newSource(ctx context.Context, cfg *config.Config, hc *http.Client) (namedLister, error) {
	if cfg.UsesGitSource() {
		return gitremote.New(*cfg.Git), nil
	}

	gl, err := gitlab.New(cfg.GitLab.BaseURL(), cfg.GitLab.Token, hc)
	if err != nil {
		return nil, err
	}
	project, err := gl.Project(ctx, cfg.Project.ID)
	if err != nil {
		return nil, err
	}
	return project, nil
}
