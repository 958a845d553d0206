package report

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	cli "github.com/urfave/cli/v3"
	"go.uber.org/zap"
	"golang.org/x/text/encoding/ianaindex"

	"wrg/config"
	"wrg/flow"
	"wrg/state"
)

// Run is the "generate" subcommand entry point. It loads the exports,
// aggregates them and produces the report artifact.
func Run(ctx context.Context, cmd *cli.Command) (err error) {
	if err := ctx.Err(); err != nil {
		return err
	}

	env := state.EnvFromContext(ctx)
	log := env.Log.Named("generate")

	tickets := cmd.Args().Get(0)
	issues := cmd.Args().Get(1)
	if len(tickets) == 0 || len(issues) == 0 {
		return errors.New("both ticket and issue exports must be specified")
	}

	dst := cmd.Args().Get(2)
	if len(dst) == 0 {
		if dst, err = os.Getwd(); err != nil {
			return fmt.Errorf("unable to get working directory: %w", err)
		}
	}
	if dst, err = filepath.Abs(dst); err != nil {
		return err
	}
	if cmd.Args().Len() > 3 {
		log.Warn("Malformed command line, too many destinations", zap.Strings("ignoring", cmd.Args().Slice()[3:]))
	}

	env.Overwrite = cmd.Bool("overwrite")
	env.Template = cmd.String("template")

	// Exports may come from tools stuck in a legacy code page
	if cp := env.Cfg.Document.SourceEncoding; len(cp) > 0 {
		env.CodePage, err = ianaindex.IANA.Encoding(cp)
		if err != nil {
			log.Warn("Unknown character set specification. Ignoring...", zap.String("charset", cp), zap.Error(err))
			env.CodePage = nil
		} else {
			n, _ := ianaindex.IANA.Name(env.CodePage)
			log.Debug("Decoding exports", zap.String("charset", n))
		}
	}

	log.Info("Processing starting", zap.String("tickets", tickets), zap.String("issues", issues), zap.String("destination", dst))
	defer func(start time.Time) {
		log.Info("Processing completed", zap.Duration("elapsed", time.Since(start)))
	}(time.Now())

	return process(ctx, tickets, issues, dst, log)
}

// process handles the core report logic independently of CLI framework.
func process(ctx context.Context, ticketsPath, issuesPath, dst string, log *zap.Logger) error {
	env := state.EnvFromContext(ctx)
	now := time.Now()

	sum, err := loadSummary(ctx, ticketsPath, issuesPath, now, log)
	if err != nil {
		return err
	}

	charts, err := loadCharts(&env.Cfg.Document.Charts, log)
	if err != nil {
		return err
	}

	var template *flow.Document
	if len(env.Template) > 0 {
		f, err := os.Open(env.Template)
		if err != nil {
			return fmt.Errorf("unable to open template (%s): %w", env.Template, err)
		}
		template, err = flow.ReadDocument(f)
		f.Close()
		if err != nil {
			return fmt.Errorf("unable to parse template (%s): %w", env.Template, err)
		}
		if env.Rpt != nil {
			env.Rpt.Store("template"+filepath.Ext(env.Template), env.Template)
		}
	}

	var style *flow.TableStyle
	if env.Cfg.Document.Table.Enable {
		style = &flow.TableStyle{
			HeaderShading: env.Cfg.Document.Table.HeaderShading,
			HeaderBold:    env.Cfg.Document.Table.HeaderBold,
			HeaderAlign:   flow.ParseCellAlignment(env.Cfg.Document.Table.HeaderAlign),
			Borders:       env.Cfg.Document.Table.Borders,
		}
	}

	runID, err := uuid.NewV7()
	if err != nil {
		runID = uuid.New()
	}

	base := filepath.Base(ticketsPath)
	if len(env.Template) > 0 {
		base = filepath.Base(env.Template)
	}
	outputName := BuildOutputPath(dst, base,
		env.Cfg.Document.OutputNameTemplate, runID.String(), now, env.Cfg.Document.FileNameTransliterate, log)

	if err := os.MkdirAll(filepath.Dir(outputName), 0755); err != nil {
		return fmt.Errorf("unable to create output directory: %w", err)
	}

	sink := &flow.FileSink{Path: outputName, Overwrite: env.Overwrite, Log: log}
	if _, err := Generate(template, sum, charts, style, sink, log); err != nil {
		return err
	}
	log.Info("Report generated", zap.String("to", outputName), zap.String("run_id", runID.String()))

	if env.Rpt != nil {
		env.Rpt.Store("result"+filepath.Ext(outputName), outputName)
	}
	return nil
}

// loadSummary reads both exports and runs the aggregation pass.
func loadSummary(ctx context.Context, ticketsPath, issuesPath string, now time.Time, log *zap.Logger) (*Summary, error) {
	env := state.EnvFromContext(ctx)

	tf, err := os.Open(ticketsPath)
	if err != nil {
		return nil, fmt.Errorf("unable to open ticket export (%s): %w", ticketsPath, err)
	}
	defer tf.Close()
	tickets, err := ReadTickets(tf, env.CodePage, log)
	if err != nil {
		return nil, err
	}

	jf, err := os.Open(issuesPath)
	if err != nil {
		return nil, fmt.Errorf("unable to open issue export (%s): %w", issuesPath, err)
	}
	defer jf.Close()
	issues, err := ReadIssues(jf, env.CodePage, log)
	if err != nil {
		return nil, err
	}

	return Summarize(tickets, issues,
		env.Cfg.Document.USALabel, env.Cfg.Document.StaleAfterDays, env.Cfg.Document.TopIssueLimit, now), nil
}

// loadCharts reads pre-rendered chart images named in the configuration. A
// chart path left empty simply leaves the figure out of the report, a path
// that cannot be read is an error.
func loadCharts(conf *config.ChartsConfig, log *zap.Logger) (Charts, error) {
	load := func(path string) (*flow.ImageRef, error) {
		if len(path) == 0 {
			return nil, nil
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("unable to read chart image (%s): %w", path, err)
		}
		img, err := flow.NewImageRef(data, conf.Width)
		if err != nil {
			return nil, fmt.Errorf("unable to prepare chart image (%s): %w", path, err)
		}
		log.Debug("Chart image loaded", zap.String("file", path), zap.Int("width", img.Width))
		return img, nil
	}

	var (
		charts Charts
		err    error
	)
	if charts.Category, err = load(conf.CategoryImage); err != nil {
		return Charts{}, err
	}
	if charts.USAStatus, err = load(conf.USAStatusImage); err != nil {
		return Charts{}, err
	}
	return charts, nil
}
