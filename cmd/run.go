package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/sarchlab/flowsim/datarecording"
	"github.com/sarchlab/flowsim/examples/mm1"
	"github.com/sarchlab/flowsim/experiment"
	"github.com/sarchlab/flowsim/sim"
	"github.com/sarchlab/flowsim/tracing"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	configPath   string
	replications int
	parallelism  int
	seed         uint64
	startTime    float64
	warmup       float64
	runLength    float64
	arrivalMean  float64
	serviceMean  float64
	servers      float64
	maxEntities  int
	database     string
	driver       string
	trace        bool
)

// runCmd runs an experiment on the multi-server queue
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the replications of a queueing experiment.",
	Long: `Run the replications of a multi-server queue with exponential ` +
		`interarrival and service times. Settings come from the flags, ` +
		`then from the configuration file, then from the defaults.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := resolveConfig(cmd)
		if err != nil {
			return err
		}

		return runExperiment(cmd.Context(), cfg, cmd.OutOrStdout())
	},
}

func init() {
	defaults := experiment.DefaultConfig()

	runCmd.Flags().StringVar(&configPath, "config", "",
		"YAML configuration file")
	runCmd.Flags().IntVar(&replications, "replications", defaults.Replications,
		"Number of independent replications")
	runCmd.Flags().IntVar(&parallelism, "parallel", defaults.Parallelism,
		"Number of replications that run at the same time")
	runCmd.Flags().Uint64Var(&seed, "seed", defaults.Seed,
		"Seed of the first replication; replication i uses seed+i")
	runCmd.Flags().Float64Var(&startTime, "start", defaults.Start,
		"Simulated time at which every replication starts")
	runCmd.Flags().Float64Var(&warmup, "warmup", defaults.Warmup,
		"Warmup period; statistics are reset when it ends")
	runCmd.Flags().Float64Var(&runLength, "run-length", defaults.RunLength,
		"Length of every replication, warmup included")
	runCmd.Flags().Float64Var(&arrivalMean, "arrival-mean", defaults.Model.ArrivalMean,
		"Mean time between two arrivals")
	runCmd.Flags().Float64Var(&serviceMean, "service-mean", defaults.Model.ServiceMean,
		"Mean service time")
	runCmd.Flags().Float64Var(&servers, "servers", defaults.Model.Servers,
		"Capacity of the server pool")
	runCmd.Flags().IntVar(&maxEntities, "max-entities", defaults.Model.MaxEntities,
		"Maximum number of arrivals per replication, -1 for no limit")
	runCmd.Flags().StringVar(&database, "db", "",
		"Record results into this SQLite file (without extension) or ClickHouse DSN")
	runCmd.Flags().StringVar(&driver, "driver", defaults.Recording.Driver,
		"Database driver (sqlite, sqlite3, clickhouse)")
	runCmd.Flags().BoolVar(&trace, "trace", false,
		"Also record every notification of the model")

	rootCmd.AddCommand(runCmd)
}

// resolveConfig merges the defaults, the configuration file, the
// environment and the flags that are set, in increasing priority.
func resolveConfig(cmd *cobra.Command) (experiment.Config, error) {
	cfg := experiment.DefaultConfig()

	path := stringSetting(cmd, "config", configPath, envConfig)
	if path != "" {
		loaded, err := experiment.LoadConfig(path)
		if err != nil {
			return experiment.Config{}, err
		}

		cfg = loaded
	}

	if v, ok := os.LookupEnv(envDatabase); ok && !cmd.Flags().Changed("db") {
		cfg.Recording.Database = v
	}

	if v, ok := os.LookupEnv(envDriver); ok && !cmd.Flags().Changed("driver") {
		cfg.Recording.Driver = v
	}

	flags := cmd.Flags()
	overrides := []struct {
		flag  string
		apply func()
	}{
		{"replications", func() { cfg.Replications = replications }},
		{"parallel", func() { cfg.Parallelism = parallelism }},
		{"seed", func() { cfg.Seed = seed }},
		{"start", func() { cfg.Start = startTime }},
		{"warmup", func() { cfg.Warmup = warmup }},
		{"run-length", func() { cfg.RunLength = runLength }},
		{"arrival-mean", func() { cfg.Model.ArrivalMean = arrivalMean }},
		{"service-mean", func() { cfg.Model.ServiceMean = serviceMean }},
		{"servers", func() { cfg.Model.Servers = servers }},
		{"max-entities", func() { cfg.Model.MaxEntities = maxEntities }},
		{"db", func() { cfg.Recording.Database = database }},
		{"driver", func() { cfg.Recording.Driver = driver }},
		{"trace", func() { cfg.Recording.Trace = trace }},
	}

	for _, o := range overrides {
		if flags.Changed(o.flag) {
			o.apply()
		}
	}

	if err := cfg.Validate(); err != nil {
		return experiment.Config{}, err
	}

	return cfg, nil
}

// runExperiment runs the experiment cfg describes and prints the summary to
// out.
func runExperiment(ctx context.Context, cfg experiment.Config, out io.Writer) error {
	rc, err := cfg.RunControl()
	if err != nil {
		return err
	}

	rc.SetDescription(fmt.Sprintf("%v servers, arrival mean %v, service mean %v",
		cfg.Model.Servers, cfg.Model.ArrivalMean, cfg.Model.ServiceMean))

	model := mm1.MakeBuilder().WithConfig(cfg.Model)

	var recorder datarecording.DataRecorder
	var execRecorder *datarecording.ExecRecorder

	if cfg.Recording.Database != "" {
		recorder, err = openRecorder(cfg.Recording)
		if err != nil {
			return err
		}
		defer recorder.Close()

		execRecorder = datarecording.NewExecRecorder(recorder)
		execRecorder.Start()
		recordSettings(execRecorder, cfg)

		experiment.CreateResultTables(recorder)

		if cfg.Recording.Trace {
			tracing.CreateTables(recorder)
			model = model.WithTraceRecorder(recorder)
		}
	}

	progress := replicationLogger{total: cfg.Replications}

	exp := experiment.MakeBuilder[sim.VTimeInSec]().
		WithRunControl(rc).
		WithReplications(cfg.Replications).
		WithParallelism(cfg.Parallelism).
		WithSeed(cfg.Seed).
		WithModel(withEventLogging(model.Build())).
		WithReplicationHook(&progress).
		Build()

	results, err := exp.Run(ctx)
	if err != nil {
		return fmt.Errorf("running %s: %w", cfg.Name, err)
	}

	aggregates := experiment.Summarize(results)

	if recorder != nil {
		experiment.RecordResults(recorder, results, aggregates)
		execRecorder.End()
	}

	return printSummary(out,
		fmt.Sprintf("%s: %s", cfg.Name, rc.Description()), aggregates)
}

// withEventLogging logs every event of every replication when the log level
// is trace.
func withEventLogging(
	m experiment.ModelBuilder[sim.VTimeInSec],
) experiment.ModelBuilder[sim.VTimeInSec] {
	if !logrus.IsLevelEnabled(logrus.TraceLevel) {
		return m
	}

	return experiment.ModelBuilderFunc[sim.VTimeInSec](
		func(r *experiment.Replication[sim.VTimeInSec]) error {
			r.Engine().AcceptHook(sim.NewEventLogger[sim.VTimeInSec](
				logrus.WithField("replication", r.Index())))

			return m.BuildModel(r)
		})
}

// openRecorder opens the database the results are recorded into. SQLite
// files that already exist are not overwritten.
func openRecorder(c experiment.RecordingConfig) (datarecording.DataRecorder, error) {
	d := datarecording.Driver(c.Driver)

	if d == datarecording.ClickHouse {
		return datarecording.NewClickHouse(c.Database), nil
	}

	filename := c.Database
	if !strings.HasSuffix(filename, ".sqlite3") {
		filename += ".sqlite3"
	}

	if _, err := os.Stat(filename); err == nil {
		return nil, fmt.Errorf("database %s already exists", filename)
	}

	return datarecording.New(c.Database, datarecording.WithDriver(d)), nil
}

func recordSettings(e *datarecording.ExecRecorder, cfg experiment.Config) {
	e.Add("Experiment", cfg.Name)
	e.Add("Replications", strconv.Itoa(cfg.Replications))
	e.Add("Parallelism", strconv.Itoa(cfg.Parallelism))
	e.Add("Seed", strconv.FormatUint(cfg.Seed, 10))
	e.Add("Start", strconv.FormatFloat(cfg.Start, 'g', -1, 64))
	e.Add("Warmup", strconv.FormatFloat(cfg.Warmup, 'g', -1, 64))
	e.Add("Run Length", strconv.FormatFloat(cfg.RunLength, 'g', -1, 64))
	e.Add("Arrival Mean", strconv.FormatFloat(cfg.Model.ArrivalMean, 'g', -1, 64))
	e.Add("Service Mean", strconv.FormatFloat(cfg.Model.ServiceMean, 'g', -1, 64))
	e.Add("Servers", strconv.FormatFloat(cfg.Model.Servers, 'g', -1, 64))
	e.Add("Max Entities", strconv.Itoa(cfg.Model.MaxEntities))
}

// replicationLogger logs every replication that finishes.
type replicationLogger struct {
	total int
}

func (l *replicationLogger) Func(ctx sim.HookCtx) {
	if ctx.Pos != experiment.HookPosReplicationEnd {
		return
	}

	result := ctx.Item.(experiment.ReplicationResult)

	logrus.WithFields(logrus.Fields{
		"replication": result.Index,
		"id":          result.ID,
		"seed":        result.Seed,
	}).Infof("replication finished (%d in total)", l.total)
}
