// Command ferret builds and inspects full-text indexes from the shell.
package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/ironsweet/goferret/core/index"
	"github.com/ironsweet/goferret/core/store"
	"github.com/op/go-logging"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
)

var log = logging.MustGetLogger("ferret")

var (
	configPath  string
	logLevel    string
	showMetrics bool

	registry = prometheus.NewRegistry()
	metrics  = index.NewMetrics(registry)
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "ferret",
		Short:         "Build, inspect and maintain ferret indexes",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return setupLogging(logLevel)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if showMetrics {
				printMetrics(cmd)
			}
		},
	}
	cmd.PersistentFlags().StringVar(&configPath, "config", "", "YAML file with index settings")
	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "INFO", "One of CRITICAL, ERROR, WARNING, NOTICE, INFO, DEBUG")
	cmd.PersistentFlags().BoolVar(&showMetrics, "metrics", false, "Print engine metrics when the command finishes")

	cmd.AddCommand(
		newIndexCommand(),
		newTermsCommand(),
		newDocsCommand(),
		newShowCommand(),
		newDeleteCommand(),
		newOptimizeCommand(),
		newCheckCommand(),
		newStatsCommand(),
	)
	return cmd
}

func setupLogging(level string) error {
	lvl, err := logging.LogLevel(level)
	if err != nil {
		return err
	}
	backend := logging.NewLogBackend(os.Stderr, "", 0)
	format := logging.MustStringFormatter(`%{time:15:04:05.000} %{module} %{level:.4s} %{message}`)
	leveled := logging.AddModuleLevel(logging.NewBackendFormatter(backend, format))
	leveled.SetLevel(lvl, "")
	logging.SetBackend(leveled)
	return nil
}

// loadConfig returns the settings from --config, or the defaults.
func loadConfig() (*index.Config, error) {
	conf := index.DefaultConfig()
	if configPath != "" {
		var err error
		if conf, err = index.LoadConfig(configPath); err != nil {
			return nil, err
		}
	}
	return conf.SetMetrics(metrics), nil
}

func openDirectory(path string, create bool) (*store.FSDirectory, error) {
	d, err := store.OpenFSDirectory(path, create)
	if err != nil {
		return nil, err
	}
	log.Debugf("opened %v", d)
	return d, nil
}

// openReader opens the index at path read-only unless a command changes it.
func openReader(path string) (index.IndexReader, *store.FSDirectory, error) {
	d, err := openDirectory(path, false)
	if err != nil {
		return nil, nil, err
	}
	conf, err := loadConfig()
	if err != nil {
		d.Close()
		return nil, nil, err
	}
	ir, err := index.OpenIndexReader(d, conf)
	if err != nil {
		d.Close()
		return nil, nil, err
	}
	return ir, d, nil
}

// fieldNum resolves a field name of the reader, failing for unknown fields.
func fieldNum(ir index.IndexReader, field string) (int, error) {
	num := ir.FieldInfos().FieldNum(field)
	if num < 0 {
		return -1, fmt.Errorf("no field %q in index (fields: %v)", field, fieldNames(ir))
	}
	return num, nil
}

func fieldNames(ir index.IndexReader) string {
	var names []string
	for _, fi := range ir.FieldInfos().Fields() {
		names = append(names, fi.Name)
	}
	return strings.Join(names, ", ")
}

func printMetrics(cmd *cobra.Command) {
	families, err := registry.Gather()
	if err != nil {
		log.Warningf("gathering metrics: %v", err)
		return
	}
	out := cmd.OutOrStdout()
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			switch {
			case m.GetCounter() != nil:
				fmt.Fprintf(out, "%v %v\n", mf.GetName(), m.GetCounter().GetValue())
			case m.GetHistogram() != nil:
				h := m.GetHistogram()
				fmt.Fprintf(out, "%v count=%v sum=%.6f\n", mf.GetName(), h.GetSampleCount(), h.GetSampleSum())
			}
		}
	}
}
