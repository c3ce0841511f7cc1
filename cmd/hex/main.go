// Command hex runs a multi-step build with caching.
package main

import (
	"fmt"
	"os"

	"github.com/marcelocantos/hexbuild"
	"github.com/spf13/cobra"
)

var (
	hexfilePath      string
	jobs             int
	verbose          bool
	noColor          bool
	listTargets      bool
	runGCOnly        bool
	maxCacheBytes    int64
	targetCacheBytes int64
)

func main() {
	os.Exit(run())
}

func run() int {
	root := newRootCommand()
	if err := root.Execute(); err != nil {
		return hexbuild.ExitCode(err)
	}
	return 0
}

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "hex [target...]",
		Short: "Run a multi-step build with caching",
		Long: `Hex runs a multi-step build using caching. You give it a file describing all
the possible build steps along with their inputs and outputs. The tool will
then chain them together to produce an output, using cached results from
prior builds when possible.`,
		Args:         cobra.ArbitraryArgs,
		SilenceUsage: true,
		RunE:         runBuild,
	}

	cmd.Flags().StringVarP(&hexfilePath, "file", "f", "Hexfile", "rules file to read")
	cmd.Flags().IntVarP(&jobs, "jobs", "j", hexbuild.DefaultWorkerCount, "number of concurrent workers")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "print each executed command and cache hit/miss")
	cmd.Flags().BoolVar(&noColor, "no-color", false, "disable ANSI colorization of worker output")
	cmd.Flags().BoolVar(&listTargets, "list-targets", false, "list available targets and exit")
	cmd.Flags().BoolVar(&runGCOnly, "gc", false, "run cache garbage collection and exit, without building")
	cmd.Flags().Int64Var(&maxCacheBytes, "max-cache-bytes", 0, "override the cache size that triggers garbage collection")
	cmd.Flags().Int64Var(&targetCacheBytes, "target-cache-bytes", 0, "override the cache size garbage collection targets")

	cmd.Version = "0.1.0"

	return cmd
}

func runBuild(cmd *cobra.Command, args []string) error {
	data, err := os.ReadFile(hexfilePath)
	if err != nil {
		return fmt.Errorf("could not open Hexfile: %w", err)
	}

	rs, err := hexbuild.ParseRuleSet(data)
	if err != nil {
		return err
	}

	if listTargets {
		for _, target := range rs.Targets() {
			fmt.Println(target)
		}
		return nil
	}

	vfs := hexbuild.NewRealVFS()
	env := projectEnviron(rs.Environ)
	fingerprinter := hexbuild.NewFingerprinter(vfs, env)

	cache, err := hexbuild.NewCache(vfs, fingerprinter)
	if err != nil {
		return err
	}
	if maxCacheBytes > 0 {
		cache.MaxBytes = maxCacheBytes
	}
	if targetCacheBytes > 0 {
		cache.TargetBytes = targetCacheBytes
	}

	if runGCOnly {
		return cache.MaybeGC()
	}

	if len(args) == 0 {
		return cmd.Help()
	}

	if err := vfs.CreateDirAll(hexbuild.MustPath("out")); err != nil {
		return err
	}

	plan, err := hexbuild.Plan(rs, args)
	if err != nil {
		return err
	}

	logger := hexbuild.NewLogger(verbose)
	conductor := hexbuild.NewConductor(vfs, cache, logger)
	conductor.Workers = jobs
	conductor.NoColor = noColor

	return conductor.Conduct(plan)
}

func projectEnviron(names []string) map[string]string {
	env := make(map[string]string, len(names))
	for _, name := range names {
		if value, ok := os.LookupEnv(name); ok {
			env[name] = value
		}
	}
	return env
}
