package main

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var cfgFile string // optional config file path from --config

// version is the application version, set via ldflags.
var version = "dev"

var rootCmd = &cobra.Command{
	Use:   "loc [DIR]",
	Short: "loc counts lines in source files under a project root.",
	Long: `loc locates a project root (by default the nearest "apps" directory within
five parent levels), counts the lines of every file with a source extension and
prints a running ADDED / TOTAL / FILE table followed by the total.`,
	Version:       version,
	Args:          cobra.MaximumNArgs(1),
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		opts, err := loadOptions(viper.GetViper(), args)
		if err != nil {
			return err
		}
		setupLogging(os.Stderr, opts.Verbose)

		cwd, err := os.Getwd()
		if err != nil {
			return fmt.Errorf("error getting working directory: %w", err)
		}
		return run(opts, cwd, os.Stdin, os.Stdout)
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.config/loc/config.toml)")

	// Filtering
	rootCmd.Flags().StringSliceP("ext", "e", defaultExtensions, "Source file extensions to count (comma-separated, case-sensitive)")
	viper.BindPFlag("extensions", rootCmd.Flags().Lookup("ext"))
	rootCmd.Flags().String("languages-file", "", "YAML file defining language extension groups")
	viper.BindPFlag("languages_file", rootCmd.Flags().Lookup("languages-file"))
	rootCmd.Flags().StringSliceP("lang", "l", nil, "Language groups from the languages file to count (overrides --ext)")
	viper.BindPFlag("languages", rootCmd.Flags().Lookup("lang"))
	rootCmd.Flags().Bool("gitignore", false, "Skip files and directories matched by the root .gitignore")
	viper.BindPFlag("gitignore", rootCmd.Flags().Lookup("gitignore"))

	// Root discovery
	rootCmd.Flags().String("locator", locatorMarker, "How to find the root when no DIR is given: marker or git")
	viper.BindPFlag("locator", rootCmd.Flags().Lookup("locator"))
	rootCmd.Flags().String("marker", "apps", "Name of the marker directory that identifies the root")
	viper.BindPFlag("marker", rootCmd.Flags().Lookup("marker"))
	rootCmd.Flags().Int("max-levels", 5, "Number of directories (current and parents) searched for the marker")
	viper.BindPFlag("max_levels", rootCmd.Flags().Lookup("max-levels"))
	rootCmd.Flags().Bool("enter-marker", true, "Count inside the marker directory instead of the directory containing it")
	viper.BindPFlag("enter_marker", rootCmd.Flags().Lookup("enter-marker"))
	rootCmd.Flags().Bool("interactive", false, "Pick the directory to count from a fuzzy finder")
	viper.BindPFlag("interactive", rootCmd.Flags().Lookup("interactive"))

	// Traversal
	rootCmd.Flags().BoolP("recursive", "r", false, "Descend into subdirectories")
	viper.BindPFlag("recursive", rootCmd.Flags().Lookup("recursive"))

	// Output
	rootCmd.Flags().StringP("output", "o", outputTable, "Output format: table or yaml")
	viper.BindPFlag("output", rootCmd.Flags().Lookup("output"))
	rootCmd.Flags().BoolP("clipboard", "c", false, "Also copy the report to the clipboard")
	viper.BindPFlag("clipboard", rootCmd.Flags().Lookup("clipboard"))
	rootCmd.Flags().Bool("no-pause", false, "Exit without waiting for a key press")
	viper.BindPFlag("no_pause", rootCmd.Flags().Lookup("no-pause"))
	rootCmd.Flags().BoolP("verbose", "v", false, "Log skipped entries and directory descents")
	viper.BindPFlag("verbose", rootCmd.Flags().Lookup("verbose"))

	setDefaults(viper.GetViper())
}

// setDefaults registers the default value of every config key.
func setDefaults(v *viper.Viper) {
	v.SetDefault("extensions", defaultExtensions)
	v.SetDefault("languages_file", "")
	v.SetDefault("languages", []string{})
	v.SetDefault("gitignore", false)
	v.SetDefault("locator", locatorMarker)
	v.SetDefault("marker", "apps")
	v.SetDefault("max_levels", 5)
	v.SetDefault("enter_marker", true)
	v.SetDefault("interactive", false)
	v.SetDefault("recursive", false)
	v.SetDefault("output", outputTable)
	v.SetDefault("clipboard", false)
	v.SetDefault("no_pause", false)
	v.SetDefault("verbose", false)
}

// initConfig reads in .env, the config file and LOC_* environment variables.
func initConfig() {
	// A missing .env is the normal case.
	_ = godotenv.Load()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		cobra.CheckErr(err)

		viper.AddConfigPath(filepath.Join(home, ".config", "loc"))
		viper.AddConfigPath(".")
		viper.SetConfigName("config")
		viper.SetConfigType("toml")
	}

	viper.SetEnvPrefix("LOC")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		logrus.WithField("file", viper.ConfigFileUsed()).Info("using config file")
	} else {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			logrus.WithError(err).Warn("error reading config file")
		}
	}
}

// loadOptions resolves the config keys into Options and validates them.
func loadOptions(v *viper.Viper, args []string) (Options, error) {
	opts := Options{
		Extensions:    v.GetStringSlice("extensions"),
		LanguagesFile: v.GetString("languages_file"),
		Languages:     v.GetStringSlice("languages"),
		Locator:       strings.ToLower(v.GetString("locator")),
		Marker:        v.GetString("marker"),
		MaxLevels:     v.GetInt("max_levels"),
		EnterMarker:   v.GetBool("enter_marker"),
		Recursive:     v.GetBool("recursive"),
		GitIgnore:     v.GetBool("gitignore"),
		Output:        strings.ToLower(v.GetString("output")),
		Clipboard:     v.GetBool("clipboard"),
		NoPause:       v.GetBool("no_pause"),
		Interactive:   v.GetBool("interactive"),
		Verbose:       v.GetBool("verbose"),
	}
	if len(args) > 0 {
		opts.StartPath = args[0]
	}

	switch opts.Output {
	case outputTable, outputYAML:
	default:
		return Options{}, fmt.Errorf("unsupported output format: %s. Use 'table' or 'yaml'", opts.Output)
	}
	switch opts.Locator {
	case locatorMarker, locatorGit:
	default:
		return Options{}, fmt.Errorf("unsupported locator: %s. Use 'marker' or 'git'", opts.Locator)
	}
	if opts.MaxLevels <= 0 {
		return Options{}, fmt.Errorf("max_levels must be positive, got %d", opts.MaxLevels)
	}
	if opts.Locator == locatorMarker && opts.StartPath == "" && opts.Marker == "" {
		return Options{}, errors.New("marker must not be empty with the marker locator")
	}
	return opts, nil
}

// run locates the root, counts it and prints the report to stdout.
func run(opts Options, cwd string, stdin io.Reader, stdout io.Writer) error {
	// --- Which files count ---
	matcher, err := buildExtensionSet(opts)
	if err != nil {
		return err
	}

	// Tee the report when it is headed for the clipboard.
	var captured bytes.Buffer
	out := stdout
	if opts.Clipboard {
		out = io.MultiWriter(stdout, &captured)
	}
	reporter, err := newReporter(opts.Output, out)
	if err != nil {
		return err
	}

	// --- Where to start ---
	locator, err := newLocator(opts, cwd)
	if err != nil {
		return err
	}
	root, err := locator.Locate()
	if err != nil {
		return err
	}
	if opts.Interactive {
		picked, err := pickStartDir(root)
		if err != nil {
			return err
		}
		if picked == "" {
			logrus.Info("interactive selection aborted")
			return nil
		}
		root = picked
	}

	// --- Counting ---
	counter := &LineCounter{
		Matcher:   matcher,
		Reporter:  reporter,
		Recursive: opts.Recursive,
		Log:       logrus.StandardLogger(),
	}
	if opts.GitIgnore {
		ignore, err := loadIgnoreMatcher(root)
		if err != nil {
			return err
		}
		if ignore == nil {
			logrus.WithField("root", root).Warn("no .gitignore found, counting everything")
		} else {
			counter.Ignore = ignore
		}
	}

	logrus.WithFields(logrus.Fields{
		"root":       root,
		"extensions": matcher.Extensions(),
		"recursive":  opts.Recursive,
	}).Debug("counting lines")

	// The table is preceded by the directory it covers.
	if opts.Output == outputTable {
		fmt.Fprintln(out, root)
	}
	total, err := counter.Count(root)
	if err != nil {
		return err
	}
	if err := reporter.Total(total); err != nil {
		return err
	}

	// --- After the report ---
	if opts.Clipboard {
		if err := clipboard.WriteAll(captured.String()); err != nil {
			logrus.WithError(err).Warn("could not copy report to clipboard")
		} else {
			logrus.Info("report copied to clipboard")
		}
	}

	if !opts.NoPause {
		waitForKey(stdin, stdout)
	}
	return nil
}

// waitForKey blocks until the user presses enter or stdin is closed.
func waitForKey(in io.Reader, out io.Writer) {
	fmt.Fprint(out, "\nPress a key to continue...")
	_, _ = bufio.NewReader(in).ReadString('\n')
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "loc error: %v\n", err)
		os.Exit(1)
	}
}
