package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	// Global
	verboseLogging bool
	quietLogging   bool
	exportsDir     string
	cfgFile        string

	// Export
	exportLocalDir     string
	exportBranch       string
	exportSubdir       string
	exportToken        string
	exportFormat       string
	exportOutputFile   string
	exportPatternMode  string
	exportPatternInput string
	exportMaxSizeKB    int
	exportSkipRemove   bool
	exportUseSubdirURL bool
	exportClipboard    bool
	exportInteractive  bool
	exportModelTokens  string
	exportHFTokenizer  string

	// Convert
	convertInput     string
	convertFormat    string
	convertOutputDir string
	convertPages     string

	// Web
	webHost       string
	webPort       int
	webUploadsDir string
)

// version is the application version, set via ldflags.
var version string = "dev"

var rootCmd = &cobra.Command{
	Use:   "tessera [PATH_OR_URL]",
	Short: "Tessera flattens a codebase into one reviewable file.",
	Long: `Tessera exports a GitHub repository or local directory into a single
text or JSON artifact, converts common document formats, and serves a
small web UI over the same engine.

Passing a directory or repository URL directly is shorthand for
'tessera export'.`,
	Version: version,
	Args:    cobra.ArbitraryArgs,
	Run: func(cmd *cobra.Command, args []string) {
		if len(args) == 0 {
			_ = cmd.Help()
			return
		}
		runExport(cmd, args)
	},
}

var exportCmd = &cobra.Command{
	Use:   "export [REPO_URL]",
	Short: "Export a repository or local directory to one text or JSON file",
	Args:  cobra.MaximumNArgs(1),
	Run:   runExport,
}

var convertCmd = &cobra.Command{
	Use:   "convert",
	Short: "Convert a document to text, csv, markdown, or pdf",
	Run: func(cmd *cobra.Command, args []string) {
		log := buildLogger()
		opts := ConvertOptions{
			Input:     convertInput,
			Format:    convertFormat,
			OutputDir: convertOutputDir,
			Pages:     convertPages,
		}
		if opts.OutputDir == "" {
			opts.OutputDir = exportsDir
		}
		if _, err := ConvertDocument(opts, BuiltinCapabilities(), log); err != nil {
			log.Errorf("conversion failed: %v", err)
			os.Exit(1)
		}
	},
}

var webCmd = &cobra.Command{
	Use:   "web",
	Short: "Serve the browser UI and HTTP API",
	Run: func(cmd *cobra.Command, args []string) {
		log := buildLogger()
		opts := WebOptions{
			Host:       webHost,
			Port:       webPort,
			ExportsDir: exportsDir,
			UploadsDir: webUploadsDir,
		}
		if err := RunWebServer(opts, BuiltinCapabilities(), log); err != nil {
			log.Errorf("server stopped: %v", err)
			os.Exit(1)
		}
	},
}

func runExport(cmd *cobra.Command, args []string) {
	log := buildLogger()

	opts := ExportOptions{
		LocalDir:     exportLocalDir,
		Branch:       exportBranch,
		Subdir:       exportSubdir,
		Token:        exportToken,
		Format:       exportFormat,
		OutputFile:   exportOutputFile,
		ExportsDir:   exportsDir,
		PatternMode:  exportPatternMode,
		PatternInput: exportPatternInput,
		MaxSizeKB:    exportMaxSizeKB,
		SkipRemove:   exportSkipRemove,
		UseSubdirURL: exportUseSubdirURL,
	}

	if len(args) == 1 {
		arg := args[0]
		switch {
		case statIsDir(arg):
			opts.LocalDir = arg
		case isGitURL(arg):
			opts.RepoURL = arg
		default:
			log.Errorf("%s is neither a directory nor a repository URL", arg)
			os.Exit(1)
		}
	}
	if opts.RepoURL == "" && opts.LocalDir == "" {
		log.Errorf("provide a repository URL or --local-dir")
		os.Exit(1)
	}

	if exportInteractive && opts.PatternInput == "" {
		if opts.LocalDir == "" {
			log.Warnf("interactive selection applies to local directory exports, skipping")
		} else {
			patterns, err := PickIncludePatterns(opts.LocalDir, log)
			if err != nil {
				log.Errorf("interactive selection failed: %v", err)
				os.Exit(1)
			}
			if patterns != "" {
				opts.PatternMode = "include"
				opts.PatternInput = patterns
			}
		}
	}

	var (
		output string
		err    error
	)
	if opts.RepoURL != "" {
		output, _, err = CloneAndExport(opts, log)
	} else {
		output, _, err = LocalExport(opts, log)
	}
	if err != nil {
		log.Errorf("export failed: %v", err)
		os.Exit(1)
	}

	if exportClipboard {
		copyArtifactToClipboard(output, log)
	}
	if exportModelTokens != "" || exportHFTokenizer != "" {
		estimateArtifactTokens(output, log)
	}
}

// copyArtifactToClipboard is best effort: a headless machine has no
// clipboard and the export already succeeded.
func copyArtifactToClipboard(path string, log Logger) {
	content, err := os.ReadFile(path)
	if err != nil {
		log.Warnf("could not read %s for clipboard copy: %v", path, err)
		return
	}
	if err := clipboard.WriteAll(string(content)); err != nil {
		log.Warnf("clipboard copy failed: %v", err)
		return
	}
	log.Infof("Output copied to clipboard")
}

func estimateArtifactTokens(path string, log Logger) {
	var (
		tok Tokenizer
		err error
	)
	if exportHFTokenizer != "" {
		tok, err = NewHFTokenizer(exportHFTokenizer)
	} else {
		tok, err = NewTiktokenTokenizer(exportModelTokens, log)
	}
	if err != nil {
		log.Warnf("tokenizer unavailable: %v", err)
		return
	}
	total := CountFileTokens([]string{path}, tok, 0, log)
	log.Infof("Estimated %s tokens in %s (%s)", groupThousands(total), path, tok.Name())
}

func buildLogger() Logger {
	level := LevelInfo
	if verboseLogging {
		level = LevelDebug
	}
	if quietLogging {
		level = LevelError
	}
	return NewLogger(level, os.Stderr)
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global
	rootCmd.PersistentFlags().BoolVarP(&verboseLogging, "verbose", "v", false, "Enable debug logging")
	viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
	rootCmd.PersistentFlags().BoolVarP(&quietLogging, "quiet", "q", false, "Only log errors")
	viper.BindPFlag("quiet", rootCmd.PersistentFlags().Lookup("quiet"))
	rootCmd.PersistentFlags().StringVar(&exportsDir, "exports-dir", "", "Directory for generated artifacts (default ./exports)")
	viper.BindPFlag("exports_dir", rootCmd.PersistentFlags().Lookup("exports-dir"))
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Config file (default is $HOME/.config/tessera/config.toml)")

	// Export
	exportCmd.Flags().StringVar(&exportLocalDir, "local-dir", "", "Export a local directory instead of cloning")
	viper.BindPFlag("local_dir", exportCmd.Flags().Lookup("local-dir"))
	exportCmd.Flags().StringVar(&exportBranch, "branch", "", "Branch or commit to check out (beats the URL branch)")
	viper.BindPFlag("branch", exportCmd.Flags().Lookup("branch"))
	exportCmd.Flags().StringVar(&exportSubdir, "subdir", "", "Export only this subdirectory")
	viper.BindPFlag("subdir", exportCmd.Flags().Lookup("subdir"))
	exportCmd.Flags().StringVar(&exportToken, "token", "", "GitHub token for private repositories")
	viper.BindPFlag("token", exportCmd.Flags().Lookup("token"))
	exportCmd.Flags().StringVar(&exportFormat, "format", "text", "Artifact format: text or json")
	viper.BindPFlag("format", exportCmd.Flags().Lookup("format"))
	exportCmd.Flags().StringVar(&exportOutputFile, "output-file", "", "Artifact file name (default derived from the repository)")
	viper.BindPFlag("output_file", exportCmd.Flags().Lookup("output-file"))
	exportCmd.Flags().StringVar(&exportPatternMode, "pattern-mode", "exclude", "How patterns are applied: exclude or include")
	viper.BindPFlag("pattern_mode", exportCmd.Flags().Lookup("pattern-mode"))
	exportCmd.Flags().StringVar(&exportPatternInput, "pattern-input", "", "Semicolon-separated glob patterns")
	viper.BindPFlag("pattern_input", exportCmd.Flags().Lookup("pattern-input"))
	exportCmd.Flags().IntVar(&exportMaxSizeKB, "max-size-kb", 0, "Skip files larger than this many KB (0 for no limit)")
	viper.BindPFlag("max_size_kb", exportCmd.Flags().Lookup("max-size-kb"))
	exportCmd.Flags().BoolVar(&exportSkipRemove, "skip-remove", false, "Keep the temporary clone directory")
	viper.BindPFlag("skip_remove", exportCmd.Flags().Lookup("skip-remove"))
	exportCmd.Flags().BoolVar(&exportUseSubdirURL, "repo-url-sub", false, "Honor the /tree/<branch>/<subdir> part of the URL")
	viper.BindPFlag("repo_url_sub", exportCmd.Flags().Lookup("repo-url-sub"))
	exportCmd.Flags().BoolVarP(&exportClipboard, "clipboard", "c", false, "Copy the artifact to the clipboard after export")
	viper.BindPFlag("clipboard", exportCmd.Flags().Lookup("clipboard"))
	exportCmd.Flags().BoolVar(&exportInteractive, "interactive", false, "Pick files to include with a fuzzy finder")
	viper.BindPFlag("interactive", exportCmd.Flags().Lookup("interactive"))
	exportCmd.Flags().StringVar(&exportModelTokens, "model-tokens", "", "Estimate artifact tokens for this model (e.g. gpt-4o)")
	viper.BindPFlag("model_tokens", exportCmd.Flags().Lookup("model-tokens"))
	exportCmd.Flags().StringVar(&exportHFTokenizer, "hf-tokenizer", "", "Estimate artifact tokens with a local tokenizer.json")
	viper.BindPFlag("hf_tokenizer", exportCmd.Flags().Lookup("hf-tokenizer"))

	// Convert
	convertCmd.Flags().StringVar(&convertInput, "input", "", "File, directory, or URL to convert")
	viper.BindPFlag("input", convertCmd.Flags().Lookup("input"))
	convertCmd.Flags().StringVar(&convertFormat, "format", "text", "Target format: text, csv, markdown, or pdf")
	viper.BindPFlag("convert_format", convertCmd.Flags().Lookup("format"))
	convertCmd.Flags().StringVar(&convertOutputDir, "output-dir", "", "Directory for converted files (default --exports-dir)")
	viper.BindPFlag("output_dir", convertCmd.Flags().Lookup("output-dir"))
	convertCmd.Flags().StringVar(&convertPages, "pages", "", `Page range for paged inputs, e.g. "1-5" or "1,3-4"`)
	viper.BindPFlag("pages", convertCmd.Flags().Lookup("pages"))

	// Web
	webCmd.Flags().StringVar(&webHost, "host", "127.0.0.1", "Interface to bind")
	viper.BindPFlag("host", webCmd.Flags().Lookup("host"))
	webCmd.Flags().IntVar(&webPort, "port", 8000, "Port to listen on")
	viper.BindPFlag("port", webCmd.Flags().Lookup("port"))
	webCmd.Flags().StringVar(&webUploadsDir, "uploads-dir", "uploads", "Directory for uploaded files")
	viper.BindPFlag("uploads_dir", webCmd.Flags().Lookup("uploads-dir"))

	rootCmd.AddCommand(exportCmd, convertCmd, webCmd)

	viper.SetDefault("format", "text")
	viper.SetDefault("pattern_mode", "exclude")
	viper.SetDefault("max_size_kb", 0)
	viper.SetDefault("host", "127.0.0.1")
	viper.SetDefault("port", 8000)
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		cobra.CheckErr(err)

		viper.AddConfigPath(filepath.Join(home, ".config", "tessera"))
		viper.AddConfigPath(".")
		viper.SetConfigName("config")
		viper.SetConfigType("toml")
	}

	viper.AutomaticEnv()
	viper.SetEnvPrefix("TESSERA")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	} else if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
		fmt.Fprintf(os.Stderr, "Error reading config file: %s\n", err)
	}

	// BindPFlag only flows flag -> viper. For values the config file may
	// set, pull them back into the flag variables unless the flag was
	// given explicitly.
	if !exportCmd.Flags().Changed("format") {
		exportFormat = viper.GetString("format")
	}
	if !exportCmd.Flags().Changed("pattern-mode") {
		exportPatternMode = viper.GetString("pattern_mode")
	}
	if !exportCmd.Flags().Changed("pattern-input") {
		exportPatternInput = viper.GetString("pattern_input")
	}
	if !exportCmd.Flags().Changed("max-size-kb") {
		exportMaxSizeKB = viper.GetInt("max_size_kb")
	}
	if !rootCmd.PersistentFlags().Changed("exports-dir") {
		exportsDir = viper.GetString("exports_dir")
	}
	if !webCmd.Flags().Changed("host") {
		webHost = viper.GetString("host")
	}
	if !webCmd.Flags().Changed("port") {
		webPort = viper.GetInt("port")
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
