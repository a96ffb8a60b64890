package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/lsltools/trigalign"
	"github.com/lsltools/trigalign/internal/trigdb"
	"github.com/lsltools/trigalign/widecsv"
)

var githash = "githash not computed"
var buildDate = "build date not computed"

// makeFileExist checks that dir/filename exists, and creates the directory
// and file if it doesn't.
func makeFileExist(dir, filename string) (string, error) {
	if strings.Contains(dir, "$HOME") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		dir = strings.Replace(dir, "$HOME", home, 1)
	}
	if _, err := os.Stat(dir); err != nil {
		if !os.IsNotExist(err) {
			return "", err
		}
		if err2 := os.MkdirAll(dir, 0775); err2 != nil {
			return "", err2
		}
	}
	fullname := path.Join(dir, filename)
	if _, err := os.Stat(fullname); os.IsNotExist(err) {
		f, err2 := os.OpenFile(fullname, os.O_WRONLY|os.O_CREATE, 0664)
		if err2 != nil {
			return "", err2
		}
		f.Close()
	}
	return fullname, nil
}

// setupViper sets up the viper configuration manager: says where to find
// config files and the filename and suffix. Sets some defaults.
func setupViper() error {
	viper.SetDefault("timestampcolumn", trigalign.TimestampColumn)
	viper.SetDefault("preamblelines", widecsv.PreambleLines)
	viper.SetDefault("usedb", false)
	viper.SetDefault("split.channel", "")
	viper.SetDefault("split.names", []string{})
	viper.SetDefault("split.values", []int{})

	HOME, err := os.UserHomeDir()
	if err != nil {
		fmt.Printf("Error finding User Home Dir: %s\n", err)
	}
	dotTrigalign := filepath.Join(HOME, ".trigalign")
	const filename string = "config"
	const suffix string = ".yaml"
	if _, err := makeFileExist(dotTrigalign, filename+suffix); err != nil {
		return err
	}

	viper.SetConfigName(filename)
	viper.AddConfigPath(filepath.FromSlash("/etc/trigalign"))
	viper.AddConfigPath(dotTrigalign)
	viper.AddConfigPath(".")
	if err := viper.ReadInConfig(); err != nil {
		return fmt.Errorf("error reading config file: %s", err)
	}
	return nil
}

func startLogger(pfname string) *log.Logger {
	probFile, err := os.OpenFile(pfname, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0666)
	if err != nil {
		panic(fmt.Sprintf("Could not open log file '%s'", pfname))
	}
	probLogger := log.New(probFile, "", log.LstdFlags)
	probLogger.SetOutput(&lumberjack.Logger{
		Filename:   pfname,
		MaxSize:    10,   // megabytes after which new file is created
		MaxBackups: 4,    // number of backups
		MaxAge:     180,  // days
		Compress:   true, // whether to gzip the backups
	})
	return probLogger
}

func startLogging() {
	HOME, err := os.UserHomeDir()
	if err != nil {
		panic(err)
	}
	logdir := filepath.Join(HOME, ".trigalign", "logs")
	problemname, err := makeFileExist(logdir, "problems.log")
	if err != nil {
		panic(err)
	}
	logname, err := makeFileExist(logdir, "updates.log")
	if err != nil {
		panic(err)
	}
	trigalign.ProblemLogger = startLogger(problemname)
	trigalign.UpdateLogger = startLogger(logname)
}

func splitConfig(splitFlag bool) *trigalign.SplitConfig {
	if !splitFlag {
		return nil
	}
	cfg := &trigalign.SplitConfig{
		Channel: viper.GetString("split.channel"),
		Names:   viper.GetStringSlice("split.names"),
	}
	for _, v := range viper.GetIntSlice("split.values") {
		cfg.Values = append(cfg.Values, v)
	}
	if cfg.Channel == "" {
		fmt.Println("-split requested but split.channel is not configured")
		os.Exit(1)
	}
	return cfg
}

func main() {
	trigalign.Build.Date = strings.Replace(buildDate, ".", " ", -1) // workaround for Make problems
	trigalign.Build.Githash = githash
	trigalign.Build.Summary = fmt.Sprintf("trigalign version %s (git commit %s)", trigalign.Build.Version, githash)
	if host, err := os.Hostname(); err == nil {
		trigalign.Build.Host = host
	} else {
		trigalign.Build.Host = "host not detected"
	}

	printVersion := flag.Bool("version", false, "print version and quit")
	filePath := flag.String("filepath", "", "wide-format CSV file to analyze (required)")
	source := flag.String("source", "lightdiode", "ground-truth channel name")
	targets := flag.String("targets", "", "comma-separated target channel names (required)")
	timestamp := flag.String("timestamp", "", "timestamp column name (default from config)")
	split := flag.Bool("split", false, "split the configured composite trigger channel first")
	offset := flag.Float64("offset", 0.0, "fixed offset correction in seconds, subtracted from every pair")
	npyDir := flag.String("npy", "", "directory to write per-target offset .npy files (optional)")
	flag.Parse()

	if *printVersion {
		fmt.Printf("This is trigalign version %s\n", trigalign.Build.Version)
		fmt.Printf("Git commit hash: %s\n", githash)
		fmt.Printf("Build time: %s\n", buildDate)
		fmt.Printf("Built on go version %s\n", runtime.Version())
		os.Exit(0)
	}
	if *filePath == "" || *targets == "" {
		flag.Usage()
		os.Exit(1)
	}

	startLogging()
	if err := setupViper(); err != nil {
		panic(err)
	}

	tsColumn := *timestamp
	if tsColumn == "" {
		tsColumn = viper.GetString("timestampcolumn")
	}
	cfg := trigalign.AnalysisConfig{
		TimestampColumn: tsColumn,
		Source:          *source,
		Targets:         strings.Split(*targets, ","),
		FixedOffset:     *offset,
		Split:           splitConfig(*split),
		PreambleLines:   viper.GetInt("preamblelines"),
	}

	start := time.Now()
	report, err := trigalign.AnalyzeFile(*filePath, cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "analysis failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Print(report)

	if *npyDir != "" {
		if err := report.WriteNPY(*npyDir); err != nil {
			fmt.Fprintf(os.Stderr, "npy export failed: %v\n", err)
			os.Exit(1)
		}
	}

	if viper.GetBool("usedb") {
		recordToDB(report, cfg, start)
	}
}

// recordToDB stores the session and one row per channel pair. A missing
// database is not an error; the connection degrades to a no-op.
func recordToDB(report *trigalign.Report, cfg trigalign.AnalysisConfig, start time.Time) {
	session := &trigdb.SessionMessage{
		ID:        trigdb.NewID(),
		Hostname:  trigalign.Build.Host,
		Version:   trigalign.Build.Version,
		GoVersion: runtime.Version(),
		Filepath:  report.Path,
		Source:    cfg.Source,
		Start:     start,
		End:       time.Now(),
	}
	abort := make(chan struct{})
	db := trigdb.StartConnection(session, abort)
	if !db.IsConnected() {
		trigalign.ProblemLogger.Printf("results database unavailable; skipping DB records")
		close(abort)
		return
	}
	for _, pair := range report.Pairs {
		if pair.Err != nil {
			continue
		}
		for _, stats := range []trigalign.OffsetStats{pair.Stats, pair.TrimmedStats} {
			db.RecordPair(&trigdb.PairMessage{
				ID:        trigdb.NewID(),
				SessionID: session.ID,
				Source:    cfg.Source,
				Target:    pair.Target,
				NEvents:   stats.N,
				Mean:      stats.Mean,
				Std:       stats.Std,
				Min:       stats.Min,
				Max:       stats.Max,
				Range:     stats.Range,
				Trimmed:   stats.Trimmed,
			})
		}
	}
	close(abort)
	db.Wait()
}
