package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/lsltools/trigalign"
	"github.com/lsltools/trigalign/widecsv"
)

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

func setupViper() error {
	viper.SetDefault("endpoint", "tcp://localhost:5565")
	viper.SetDefault("tolerance", trigalign.DefaultMergeTolerance)

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
		MaxSize:    10,
		MaxBackups: 4,
		MaxAge:     180,
		Compress:   true,
	})
	return probLogger
}

// streamInfoFromConfig reads a stream's channel layout from the config
// file's streams.<name> section. The SUB socket carries no metadata, so the
// labels must be configured just like the rest of the recording setup.
func streamInfoFromConfig(name string) trigalign.StreamInfo {
	key := "streams." + name
	labels := viper.GetStringSlice(key + ".labels")
	count := viper.GetInt(key + ".channels")
	if count == 0 {
		count = len(labels)
	}
	return trigalign.StreamInfo{
		Name:          name,
		ChannelCount:  count,
		ChannelLabels: labels,
		NominalRate:   viper.GetFloat64(key + ".rate"),
	}
}

func main() {
	streams := flag.String("streams", "", "comma-separated stream names to record (required)")
	duration := flag.Int("duration", 0, "recording duration in seconds (required)")
	filename := flag.String("filename", "", "base for the final output filename (required)")
	flag.Parse()
	if *streams == "" || *duration <= 0 || *filename == "" {
		flag.Usage()
		os.Exit(1)
	}

	HOME, err := os.UserHomeDir()
	if err != nil {
		panic(err)
	}
	logdir := filepath.Join(HOME, ".trigalign", "logs")
	problemname, err := makeFileExist(logdir, "problems.log")
	if err != nil {
		panic(err)
	}
	updatename, err := makeFileExist(logdir, "updates.log")
	if err != nil {
		panic(err)
	}
	trigalign.ProblemLogger = startLogger(problemname)
	trigalign.UpdateLogger = startLogger(updatename)

	if err := setupViper(); err != nil {
		panic(err)
	}
	endpoint := viper.GetString("endpoint")

	var sources []trigalign.StreamReader
	labels := make(map[string][]string)
	for _, name := range strings.Split(*streams, ",") {
		info := streamInfoFromConfig(name)
		if info.ChannelCount == 0 {
			fmt.Fprintf(os.Stderr, "stream %q has no channel configuration under streams.%s\n", name, name)
			os.Exit(1)
		}
		source, err := trigalign.NewZMQSource(endpoint, info)
		if err != nil {
			fmt.Fprintf(os.Stderr, "connecting stream %q: %v\n", name, err)
			os.Exit(1)
		}
		defer source.Close()
		sources = append(sources, source)
		labels[name] = info.ChannelLabels
		fmt.Printf("Subscribed to stream %q (%d channels) at %s\n", name, info.ChannelCount, endpoint)
	}

	// Interrupt flushes what was collected rather than discarding the run.
	abort := make(chan struct{})
	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-interrupt
		fmt.Println("\nInterrupted; flushing collected rows")
		close(abort)
	}()

	stamp := time.Now().Format("20060102-150405")
	tempName := fmt.Sprintf("temp-%s.csv", stamp)
	recorder := &trigalign.Recorder{
		Sources:  sources,
		Duration: time.Duration(*duration) * time.Second,
	}
	fmt.Printf("Recording raw data to temporary file: %s\n", tempName)
	nrows, err := recorder.Record(tempName, abort)
	if err != nil {
		fmt.Fprintf(os.Stderr, "recording failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Raw recording finished: %d rows.\n", nrows)

	rows, err := trigalign.ReadLongCSV(tempName)
	if err != nil {
		fmt.Fprintf(os.Stderr, "reading temporary file: %v\n", err)
		os.Exit(1)
	}
	wide, err := trigalign.Reshape(rows, labels, trigalign.ReshapeConfig{
		Tolerance: viper.GetFloat64("tolerance"),
	})
	if err != nil {
		// The raw long-format file is all we have; keep it for a manual rescue.
		fmt.Fprintf(os.Stderr, "reshaping failed: %v\nraw data kept in %s\n", err, tempName)
		os.Exit(1)
	}

	primaryName := strings.Split(*streams, ",")[0]
	meta := widecsv.Metadata{
		StreamName: primaryName,
		DAQType:    "ZMQ",
		Units:      "seconds",
		Reference:  "device monotonic clock",
		SampleRate: streamInfoFromConfig(primaryName).NominalRate,
	}
	finalName := fmt.Sprintf("%s-%s.csv", *filename, stamp)
	if err := widecsv.Write(finalName, meta, wide.ColumnNames(), wide.Rows()); err != nil {
		fmt.Fprintf(os.Stderr, "writing %s: %v\n", finalName, err)
		os.Exit(1)
	}
	fmt.Printf("Saved formatted data to: %s\n", finalName)

	if err := os.Remove(tempName); err != nil {
		trigalign.ProblemLogger.Printf("could not remove temporary file %s: %v", tempName, err)
	}
}
