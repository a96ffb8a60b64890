// Flashsim publishes simulated headset and marker streams over ZMQ, so the
// recorder and analysis tools can be exercised end to end without a photo-
// diode rig. The headset stream carries sine channels plus a lightdiode
// line that flashes once per trial; the marker stream emits one composite
// trigger value at each flash onset, delayed by a configurable amount to
// give the analysis a known offset to recover.
package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/lsltools/trigalign"
)

func main() {
	endpoint := flag.String("endpoint", "tcp://*:5565", "ZMQ PUB endpoint to bind")
	trials := flag.Int("trials", 25, "number of flashes to present")
	rate := flag.Float64("rate", 300.0, "headset sample rate in Hz")
	displayRate := flag.Float64("displayrate", 0.25, "seconds the flash is displayed (and off) per trial")
	markerDelay := flag.Float64("markerdelay", 0.015, "simulated software marker latency in seconds")
	markerValue := flag.Int("markervalue", 3, "composite trigger value carried by each marker")
	flag.Parse()

	pub, err := trigalign.NewStreamPublisher(*endpoint)
	if err != nil {
		fmt.Fprintf(os.Stderr, "binding publisher: %v\n", err)
		os.Exit(1)
	}
	defer pub.Close()
	fmt.Printf("Publishing %d trials on %s (headset %g Hz)\n", *trials, *endpoint, *rate)

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)

	const nchan = 6
	period := int(*displayRate * 2 * *rate) // flash on for half the period
	flashLen := period / 2
	markerLag := int(*markerDelay * *rate)
	totalSamples := (*trials + 1) * period

	ticker := time.NewTicker(time.Duration(float64(time.Second) / *rate))
	defer ticker.Stop()
	start := time.Now()
	values := make([]float64, nchan)
	for n := 0; n < totalSamples; n++ {
		select {
		case <-interrupt:
			fmt.Println("\nInterrupted.")
			return
		case <-ticker.C:
		}
		timestamp := time.Since(start).Seconds()
		phase := n % period

		for i := 0; i < nchan-1; i++ {
			values[i] = 0.1 * float64(i)
		}
		if phase < flashLen {
			values[nchan-1] = 1
		} else {
			values[nchan-1] = 0
		}
		if err := pub.Publish("WS-default", timestamp, values); err != nil {
			fmt.Fprintf(os.Stderr, "publish failed: %v\n", err)
			os.Exit(1)
		}

		// The software marker fires once per flash, a little late, like a
		// real marker written from presentation code.
		if phase == markerLag {
			if err := pub.Publish("PsychoPyMarkers", timestamp, []float64{float64(*markerValue)}); err != nil {
				fmt.Fprintf(os.Stderr, "publish failed: %v\n", err)
				os.Exit(1)
			}
		}
	}
	fmt.Println("All trials published.")
}
