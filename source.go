package trigalign

import (
	"fmt"
	"math"
	"time"
)

// StreamInfo describes one live sample stream: its name, channel layout, and
// the rate the device claims to sample at.
type StreamInfo struct {
	Name          string
	ChannelCount  int
	ChannelLabels []string
	NominalRate   float64
}

// StreamReader is the contract a live data source must satisfy. PullSample
// never blocks: ok is false when no sample is ready, and the recorder simply
// moves on to the next source. There is no backpressure; samples are lost if
// the reader is not drained fast enough.
type StreamReader interface {
	Info() StreamInfo
	PullSample() (values []float64, timestamp float64, ok bool, err error)
	Close() error
}

// SimFlashSource synthesizes a flash-test stream without any hardware. It
// paces itself against the wall clock at the nominal rate, so a Recorder can
// poll it exactly as it would poll a live source.
//
// Two shapes are available. A "headset" shape produces NChan channels where
// the last one is a photodiode line that goes to 1 for FlashSamples samples
// out of every PeriodSamples. A "marker" shape produces one channel that
// carries MarkerValue on the first sample of each period and 0 elsewhere.
type SimFlashSource struct {
	Name          string
	NChan         int
	SampleRate    float64
	PeriodSamples int
	FlashSamples  int
	MarkerValue   float64
	Marker        bool    // marker shape instead of headset shape
	MaxSamples    int     // stop producing after this many samples (0 = unlimited)
	ClockOffset   float64 // added to every timestamp, to simulate unsynchronized clocks

	cursor int
	start  time.Time
}

// Info returns the stream metadata. Headset channels are labeled ch1..chN
// with the final channel relabeled "lightdiode"; the marker shape has a
// single "SoftwareMarker" channel.
func (s *SimFlashSource) Info() StreamInfo {
	if s.Marker {
		return StreamInfo{Name: s.Name, ChannelCount: 1,
			ChannelLabels: []string{"SoftwareMarker"}, NominalRate: s.SampleRate}
	}
	labels := make([]string, s.NChan)
	for i := range labels {
		labels[i] = fmt.Sprintf("ch%d", i+1)
	}
	labels[s.NChan-1] = "lightdiode"
	return StreamInfo{Name: s.Name, ChannelCount: s.NChan,
		ChannelLabels: labels, NominalRate: s.SampleRate}
}

// PullSample returns the next synthesized sample, or ok=false if the wall
// clock says it is not due yet.
func (s *SimFlashSource) PullSample() ([]float64, float64, bool, error) {
	if s.start.IsZero() {
		s.start = time.Now()
	}
	if s.MaxSamples > 0 && s.cursor >= s.MaxSamples {
		return nil, 0, false, nil
	}
	due := int(time.Since(s.start).Seconds() * s.SampleRate)
	if s.cursor >= due {
		return nil, 0, false, nil
	}
	n := s.cursor
	s.cursor++
	timestamp := s.ClockOffset + float64(n)/s.SampleRate

	phase := n % s.PeriodSamples
	if s.Marker {
		v := 0.0
		if phase == 0 {
			v = s.MarkerValue
		}
		return []float64{v}, timestamp, true, nil
	}
	values := make([]float64, s.NChan)
	for i := 0; i < s.NChan-1; i++ {
		values[i] = math.Sin(2 * math.Pi * float64(n) / float64(s.PeriodSamples) * float64(i+1))
	}
	if phase < s.FlashSamples {
		values[s.NChan-1] = 1
	}
	return values, timestamp, true, nil
}

// Close is a no-op for simulated sources.
func (s *SimFlashSource) Close() error { return nil }
