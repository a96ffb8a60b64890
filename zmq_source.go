package trigalign

import (
	"encoding/json"
	"fmt"
	"syscall"

	zmq "github.com/pebbe/zmq4"
)

// Samples travel as two-frame ZMQ messages: the stream name as the
// subscription topic, then a JSON payload with the device timestamp and one
// value per channel.
type samplePayload struct {
	Timestamp float64   `json:"timestamp"`
	Values    []float64 `json:"values"`
}

// ZMQSource is a StreamReader fed by a ZMQ SUB socket. Channel metadata is
// not carried on the wire; it comes from configuration, like the rest of
// the recording setup.
type ZMQSource struct {
	info   StreamInfo
	socket *zmq.Socket
}

// NewZMQSource connects a SUB socket to endpoint and subscribes to the
// stream named in info.
func NewZMQSource(endpoint string, info StreamInfo) (*ZMQSource, error) {
	socket, err := zmq.NewSocket(zmq.SUB)
	if err != nil {
		return nil, err
	}
	if err := socket.SetSubscribe(info.Name); err != nil {
		socket.Close()
		return nil, err
	}
	if err := socket.Connect(endpoint); err != nil {
		socket.Close()
		return nil, err
	}
	return &ZMQSource{info: info, socket: socket}, nil
}

// Info returns the configured stream metadata.
func (s *ZMQSource) Info() StreamInfo { return s.info }

// PullSample receives one sample without blocking. ok is false when no
// message is waiting.
func (s *ZMQSource) PullSample() ([]float64, float64, bool, error) {
	frames, err := s.socket.RecvMessage(zmq.DONTWAIT)
	if err != nil {
		if zmq.AsErrno(err) == zmq.Errno(syscall.EAGAIN) {
			return nil, 0, false, nil
		}
		return nil, 0, false, err
	}
	if len(frames) != 2 {
		return nil, 0, false, fmt.Errorf("stream %q: got %d-frame message, want 2", s.info.Name, len(frames))
	}
	var payload samplePayload
	if err := json.Unmarshal([]byte(frames[1]), &payload); err != nil {
		return nil, 0, false, fmt.Errorf("stream %q: bad sample payload: %v", s.info.Name, err)
	}
	return payload.Values, payload.Timestamp, true, nil
}

// Close closes the SUB socket.
func (s *ZMQSource) Close() error { return s.socket.Close() }

// StreamPublisher is the sending side of the sample transport: a PUB socket
// that any number of recorders may subscribe to. There is no backpressure;
// a slow subscriber loses samples.
type StreamPublisher struct {
	socket *zmq.Socket
}

// NewStreamPublisher binds a PUB socket on endpoint.
func NewStreamPublisher(endpoint string) (*StreamPublisher, error) {
	socket, err := zmq.NewSocket(zmq.PUB)
	if err != nil {
		return nil, err
	}
	if err := socket.Bind(endpoint); err != nil {
		socket.Close()
		return nil, err
	}
	return &StreamPublisher{socket: socket}, nil
}

// Publish sends one sample on the named stream.
func (p *StreamPublisher) Publish(stream string, timestamp float64, values []float64) error {
	payload, err := json.Marshal(samplePayload{Timestamp: timestamp, Values: values})
	if err != nil {
		return err
	}
	_, err = p.socket.SendMessage(stream, payload)
	return err
}

// Close closes the PUB socket.
func (p *StreamPublisher) Close() error { return p.socket.Close() }
