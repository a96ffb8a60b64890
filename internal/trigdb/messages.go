package trigdb

import (
	"time"

	"github.com/oklog/ulid/v2"
)

// The composite types used for messages to the ClickHouse database.

// SessionMessage is the information for one row of the sessions table: one
// analysis run over one recording file.
type SessionMessage struct {
	ID        string
	Hostname  string
	Version   string
	GoVersion string
	Filepath  string
	Source    string
	Start     time.Time
	End       time.Time
}

// PairMessage is the information for one row of the pairstats table: the
// offset summary for one (source, target) channel pair within a session.
type PairMessage struct {
	ID        string
	SessionID string
	Source    string
	Target    string
	NEvents   int
	Mean      float64
	Std       float64
	Min       float64
	Max       float64
	Range     float64
	Trimmed   bool
}

// NewID returns a fresh ULID string for a session or pair row.
func NewID() string {
	return ulid.Make().String()
}
