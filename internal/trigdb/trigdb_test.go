package trigdb

import (
	"testing"
	"time"
)

func TestDummyConnection(t *testing.T) {
	db := DummyConnection()
	if db.IsConnected() {
		t.Error("a dummy connection must not report itself connected")
	}
	// All operations on an unconnected DB are no-ops; none may block.
	db.RecordPair(&PairMessage{Source: "lightdiode", Target: "mmbts"})
	db.RecordPair(nil)
	db.Disconnect()

	var nildb *Connection
	if nildb.IsConnected() {
		t.Error("a nil connection must not report itself connected")
	}
}

func TestNewID(t *testing.T) {
	a := NewID()
	b := NewID()
	if len(a) != 26 {
		t.Errorf("ULID has length %d, want 26", len(a))
	}
	if a == b {
		t.Error("consecutive IDs should differ")
	}
}

func TestLiveConnection(t *testing.T) {
	if err := PingServer(); err != nil {
		t.Skipf("no ClickHouse server: %v", err)
	}
	session := &SessionMessage{
		ID:       NewID(),
		Hostname: "testhost",
		Version:  "0.0.0-test",
		Filepath: "/dev/null",
		Source:   "lightdiode",
		Start:    time.Now(),
		End:      time.Now(),
	}
	abort := make(chan struct{})
	db := StartConnection(session, abort)
	if !db.IsConnected() {
		t.Fatal("StartConnection failed though the server answered a ping")
	}
	db.RecordPair(&PairMessage{
		ID:        NewID(),
		SessionID: session.ID,
		Source:    "lightdiode",
		Target:    "mmbts",
		NEvents:   3,
		Mean:      0.01,
	})
	close(abort)
	db.Wait()
}
