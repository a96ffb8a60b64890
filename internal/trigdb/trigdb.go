// Package trigdb stores offset-analysis results in a ClickHouse database.
// The database is optional equipment: when the server is unreachable the
// connection object degrades to a no-op and the analysis proceeds without
// it.
package trigdb

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
)

const databaseName = "trigalign" // official SQL name of the database

// Connection wraps one ClickHouse connection plus the channels that
// serialize inserts behind it.
type Connection struct {
	conn    clickhouse.Conn
	err     error
	session *SessionMessage
	pairmsg chan *PairMessage
	sync.WaitGroup
}

// IsConnected reports whether the connection is live and error-free.
func (db *Connection) IsConnected() bool {
	return (db != nil) && (db.conn != nil) && (db.err == nil)
}

// PingServer checks that a ClickHouse server answers at the default address.
func PingServer() error {
	db := createConnection()
	if !db.IsConnected() {
		return fmt.Errorf("database is not connected")
	}
	v, err := db.conn.ServerVersion()
	if err != nil {
		return err
	}
	fmt.Printf("ClickHouse server is alive. Version:\n%s\n", v)
	db.conn.Close()
	return nil
}

// StartConnection opens the database, records the session row, and starts
// the goroutine that handles subsequent inserts until abort is closed.
func StartConnection(session *SessionMessage, abort <-chan struct{}) *Connection {
	db := createConnection()
	db.session = session
	db.logSession()
	go db.handleConnection(abort)
	return db
}

// DummyConnection returns a never-connected Connection, for callers that
// want the interface without a database.
func DummyConnection() *Connection {
	db := &Connection{}
	db.Add(1)
	return db
}

func createConnection() *Connection {
	db := &Connection{}
	db.Add(1) // matched by the Done in handleConnection
	auth := clickhouse.Auth{
		Database: databaseName,
		Username: os.Getenv("TRIGALIGN_DB_USER"),
		Password: os.Getenv("TRIGALIGN_DB_PASSWORD"),
	}
	opt := clickhouse.Options{
		Addr: []string{"localhost:9000"},
		Auth: auth,
	}
	conn, err := clickhouse.Open(&opt)
	if err != nil {
		db.err = err
		return db
	}
	db.conn = conn

	ctx := context.Background()
	if err = conn.Ping(ctx); err != nil {
		if exception, ok := err.(*clickhouse.Exception); ok {
			fmt.Printf("Exception [%d] %s \n%s\n", exception.Code, exception.Message, exception.StackTrace)
		}
		db.err = err
		return db
	}

	db.pairmsg = make(chan *PairMessage)
	return db
}

func (db *Connection) logSession() {
	if !db.IsConnected() {
		return
	}
	ctx := context.Background()
	const nowait = false
	s := db.session
	formattedStart := s.Start.Format("2006-01-02 15:04:05.000000")
	formattedEnd := s.End.Format("2006-01-02 15:04:05.000000")
	if err := db.conn.AsyncInsert(ctx, `INSERT INTO sessions VALUES (?, ?, ?, ?, ?, ?, ?, ?)`, nowait,
		s.ID, s.Hostname, s.Version, s.GoVersion, s.Filepath, s.Source,
		formattedStart, formattedEnd,
	); err != nil {
		fmt.Println("Error raised on AsyncInsert into sessions ", err)
		db.err = err
	}
}

func (db *Connection) handleConnection(abort <-chan struct{}) {
	defer db.Done()
	for {
		select {
		case <-abort:
			db.Disconnect()
			return
		case msg := <-db.pairmsg:
			db.handlePairMessage(msg)
		}
	}
}

// Disconnect finalizes the session row with the current time.
func (db *Connection) Disconnect() {
	if db.IsConnected() {
		db.session.End = time.Now()
		db.logSession()
	}
}

// RecordPair stores one channel-pair summary in the DB (if it's open).
func (db *Connection) RecordPair(msg *PairMessage) {
	if !db.IsConnected() || msg == nil {
		return
	}
	db.pairmsg <- msg
}

func (db *Connection) handlePairMessage(m *PairMessage) {
	if !db.IsConnected() {
		return
	}
	ctx := context.Background()
	const nowait = false
	if err := db.conn.AsyncInsert(ctx, `INSERT INTO pairstats VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`, nowait,
		m.ID, m.SessionID, m.Source, m.Target, m.NEvents,
		m.Mean, m.Std, m.Min, m.Max, m.Range, m.Trimmed,
	); err != nil {
		fmt.Println("Error raised on AsyncInsert into pairstats ", err)
		db.err = err
	}
}
