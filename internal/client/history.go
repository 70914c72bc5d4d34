package client

import (
	"encoding/binary"
	"fmt"
	"time"

	bolt "go.etcd.io/bbolt"
)

const bucketHistory = "history"

// HistoryEntry is one line of the command history.
type HistoryEntry struct {
	Seq  int
	Text string
}

// History keeps the lines typed into the shell in a bbolt database, keyed
// by a big-endian sequence number so that cursor order is input order.
type History struct {
	db *bolt.DB
}

// OpenHistory opens or creates the history database at path.
func OpenHistory(path string) (*History, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open history %s: %w", path, err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(bucketHistory))
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize history: %w", err)
	}
	return &History{db: db}, nil
}

// Add appends line and returns its sequence number.
func (h *History) Add(line string) (int, error) {
	var seq uint64
	err := h.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucketHistory))
		var err error
		seq, err = b.NextSequence()
		if err != nil {
			return err
		}
		return b.Put(marshalSeq(seq), []byte(line))
	})
	return int(seq), err
}

// Recent returns up to n of the newest entries, oldest first.
func (h *History) Recent(n int) ([]HistoryEntry, error) {
	var entries []HistoryEntry
	err := h.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket([]byte(bucketHistory)).Cursor()
		for k, v := c.Last(); k != nil && len(entries) < n; k, v = c.Prev() {
			entries = append(entries, HistoryEntry{Seq: int(unmarshalSeq(k)), Text: string(v)})
		}
		return nil
	})
	for i, j := 0, len(entries)-1; i < j; i, j = i+1, j-1 {
		entries[i], entries[j] = entries[j], entries[i]
	}
	return entries, err
}

// Close closes the database.
func (h *History) Close() error {
	return h.db.Close()
}

func marshalSeq(seq uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, seq)
	return b
}

func unmarshalSeq(key []byte) uint64 {
	return binary.BigEndian.Uint64(key)
}
