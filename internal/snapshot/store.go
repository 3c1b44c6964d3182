// Package snapshot persists the engine's mutable state across restarts.
// State is stored as JSON sections in a Badger keyspace; a corrupt or missing
// section falls back to its zero value so a bad snapshot can never keep the
// engine from booting.
package snapshot

import (
	"encoding/json"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/flowbot/goradar/internal/domain"
	"github.com/flowbot/goradar/internal/ledger"
)

var log = logrus.WithField("component", "snapshot")

const (
	keyLedgers    = "state:ledgers"
	keyClock      = "state:clock"
	keyAlerts     = "state:alerts"
	keyThresholds = "state:thresholds"
)

// State is everything the engine needs restored after a restart.
type State struct {
	Ledgers     map[string]*ledger.InstrumentLedger `json:"ledgers"`
	StartTimeMs int64                               `json:"startTimeMs"`
	AlertMemory map[string]*domain.AlertMemory      `json:"alertMemory"`
	Thresholds  domain.Thresholds                   `json:"thresholds"`
}

// Store is a Badger-backed snapshot store.
type Store struct {
	db *badger.DB
}

// Open opens (or creates) the snapshot database at path.
func Open(path string) (*Store, error) {
	opts := badger.DefaultOptions(path).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, errors.Wrap(err, "open snapshot store")
	}
	return &Store{db: db}, nil
}

// Close releases the database.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Save writes every state section in one transaction.
func (s *Store) Save(st *State) error {
	sections := map[string]any{
		keyLedgers:    st.Ledgers,
		keyClock:      st.StartTimeMs,
		keyAlerts:     st.AlertMemory,
		keyThresholds: st.Thresholds,
	}
	return s.db.Update(func(txn *badger.Txn) error {
		for key, val := range sections {
			b, err := json.Marshal(val)
			if err != nil {
				return errors.Wrapf(err, "encode %s", key)
			}
			if err := txn.Set([]byte(key), b); err != nil {
				return errors.Wrapf(err, "set %s", key)
			}
		}
		return nil
	})
}

// Load reads the stored state. Missing or undecodable sections are logged and
// left at their zero value; the caller applies defaults.
func (s *Store) Load() (*State, error) {
	st := &State{}
	err := s.db.View(func(txn *badger.Txn) error {
		loadSection(txn, keyLedgers, &st.Ledgers)
		loadSection(txn, keyClock, &st.StartTimeMs)
		loadSection(txn, keyAlerts, &st.AlertMemory)
		loadSection(txn, keyThresholds, &st.Thresholds)
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "load snapshot")
	}
	return st, nil
}

// loadSection decodes one key into out, tolerating absence and corruption.
func loadSection(txn *badger.Txn, key string, out any) {
	item, err := txn.Get([]byte(key))
	if err != nil {
		if !errors.Is(err, badger.ErrKeyNotFound) {
			log.Warnf("snapshot section %s unreadable: %v", key, err)
		}
		return
	}
	if err := item.Value(func(val []byte) error {
		return json.Unmarshal(val, out)
	}); err != nil {
		log.Warnf("snapshot section %s corrupt, using defaults: %v", key, err)
	}
}
