// Package snapshot implements full-system backups and per-user session
// state records. A backup bundles everything the store holds, with a
// SHA-256 checksum so a tampered or truncated file is refused on restore.
package snapshot

import (
	"bytes"
	"encoding/json"
	"strings"
	"time"

	"src.oopis.sh/pkg/hal"
	"src.oopis.sh/pkg/host"
	"src.oopis.sh/pkg/oserr"
)

// DataType identifies the backup format, including its version.
const DataType = "OopisOS_System_State_Backup_v1.0"

// OSVersion is recorded in backups for display purposes.
const OSVersion = "1.0"

// Backup is the on-disk backup envelope.
type Backup struct {
	DataType     string                     `json:"dataType"`
	OSVersion    string                     `json:"osVersion"`
	Timestamp    string                     `json:"timestamp"`
	FSData       json.RawMessage            `json:"fsDataSnapshot"`
	Credentials  json.RawMessage            `json:"userCredentials"`
	AutoSessions map[string]json.RawMessage `json:"automaticSessionStates"`
	ManualStates map[string]json.RawMessage `json:"manualSaveStates"`
	// Checksum is SHA-256 over the JSON of the envelope with an empty
	// checksum field.
	Checksum string `json:"checksum"`
}

// Create captures the entire store into a backup envelope.
func Create(store hal.Store, crypto host.Crypto, clock host.Clock) (*Backup, error) {
	b := &Backup{
		DataType:     DataType,
		OSVersion:    OSVersion,
		Timestamp:    clock.Now().UTC().Format(time.RFC3339),
		AutoSessions: make(map[string]json.RawMessage),
		ManualStates: make(map[string]json.RawMessage),
	}
	var err error
	if b.FSData, err = load(store, hal.KeyFS); err != nil {
		return nil, err
	}
	if b.Credentials, err = load(store, hal.KeyCredentials); err != nil {
		return nil, err
	}
	if err := loadPrefix(store, hal.PrefixAutoSession, b.AutoSessions); err != nil {
		return nil, err
	}
	if err := loadPrefix(store, hal.PrefixManualSession, b.ManualStates); err != nil {
		return nil, err
	}
	sum, err := b.checksum(crypto)
	if err != nil {
		return nil, err
	}
	b.Checksum = sum
	return b, nil
}

func load(store hal.Store, key string) (json.RawMessage, error) {
	data, err := store.Load(key)
	if err != nil {
		return nil, err
	}
	if data == nil {
		return json.RawMessage("null"), nil
	}
	return json.RawMessage(data), nil
}

func loadPrefix(store hal.Store, prefix string, into map[string]json.RawMessage) error {
	keys, err := store.Keys(prefix)
	if err != nil {
		return err
	}
	for _, key := range keys {
		data, err := store.Load(key)
		if err != nil {
			return err
		}
		into[strings.TrimPrefix(key, prefix)] = json.RawMessage(data)
	}
	return nil
}

// checksum computes the envelope's checksum with the checksum field
// blanked. JSON marshalling is deterministic here: struct fields keep
// declaration order and map keys are sorted.
func (b *Backup) checksum(crypto host.Crypto) (string, error) {
	blank := *b
	blank.Checksum = ""
	data, err := json.Marshal(&blank)
	if err != nil {
		return "", oserr.Newf(oserr.Internal, "encode backup: %v", err)
	}
	return crypto.SHA256(data), nil
}

// Verify recomputes the checksum and refuses a mismatch.
func (b *Backup) Verify(crypto host.Crypto) error {
	if b.DataType != DataType {
		return oserr.Newf(oserr.InvalidInput, "not a backup file (dataType %q)", b.DataType)
	}
	sum, err := b.checksum(crypto)
	if err != nil {
		return err
	}
	if sum != b.Checksum {
		return oserr.Newf(oserr.InvalidInput, "backup checksum mismatch; file is corrupt or modified")
	}
	return nil
}

// Restore writes a verified backup's contents over the store. Existing
// session records not present in the backup are removed.
func Restore(store hal.Store, b *Backup) error {
	if err := clearPrefix(store, hal.PrefixAutoSession); err != nil {
		return err
	}
	if err := clearPrefix(store, hal.PrefixManualSession); err != nil {
		return err
	}
	if err := saveRecord(store, hal.KeyFS, b.FSData); err != nil {
		return err
	}
	if err := saveRecord(store, hal.KeyCredentials, b.Credentials); err != nil {
		return err
	}
	for name, data := range b.AutoSessions {
		if err := saveRecord(store, hal.PrefixAutoSession+name, data); err != nil {
			return err
		}
	}
	for name, data := range b.ManualStates {
		if err := saveRecord(store, hal.PrefixManualSession+name, data); err != nil {
			return err
		}
	}
	return nil
}

// saveRecord writes one record back, compacted. Encode indents the whole
// envelope including the raw records, so restoring the bytes verbatim would
// not reproduce what the store originally held. A null record marks a key
// that was absent at backup time.
func saveRecord(store hal.Store, key string, data json.RawMessage) error {
	var buf bytes.Buffer
	if err := json.Compact(&buf, data); err != nil {
		return oserr.Newf(oserr.InvalidInput, "malformed record %v: %v", key, err)
	}
	if buf.String() == "null" {
		return store.Delete(key)
	}
	return store.Save(key, buf.Bytes())
}

func clearPrefix(store hal.Store, prefix string) error {
	keys, err := store.Keys(prefix)
	if err != nil {
		return err
	}
	for _, key := range keys {
		if err := store.Delete(key); err != nil {
			return err
		}
	}
	return nil
}

// Encode renders the backup as indented JSON.
func (b *Backup) Encode() ([]byte, error) {
	data, err := json.MarshalIndent(b, "", "  ")
	if err != nil {
		return nil, oserr.Newf(oserr.Internal, "encode backup: %v", err)
	}
	return data, nil
}

// Decode parses a backup file.
func Decode(data []byte) (*Backup, error) {
	var b Backup
	if err := json.Unmarshal(data, &b); err != nil {
		return nil, oserr.Newf(oserr.InvalidInput, "malformed backup: %v", err)
	}
	return &b, nil
}
