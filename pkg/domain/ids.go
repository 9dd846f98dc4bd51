package domain

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// ID identifies an entity inside the aggregate. It is always encoded as a JSON
// string but decodes from numbers too, since older backups used numeric ids.
type ID string

// String returns the raw identifier.
func (id ID) String() string { return string(id) }

// UnmarshalJSON accepts both string and numeric identifiers.
func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("decode id %s: %w", data, err)
	}
	*id = ID(n.String())
	return nil
}

// IDGenerator issues fresh identifiers for new entities.
type IDGenerator interface {
	NewID() ID
}

// IDGeneratorFunc adapts a function to IDGenerator.
type IDGeneratorFunc func() ID

// NewID implements IDGenerator.
func (f IDGeneratorFunc) NewID() ID { return f() }

// UUIDGenerator issues random v4 UUIDs.
type UUIDGenerator struct{}

// NewID implements IDGenerator.
func (UUIDGenerator) NewID() ID { return ID(uuid.NewString()) }
