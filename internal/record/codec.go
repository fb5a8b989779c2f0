package record

import (
	"bytes"
	"encoding/json"

	"github.com/kartikbazzad/cupboard/internal/bufpool"
)

// wireRecord is the on-disk shape of a Record's value blob: fields and
// metadata encoded together so retrieve can reconstruct a full Record
// from a single db-get, without a second catalog round-trip.
type wireRecord struct {
	Fields map[string]interface{} `json:"fields"`
	Meta   Meta                   `json:"meta"`
}

// Encode serializes r into its stored value representation.
func Encode(r *Record) ([]byte, error) {
	scratch := bufpool.Get(256)
	defer bufpool.Put(scratch)

	buf := bytes.NewBuffer(scratch[:0])
	enc := json.NewEncoder(buf)
	if err := enc.Encode(wireRecord{Fields: r.Fields, Meta: r.Meta}); err != nil {
		return nil, err
	}
	out := make([]byte, buf.Len())
	copy(out, buf.Bytes())
	return out, nil
}

// Decode reconstructs a Record from a stored value blob.
func Decode(data []byte) (*Record, error) {
	var wr wireRecord
	if err := json.Unmarshal(data, &wr); err != nil {
		return nil, err
	}
	return &Record{Fields: wr.Fields, Meta: wr.Meta}, nil
}
