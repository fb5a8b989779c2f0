package query

import (
	"github.com/kartikbazzad/cupboard/internal/indexkey"
	"github.com/kartikbazzad/cupboard/internal/record"
)

// satisfiesRemaining decodes val and checks every clause other than the
// dominating one against the record's corresponding field, implementing
// the range-join executor's universal-filter pass.
func (s *rangeJoinStream) satisfiesRemaining(val []byte) (bool, error) {
	rec, err := record.Decode(val)
	if err != nil {
		return false, err
	}
	for i, clause := range s.clauses {
		if i == s.dominatingIdx {
			continue
		}
		fieldValue, ok := rec.Fields[clause.IndexName]
		if !ok {
			return false, nil
		}
		encoded, err := indexkey.Encode(fieldValue)
		if err != nil {
			return false, err
		}
		if !clause.matches(encoded) {
			return false, nil
		}
	}
	return true, nil
}
