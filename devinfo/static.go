package devinfo

import "github.com/google/uuid"

// StaticSource is an in-memory Source over a fixed record list. Class
// narrowing compares against each record's SetupClass; every record is
// treated as present.
type StaticSource struct {
	records []Record
}

// NewStaticSource returns a StaticSource listing the given records.
func NewStaticSource(records ...Record) *StaticSource {
	return &StaticSource{records: records}
}

// Records returns the records matching filter.
func (s *StaticSource) Records(filter Filter) ([]Record, error) {
	matched := make([]Record, 0, len(s.records))
	for _, record := range s.records {
		if !filter.AllClasses && filter.Class != uuid.Nil && record.SetupClass != filter.Class {
			continue
		}
		matched = append(matched, record)
	}
	return matched, nil
}

// Close is a no-op.
func (s *StaticSource) Close() error {
	return nil
}
