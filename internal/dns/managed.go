package dns

// ManagedRecords maps owner names to the value records this client manages
// there. Names keep the order in which they were first seen.
type ManagedRecords struct {
	names   []string
	records map[string][]Record
}

// NewManagedRecords returns an empty mapping.
func NewManagedRecords() *ManagedRecords {
	return &ManagedRecords{records: make(map[string][]Record)}
}

// Append adds records under name, registering name on first use.
func (m *ManagedRecords) Append(name string, records ...Record) {
	if _, ok := m.records[name]; !ok {
		m.names = append(m.names, name)
		m.records[name] = nil
	}
	m.records[name] = append(m.records[name], records...)
}

// Names returns the managed owner names in first-seen order.
func (m *ManagedRecords) Names() []string {
	out := make([]string, len(m.names))
	copy(out, m.names)
	return out
}

// Get returns the records at name in transfer order.
func (m *ManagedRecords) Get(name string) ([]Record, bool) {
	recs, ok := m.records[name]
	return recs, ok
}

// Len returns the number of managed names.
func (m *ManagedRecords) Len() int {
	return len(m.names)
}

// Contains reports whether record is already present under its owner name.
func (m *ManagedRecords) Contains(record Record) bool {
	for _, r := range m.records[record.Name] {
		if r.Same(record) {
			return true
		}
	}
	return false
}
