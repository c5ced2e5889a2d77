package payments

// Entry is the amount one athlete owes.
type Entry struct {
	Name string
	Owed int
}

// Ledger is the result of one yearly evaluation.
type Ledger struct {
	RunID   string
	Year    int
	Entries []Entry

	// Pages requested from Strava and pages served from the cache.
	APIRequests int
	CacheHits   int
}

// set records owed for name, keeping the position of an existing entry.
func (l *Ledger) set(name string, owed int) {
	for i := range l.Entries {
		if l.Entries[i].Name == name {
			l.Entries[i].Owed = owed
			return
		}
	}
	l.Entries = append(l.Entries, Entry{Name: name, Owed: owed})
}

// Owed returns the amount recorded for name.
func (l *Ledger) Owed(name string) (int, bool) {
	for _, e := range l.Entries {
		if e.Name == name {
			return e.Owed, true
		}
	}
	return 0, false
}

// HighestPayer returns the entry owing the most. Ties go to the earliest entry.
func (l *Ledger) HighestPayer() (Entry, bool) {
	if len(l.Entries) == 0 {
		return Entry{}, false
	}
	best := l.Entries[0]
	for _, e := range l.Entries[1:] {
		if e.Owed > best.Owed {
			best = e
		}
	}
	return best, true
}
