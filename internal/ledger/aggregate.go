package ledger

// Totals are the running sums over all routes in a RouteLedger.
type Totals struct {
	TotalMovingTime    int64   `json:"total_moving_time"`
	TotalDistance      float64 `json:"total_distance"`
	TotalElevationGain float64 `json:"total_elevation_gain"`
}

func (t *Totals) add(r Route) {
	t.TotalMovingTime += r.MovingTime
	t.TotalDistance += r.Distance
	t.TotalElevationGain += r.TotalElevationGain
}

func (t *Totals) sub(r Route) {
	t.TotalMovingTime -= r.MovingTime
	t.TotalDistance -= r.Distance
	t.TotalElevationGain -= r.TotalElevationGain
}

// RouteLedger is the routes file of a challenge year.
type RouteLedger struct {
	Metadata Totals  `json:"metadata"`
	Routes   []Route `json:"routes"`
}

// Upsert inserts r, or replaces the route with the same activity id in place.
// Metadata is adjusted by the difference so it always matches the routes.
func (l *RouteLedger) Upsert(r Route) (replaced bool) {
	for i := range l.Routes {
		if l.Routes[i].ActivityID != r.ActivityID {
			continue
		}
		l.Metadata.sub(l.Routes[i])
		l.Routes[i] = r
		l.Metadata.add(r)
		return true
	}

	l.Routes = append(l.Routes, r)
	l.Metadata.add(r)
	return false
}
