package ledger

import "errors"

// ErrMalformedCredentials is returned when a credential payload lacks the
// athlete identity. It indicates an integration bug and is not recovered.
var ErrMalformedCredentials = errors.New("malformed credential payload")

// ErrAthleteNotFound is returned by FindAthlete for an unknown Strava id.
var ErrAthleteNotFound = errors.New("athlete not found")
