package ledger

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/lildude/challengeledger/internal/config"
	"github.com/lildude/challengeledger/internal/strava"
	"golang.org/x/oauth2"
)

// Credentials are the Strava OAuth credentials of one athlete, as returned by
// the token endpoint. Keys the struct does not name are kept from the decoded
// payload and written back unchanged.
type Credentials struct {
	TokenType    string         `json:"token_type,omitempty"`
	AccessToken  string         `json:"access_token"`
	RefreshToken string         `json:"refresh_token"`
	ExpiresAt    int64          `json:"expires_at"`
	ExpiresIn    int64          `json:"expires_in,omitempty"`
	Athlete      strava.Athlete `json:"athlete"`

	raw json.RawMessage
}

// credentialFields has the fields of Credentials without its JSON methods.
type credentialFields Credentials

func (c *Credentials) UnmarshalJSON(b []byte) error {
	var f credentialFields
	if err := json.Unmarshal(b, &f); err != nil {
		return err
	}
	*c = Credentials(f)
	c.raw = append(json.RawMessage(nil), b...)
	return nil
}

// MarshalJSON writes the named fields over the payload they were decoded from.
func (c Credentials) MarshalJSON() ([]byte, error) {
	typed, err := json.Marshal(credentialFields(c))
	if err != nil {
		return nil, err
	}

	var base map[string]json.RawMessage
	if len(c.raw) == 0 || json.Unmarshal(c.raw, &base) != nil || base == nil {
		return typed, nil
	}
	// Omitted fields must not bring back stale values.
	if c.TokenType == "" {
		delete(base, "token_type")
	}
	if c.ExpiresIn == 0 {
		delete(base, "expires_in")
	}
	return overlay(base, typed)
}

// overlay sets every key of typed on base, merging objects present in both.
func overlay(base map[string]json.RawMessage, typed []byte) ([]byte, error) {
	var over map[string]json.RawMessage
	if err := json.Unmarshal(typed, &over); err != nil {
		return nil, err
	}
	for k, v := range over {
		var inner map[string]json.RawMessage
		if old, ok := base[k]; ok && isObject(old) && isObject(v) && json.Unmarshal(old, &inner) == nil {
			merged, err := overlay(inner, v)
			if err != nil {
				return nil, err
			}
			base[k] = merged
			continue
		}
		base[k] = v
	}
	return json.Marshal(base)
}

func isObject(v json.RawMessage) bool {
	for _, b := range v {
		switch b {
		case ' ', '\t', '\r', '\n':
			continue
		}
		return b == '{'
	}
	return false
}

// ParseCredentials decodes a token response. The payload may also be wrapped
// as {"strava_data": {...}}. The athlete id is required.
func ParseCredentials(raw []byte) (*Credentials, error) {
	var wrapper struct {
		StravaData *Credentials `json:"strava_data"`
	}
	if err := json.Unmarshal(raw, &wrapper); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedCredentials, err)
	}

	c := wrapper.StravaData
	if c == nil {
		c = &Credentials{}
		if err := json.Unmarshal(raw, c); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrMalformedCredentials, err)
		}
	}
	if err := c.validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Credentials) validate() error {
	if c == nil || c.Athlete.ID == 0 {
		return fmt.Errorf("%w: missing athlete.id", ErrMalformedCredentials)
	}
	return nil
}

// Token converts the credentials for use with golang.org/x/oauth2.
func (c Credentials) Token() *oauth2.Token {
	t := &oauth2.Token{
		AccessToken:  c.AccessToken,
		RefreshToken: c.RefreshToken,
		TokenType:    c.TokenType,
	}
	if c.ExpiresAt != 0 {
		t.Expiry = time.Unix(c.ExpiresAt, 0)
	}
	return t
}

// WithToken returns a copy of c carrying the values of t.
func (c Credentials) WithToken(t *oauth2.Token) Credentials {
	c.AccessToken = t.AccessToken
	if t.RefreshToken != "" {
		c.RefreshToken = t.RefreshToken
	}
	if t.TokenType != "" {
		c.TokenType = t.TokenType
	}
	if !t.Expiry.IsZero() {
		c.ExpiresAt = t.Expiry.Unix()
		c.ExpiresIn = 0
	}
	return c
}

// Athlete is one registered participant.
type Athlete struct {
	StravaData    Credentials     `json:"strava_data"`
	Constants     config.Snapshot `json:"constants"`
	Vars          State           `json:"vars"`
	DiscordUserID string          `json:"discord_user_id,omitempty"`
}

func (a Athlete) ID() int64 {
	return a.StravaData.Athlete.ID
}

func (a Athlete) Name() string {
	return a.StravaData.Athlete.DisplayName()
}

// State is the part of an athlete record that changes as the year goes on.
type State struct {
	Joker       int          `json:"joker"`
	JokerWeeks  []int        `json:"joker_weeks"`
	WeekResults []WeekResult `json:"week_results"`
}

// WeekResult is the outcome of one evaluated ISO week.
type WeekResult struct {
	Week     int `json:"week"`
	Points   int `json:"points"`
	Required int `json:"required"`
	Owed     int `json:"owed"`
}

// LoadAthletes returns all athletes in file order. A missing or empty file
// yields an empty slice.
func (s *Store) LoadAthletes() ([]Athlete, error) {
	s.athleteMu.Lock()
	defer s.athleteMu.Unlock()

	return s.loadAthletes()
}

func (s *Store) loadAthletes() ([]Athlete, error) {
	var athletes []Athlete
	ok, err := readJSON(s.path(AthletesFile), &athletes)
	if err != nil {
		return nil, err
	}
	if !ok || athletes == nil {
		return []Athlete{}, nil
	}
	return athletes, nil
}

// FindAthlete returns the athlete with the given Strava id.
func (s *Store) FindAthlete(id int64) (*Athlete, error) {
	athletes, err := s.LoadAthletes()
	if err != nil {
		return nil, err
	}
	for i := range athletes {
		if athletes[i].ID() == id {
			return &athletes[i], nil
		}
	}
	return nil, fmt.Errorf("%w: %d", ErrAthleteNotFound, id)
}

// UpsertAthleteCredentials parses a raw token response and stores it. See
// SaveCredentials.
func (s *Store) UpsertAthleteCredentials(raw []byte, discordUserID string) (*Athlete, error) {
	c, err := ParseCredentials(raw)
	if err != nil {
		return nil, err
	}
	return s.SaveCredentials(c, discordUserID)
}

// SaveCredentials stores credentials for the athlete they identify. An
// existing athlete only has its credentials replaced, and its Discord id when
// discordUserID is not empty. A new athlete starts with the current rules.
func (s *Store) SaveCredentials(c *Credentials, discordUserID string) (*Athlete, error) {
	if err := c.validate(); err != nil {
		return nil, err
	}

	s.athleteMu.Lock()
	defer s.athleteMu.Unlock()

	athletes, err := s.loadAthletes()
	if err != nil {
		return nil, err
	}

	var saved *Athlete
	for i := range athletes {
		if athletes[i].ID() != c.Athlete.ID {
			continue
		}
		athletes[i].StravaData = *c
		if discordUserID != "" {
			athletes[i].DiscordUserID = discordUserID
		}
		saved = &athletes[i]
		break
	}

	if saved == nil {
		athletes = append(athletes, Athlete{
			StravaData: *c,
			Constants:  s.rules.Snapshot(),
			Vars: State{
				Joker:       s.rules.Joker,
				JokerWeeks:  []int{},
				WeekResults: []WeekResult{},
			},
			DiscordUserID: discordUserID,
		})
		saved = &athletes[len(athletes)-1]
		s.log.WithField("athlete_id", c.Athlete.ID).Info("registered new athlete")
	}

	if err := writeJSON(s.path(AthletesFile), athletes); err != nil {
		return nil, err
	}
	s.log.WithField("athlete_id", c.Athlete.ID).Debug("saved credentials")

	out := *saved
	return &out, nil
}

// UpdateAthleteState replaces the Vars of the stored athlete matching a.
// Credentials and rules are left untouched. Unknown athletes are ignored.
func (s *Store) UpdateAthleteState(a Athlete) error {
	s.athleteMu.Lock()
	defer s.athleteMu.Unlock()

	athletes, err := s.loadAthletes()
	if err != nil {
		return err
	}

	for i := range athletes {
		if athletes[i].ID() == a.ID() {
			athletes[i].Vars = a.Vars
			return writeJSON(s.path(AthletesFile), athletes)
		}
	}

	s.log.WithField("athlete_id", a.ID()).Debug("state update for unknown athlete ignored")
	return nil
}
