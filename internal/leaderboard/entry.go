package leaderboard

import (
	"errors"
	"fmt"
	"html"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/microcosm-cc/bluemonday"

	"jollofwars/internal/game"
)

var ErrInvalidEntry = errors.New("invalid leaderboard entry")
var ErrMalformedRecord = errors.New("malformed leaderboard record")

const MaxNameLength = 32

var policy = bluemonday.StrictPolicy()

// Entry is one stored submission. Entries are never modified after Submit.
// The JSON and hash field names are the historical wire format.
type Entry struct {
	ID             string    `json:"id"`
	PlayerName     string    `json:"playerName"`
	Score          int       `json:"score"`
	Team           game.Team `json:"team"`
	Timestamp      int64     `json:"timestamp"` // unix ms
	Combo          int       `json:"combo"`
	PerfectActions int       `json:"perfectActions"`
	Accuracy       float64   `json:"accuracy"`
	PlayerIdentity string    `json:"fid,omitempty"`
	IsVerified     bool      `json:"isVerifiedUser"`
}

// PlayerKey identifies the player behind an entry: the external identity when
// present, the free-text name otherwise.
func (e Entry) PlayerKey() string {
	if e.PlayerIdentity != "" {
		return "fid:" + e.PlayerIdentity
	}
	return "name:" + e.PlayerName
}

// Submission is an entry before the store assigns its id and timestamp.
type Submission struct {
	PlayerName     string    `json:"playerName"`
	Score          int       `json:"score"`
	Team           game.Team `json:"team"`
	Combo          int       `json:"combo"`
	PerfectActions int       `json:"perfectActions"`
	Accuracy       float64   `json:"accuracy"`
	PlayerIdentity string    `json:"fid,omitempty"`
	IsVerified     bool      `json:"isVerifiedUser"`
}

// SanitizeName strips markup and surrounding whitespace from a player name.
// The result is plain text; escaping is left to whoever renders it.
func SanitizeName(name string) string {
	return strings.TrimSpace(html.UnescapeString(policy.Sanitize(name)))
}

// Validate returns the submission with its name sanitized, or an error wrapping
// ErrInvalidEntry describing the first problem found.
func Validate(sub Submission) (Submission, error) {
	sub.PlayerName = SanitizeName(sub.PlayerName)
	sub.PlayerIdentity = strings.TrimSpace(sub.PlayerIdentity)

	switch {
	case sub.PlayerName == "":
		return sub, fmt.Errorf("%w: player name is required", ErrInvalidEntry)
	case utf8.RuneCountInString(sub.PlayerName) > MaxNameLength:
		return sub, fmt.Errorf("%w: player name longer than %d characters", ErrInvalidEntry, MaxNameLength)
	case !sub.Team.Valid():
		return sub, fmt.Errorf("%w: unknown team %q", ErrInvalidEntry, sub.Team)
	case sub.Score < 0:
		return sub, fmt.Errorf("%w: score must not be negative", ErrInvalidEntry)
	case sub.Combo < 0 || sub.PerfectActions < 0:
		return sub, fmt.Errorf("%w: combo and perfect actions must not be negative", ErrInvalidEntry)
	case sub.Accuracy < 0 || sub.Accuracy > 100:
		return sub, fmt.Errorf("%w: accuracy must be within 0-100", ErrInvalidEntry)
	}
	return sub, nil
}

func encode(e Entry) map[string]any {
	verified := "false"
	if e.IsVerified {
		verified = "true"
	}
	fields := map[string]any{
		"id":             e.ID,
		"playerName":     e.PlayerName,
		"score":          strconv.Itoa(e.Score),
		"team":           string(e.Team),
		"timestamp":      strconv.FormatInt(e.Timestamp, 10),
		"combo":          strconv.Itoa(e.Combo),
		"perfectActions": strconv.Itoa(e.PerfectActions),
		"accuracy":       strconv.FormatFloat(e.Accuracy, 'f', -1, 64),
		"isVerifiedUser": verified,
	}
	if e.PlayerIdentity != "" {
		fields["fid"] = e.PlayerIdentity
	}
	return fields
}

func decode(id string, f map[string]string) (Entry, error) {
	e := Entry{
		ID:             id,
		PlayerName:     f["playerName"],
		Team:           game.Team(f["team"]),
		PlayerIdentity: f["fid"],
		IsVerified:     f["isVerifiedUser"] == "true",
	}
	if e.PlayerName == "" {
		return e, fmt.Errorf("%w: %s has no playerName", ErrMalformedRecord, id)
	}
	if !e.Team.Valid() {
		return e, fmt.Errorf("%w: %s has team %q", ErrMalformedRecord, id, f["team"])
	}

	var err error
	if e.Score, err = strconv.Atoi(f["score"]); err != nil {
		return e, fmt.Errorf("%w: %s score: %v", ErrMalformedRecord, id, err)
	}
	if e.Timestamp, err = parseInt64(f["timestamp"]); err != nil {
		return e, fmt.Errorf("%w: %s timestamp: %v", ErrMalformedRecord, id, err)
	}
	if e.Combo, err = parseOptionalInt(f["combo"]); err != nil {
		return e, fmt.Errorf("%w: %s combo: %v", ErrMalformedRecord, id, err)
	}
	if e.PerfectActions, err = parseOptionalInt(f["perfectActions"]); err != nil {
		return e, fmt.Errorf("%w: %s perfectActions: %v", ErrMalformedRecord, id, err)
	}
	if raw := f["accuracy"]; raw != "" {
		if e.Accuracy, err = strconv.ParseFloat(raw, 64); err != nil {
			return e, fmt.Errorf("%w: %s accuracy: %v", ErrMalformedRecord, id, err)
		}
	}
	return e, nil
}

func parseOptionalInt(s string) (int, error) {
	if s == "" {
		return 0, nil
	}
	return strconv.Atoi(s)
}

func parseInt64(s string) (int64, error) {
	if s == "" {
		return 0, nil
	}
	return strconv.ParseInt(s, 10, 64)
}
