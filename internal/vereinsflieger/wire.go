package vereinsflieger

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strconv"

	"github.com/roach88/clubfridge/internal/remote"
)

// numbered is the list response shape: entries keyed "0", "1", ... next to
// bookkeeping fields such as "httpstatuscode".
type numbered map[string]json.RawMessage

// decodeEntries decodes the numerically keyed entries of raw in key order.
// Non-numeric keys are ignored. An entry that does not decode into T is
// logged and kept as the zero T, which conversion drops and counts, so one
// malformed row never fails the whole list.
func decodeEntries[T any](op string, raw numbered) []T {
	type keyed struct {
		index int
		value json.RawMessage
	}
	var items []keyed
	for k, v := range raw {
		i, err := strconv.Atoi(k)
		if err != nil {
			continue
		}
		items = append(items, keyed{index: i, value: v})
	}
	sort.Slice(items, func(a, b int) bool { return items[a].index < items[b].index })

	out := make([]T, 0, len(items))
	for _, item := range items {
		var v T
		if err := json.Unmarshal(item.value, &v); err != nil {
			slog.Warn("skipping malformed entry", "op", op, "index", item.index, "error", err)
			var zero T
			v = zero
		}
		out = append(out, v)
	}
	return out
}

// text is a JSON value that may be sent as a string or as a number.
type text string

func (t *text) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*t = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*t = text(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("expected string or number, got %s", data)
	}
	*t = text(n.String())
	return nil
}

type userEntry struct {
	MemberID      text   `json:"memberid"`
	FirstName     string `json:"firstname"`
	LastName      string `json:"lastname"`
	Nickname      string `json:"nickname"`
	KeyManagement []struct {
		Title   string `json:"title"`
		KeyName text   `json:"keyname"`
	} `json:"keymanagement"`
}

func (e userEntry) toRemote() remote.User {
	u := remote.User{
		MemberID:  string(e.MemberID),
		FirstName: e.FirstName,
		LastName:  e.LastName,
		Nickname:  e.Nickname,
	}
	for _, k := range e.KeyManagement {
		u.Keycodes = append(u.Keycodes, string(k.KeyName))
	}
	return u
}

type articleEntry struct {
	ArticleID   text   `json:"articleid"`
	Designation string `json:"designation"`
	Prices      []struct {
		ValidFrom string `json:"validfrom"`
		ValidTo   string `json:"validto"`
		UnitPrice text   `json:"unitprice"`
	} `json:"prices"`
}

func (e articleEntry) toRemote() remote.Article {
	a := remote.Article{
		ArticleID:   string(e.ArticleID),
		Designation: e.Designation,
	}
	for _, p := range e.Prices {
		a.Prices = append(a.Prices, remote.Price{
			ValidFrom: p.ValidFrom,
			ValidTo:   p.ValidTo,
			UnitPrice: string(p.UnitPrice),
		})
	}
	return a
}
