package syncer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/clubfridge/internal/model"
	"github.com/roach88/clubfridge/internal/remote"
)

func TestConvertUsers(t *testing.T) {
	users := []remote.User{
		{
			MemberID:  "11011",
			FirstName: "Tobias",
			LastName:  "Bieniek",
			Nickname:  "Turbo",
			Keycodes:  []string{"0005635570", "055fb62", "not-a-code"},
		},
		{MemberID: "2", FirstName: "No", LastName: "Keys"},
		{MemberID: "3", FirstName: "Bad", LastName: "Keys", Keycodes: []string{"12345"}},
	}

	members, dropped := ConvertUsers(users)
	assert.Equal(t, 2, dropped)
	require.Len(t, members, 2)

	assert.Equal(t, model.Member{
		Keycode: "0005635570", ID: "11011", FirstName: "Tobias", LastName: "Bieniek", Nickname: "Turbo",
	}, members[0])
	assert.Equal(t, "0005634914", members[1].Keycode, "hex keycodes are normalized")
	assert.Equal(t, "11011", members[1].ID)
}

func TestConvertUsers_NormalizesNames(t *testing.T) {
	decomposed := "Schu\u0308tz"
	members, _ := ConvertUsers([]remote.User{{MemberID: "1", LastName: decomposed, Keycodes: []string{"0000000001"}}})

	require.Len(t, members, 1)
	assert.Equal(t, "Sch\u00fctz", members[0].LastName)
}

func TestConvertUsers_Empty(t *testing.T) {
	members, dropped := ConvertUsers(nil)
	assert.NotNil(t, members)
	assert.Empty(t, members)
	assert.Zero(t, dropped)
}

func TestConvertArticles(t *testing.T) {
	articles := []remote.Article{
		{
			ArticleID:   "3800235265659",
			Designation: "Gloriette Cola Mix",
			Prices: []remote.Price{
				{ValidFrom: "2024-01-01", ValidTo: "2024-12-31", UnitPrice: "0.80"},
				{ValidFrom: "2025-01-01", ValidTo: "2999-12-31", UnitPrice: "0.90"},
			},
		},
		{ArticleID: "bad-date", Prices: []remote.Price{{ValidFrom: "01.01.2024", ValidTo: "2999-12-31", UnitPrice: "1"}}},
		{ArticleID: "bad-price", Prices: []remote.Price{
			{ValidFrom: "2024-01-01", ValidTo: "2999-12-31", UnitPrice: "1.00"},
			{ValidFrom: "2024-01-01", ValidTo: "2999-12-31", UnitPrice: "one euro"},
		}},
		{ArticleID: "", Designation: "No id"},
		{ArticleID: "unpriced", Designation: "Deposit"},
	}

	out, dropped := ConvertArticles(articles)
	assert.Equal(t, 3, dropped)
	require.Len(t, out, 2)

	cola := out[0]
	assert.Equal(t, "3800235265659", cola.ID)
	require.Len(t, cola.Prices, 2)
	assert.Equal(t, model.NewDate(2025, 1, 1), cola.Prices[1].ValidFrom)
	assert.Equal(t, "0.9", cola.Prices[1].UnitPrice.String())

	assert.Equal(t, "unpriced", out[1].ID)
	assert.Empty(t, out[1].Prices, "articles without prices are kept but cannot be sold")
}
