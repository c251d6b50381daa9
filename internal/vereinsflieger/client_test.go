package vereinsflieger

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/clubfridge/internal/model"
	"github.com/roach88/clubfridge/internal/remote"
)

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return New(server.URL, WithRateLimit(0), WithHTTPClient(server.Client()))
}

func TestGetAccessToken(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /auth/accesstoken", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"accesstoken":"abc123","httpstatuscode":200}`))
	})
	c := newTestClient(t, mux)

	token, err := c.GetAccessToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "abc123", token)
}

func TestGetAccessToken_Empty(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"httpstatuscode":200}`))
	}))

	_, err := c.GetAccessToken(context.Background())
	assert.True(t, remote.IsTransient(err))
}

func TestAuthenticate_SendsHashedPassword(t *testing.T) {
	creds := model.Credentials{ClubID: 1234, AppKey: "app", Username: "fridge", Password: "secret"}
	sum := md5.Sum([]byte("secret"))
	wantHash := hex.EncodeToString(sum[:])

	var got map[string]string
	mux := http.NewServeMux()
	mux.HandleFunc("POST /auth/signin", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		got = map[string]string{
			"accesstoken": r.PostForm.Get("accesstoken"),
			"appkey":      r.PostForm.Get("appkey"),
			"username":    r.PostForm.Get("username"),
			"password":    r.PostForm.Get("password"),
			"cid":         r.PostForm.Get("cid"),
		}
		w.Write([]byte(`{"httpstatuscode":200}`))
	})
	c := newTestClient(t, mux)

	require.NoError(t, c.Authenticate(context.Background(), "tok", creds))
	assert.Equal(t, map[string]string{
		"accesstoken": "tok",
		"appkey":      "app",
		"username":    "fridge",
		"password":    wantHash,
		"cid":         "1234",
	}, got)
}

func TestListUsers_NumberedEntriesInOrder(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /user/list", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "tok", r.FormValue("accesstoken"))
		w.Write([]byte(`{
			"10": {"memberid": "3", "firstname": "C", "lastname": "Three"},
			"2":  {"memberid": 2, "firstname": "B", "lastname": "Two", "keymanagement": []},
			"0":  {"memberid": "11011", "firstname": "Tobias", "lastname": "Bieniek", "nickname": "Turbo",
			       "keymanagement": [{"title": "Schlüssel 1", "keyname": "0005635570"}, {"title": "Schlüssel 2", "keyname": "055FB62"}]},
			"httpstatuscode": 200
		}`))
	})
	c := newTestClient(t, mux)

	users, err := c.ListUsers(context.Background(), "tok")
	require.NoError(t, err)
	require.Len(t, users, 3)

	assert.Equal(t, remote.User{
		MemberID:  "11011",
		FirstName: "Tobias",
		LastName:  "Bieniek",
		Nickname:  "Turbo",
		Keycodes:  []string{"0005635570", "055FB62"},
	}, users[0])
	assert.Equal(t, "2", users[1].MemberID, "numeric member ids are read as text")
	assert.Empty(t, users[1].Keycodes)
	assert.Equal(t, "3", users[2].MemberID)
}

func TestListArticles(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /articles/list", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{
			"0": {"articleid": "3800235265659", "designation": "Gloriette Cola Mix",
			      "prices": [{"validfrom": "2024-01-01", "validto": "2999-12-31", "unitprice": "0.90"}]},
			"1": {"articleid": 42, "designation": "Bratwurst",
			      "prices": [{"validfrom": "2024-01-01", "validto": "2999-12-31", "unitprice": 1.5}]},
			"httpstatuscode": 200
		}`))
	})
	c := newTestClient(t, mux)

	articles, err := c.ListArticles(context.Background(), "tok")
	require.NoError(t, err)
	require.Len(t, articles, 2)

	assert.Equal(t, remote.Article{
		ArticleID:   "3800235265659",
		Designation: "Gloriette Cola Mix",
		Prices:      []remote.Price{{ValidFrom: "2024-01-01", ValidTo: "2999-12-31", UnitPrice: "0.90"}},
	}, articles[0])
	assert.Equal(t, "42", articles[1].ArticleID)
	assert.Equal(t, "1.5", articles[1].Prices[0].UnitPrice)
}

func TestListArticles_MalformedEntryIsBlanked(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{
			"0": {"articleid": {"nested": true}},
			"1": {"articleid": "42", "designation": "Bratwurst", "prices": ["not an object"]},
			"2": {"articleid": "3800235265659", "designation": "Cola Mix",
			      "prices": [{"validfrom": "2024-01-01", "validto": "2999-12-31", "unitprice": "0.90"}]},
			"httpstatuscode": 200
		}`))
	}))

	articles, err := c.ListArticles(context.Background(), "tok")
	require.NoError(t, err)
	require.Len(t, articles, 3)
	assert.Equal(t, remote.Article{}, articles[0])
	assert.Equal(t, remote.Article{}, articles[1], "partially decoded entries are not kept")
	assert.Equal(t, "3800235265659", articles[2].ArticleID)
}

func TestListUsers_MalformedEntryIsBlanked(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{
			"0": {"memberid": "1", "firstname": 7, "keymanagement": [{"keyname": "0000000001"}]},
			"1": {"memberid": "11011", "firstname": "Tobias", "keymanagement": [{"keyname": "0005635570"}]},
			"httpstatuscode": 200
		}`))
	}))

	users, err := c.ListUsers(context.Background(), "tok")
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, remote.User{}, users[0])
	assert.Equal(t, "11011", users[1].MemberID)
}

func TestListUsers_BodyNotAnObject(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[1, 2, 3]`))
	}))

	_, err := c.ListUsers(context.Background(), "tok")
	assert.True(t, remote.IsTransient(err))
}

func TestAddSale_Form(t *testing.T) {
	var form map[string]string
	mux := http.NewServeMux()
	mux.HandleFunc("POST /sale/add", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		form = map[string]string{}
		for k := range r.PostForm {
			form[k] = r.PostForm.Get(k)
		}
		w.Write([]byte(`{"httpstatuscode":200}`))
	})
	c := newTestClient(t, mux)

	err := c.AddSale(context.Background(), "tok", remote.NewSale{
		BookingDate: "2025-01-01",
		ArticleID:   "3800235265659",
		Amount:      2,
		MemberID:    11011,
	})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{
		"accesstoken": "tok",
		"bookingdate": "2025-01-01",
		"articleid":   "3800235265659",
		"amount":      "2",
		"memberid":    "11011",
	}, form)
}

func TestStatusMapping(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		check  func(t *testing.T, err error)
	}{
		{"unauthorized", http.StatusUnauthorized, `{}`, func(t *testing.T, err error) {
			assert.True(t, remote.IsUnauthorized(err))
		}},
		{"forbidden", http.StatusForbidden, `{}`, func(t *testing.T, err error) {
			assert.True(t, remote.IsUnauthorized(err))
		}},
		{"validation", http.StatusUnprocessableEntity, `{"error":"unknown member"}`, func(t *testing.T, err error) {
			var ve *remote.ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Equal(t, http.StatusUnprocessableEntity, ve.Status)
			assert.Equal(t, "unknown member", ve.Message)
		}},
		{"plain text validation", http.StatusBadRequest, "bad request\n", func(t *testing.T, err error) {
			var ve *remote.ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Equal(t, "bad request", ve.Message)
		}},
		{"server error", http.StatusBadGateway, ``, func(t *testing.T, err error) {
			assert.True(t, remote.IsTransient(err))
			assert.False(t, remote.IsUnauthorized(err))
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			err := c.AddSale(context.Background(), "tok", remote.NewSale{ArticleID: "a", Amount: 1, MemberID: 1})
			require.Error(t, err)
			tt.check(t, err)
		})
	}
}

func TestTransportFailureIsNetworkError(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	c := New(url, WithRateLimit(0))
	_, err := c.ListUsers(context.Background(), "tok")
	assert.True(t, remote.IsTransient(err))
}

func TestRateLimitHonorsContext(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"accesstoken":"x"}`))
	}))
	WithRateLimit(0.001)(c)

	_, err := c.GetAccessToken(context.Background())
	require.NoError(t, err, "first request uses the burst")

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err = c.GetAccessToken(ctx)
	require.Error(t, err)
	assert.True(t, remote.IsTransient(err))

	var ne *remote.NetworkError
	require.True(t, errors.As(err, &ne))
	assert.Equal(t, "get access token", ne.Op)
}

func TestNew_DefaultBaseURL(t *testing.T) {
	c := New("")
	assert.Equal(t, DefaultBaseURL, c.baseURL)

	c = New("http://example.test/rest")
	assert.Equal(t, "http://example.test/rest/", c.baseURL)
}
