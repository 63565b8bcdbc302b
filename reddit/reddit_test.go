package reddit

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func testCreds() Credentials {
	return Credentials{
		ClientID:     "id",
		ClientSecret: "secret",
		Username:     "botuser",
		Password:     "botpass",
		UserAgent:    "partnered-youtube-reddit test",
	}
}

// newTestClient points both the API base and the token endpoint at a local
// server that serves a static token alongside the given API handler.
func newTestClient(t *testing.T, apiHandler http.HandlerFunc) *Client {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/access_token", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"access_token":"test-token","token_type":"bearer","expires_in":3600}`))
	})
	mux.HandleFunc("/", apiHandler)
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	return NewClient(testCreds(),
		WithBaseURL(server.URL),
		WithTokenURL(server.URL+"/api/v1/access_token"),
	)
}

const threadListing = `[
  {"kind":"Listing","data":{"children":[{"kind":"t3","data":{"id":"post1"}}]}},
  {"kind":"Listing","data":{"children":[
    {"kind":"t1","data":{"id":"c1","author":"alice","body":"first","created":1617184000,"created_utc":1617180000}},
    {"kind":"t1","data":{"id":"c2","author":"bob","body":"second","created":1617184100,"created_utc":1617180100}},
    {"kind":"more","data":{"count":2,"children":["c3","c4"]}}
  ]}}
]`

func TestThread(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/comments/post1" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-token" {
			t.Errorf("Authorization = %q, want bearer token", got)
		}
		if got := r.Header.Get("User-Agent"); got != "partnered-youtube-reddit test" {
			t.Errorf("User-Agent = %q", got)
		}
		w.Write([]byte(threadListing))
	})

	comments, more, err := client.Thread(context.Background(), "post1")
	if err != nil {
		t.Fatalf("Thread failed: %v", err)
	}

	if len(comments) != 2 {
		t.Fatalf("got %d comments, want 2", len(comments))
	}
	if comments[0].Author != "alice" || comments[1].Author != "bob" {
		t.Errorf("authors = %q, %q; want alice, bob", comments[0].Author, comments[1].Author)
	}
	if comments[0].CreatedUTC != 1617180000 {
		t.Errorf("CreatedUTC = %f, want 1617180000", comments[0].CreatedUTC)
	}
	if more == nil {
		t.Fatal("expected overflow marker")
	}
	if len(more.Children) != 2 || more.Children[0] != "c3" {
		t.Errorf("more.Children = %v, want [c3 c4]", more.Children)
	}
}

func TestThreadWithoutMore(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[
  {"kind":"Listing","data":{"children":[]}},
  {"kind":"Listing","data":{"children":[
    {"kind":"t1","data":{"id":"c1","author":"alice","body":"only","created_utc":1617180000}}
  ]}}
]`))
	})

	comments, more, err := client.Thread(context.Background(), "post1")
	if err != nil {
		t.Fatalf("Thread failed: %v", err)
	}
	if len(comments) != 1 {
		t.Errorf("got %d comments, want 1", len(comments))
	}
	if more != nil {
		t.Errorf("more = %+v, want nil", more)
	}
}

func TestMoreChildren(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/morechildren" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		q := r.URL.Query()
		if q.Get("link_id") != "t3_post1" {
			t.Errorf("link_id = %q, want t3_post1", q.Get("link_id"))
		}
		if q.Get("children") != "c3,c4" {
			t.Errorf("children = %q, want c3,c4", q.Get("children"))
		}
		w.Write([]byte(`{"json":{"errors":[],"data":{"things":[
  {"kind":"t1","data":{"id":"c3","author":"carol","body":"third","created_utc":1617180200}},
  {"kind":"t1","data":{"id":"c4","author":"dave","body":"fourth","created_utc":1617180300}}
]}}}`))
	})

	comments, err := client.MoreChildren(context.Background(), "post1", []string{"c3", "c4"})
	if err != nil {
		t.Fatalf("MoreChildren failed: %v", err)
	}
	if len(comments) != 2 {
		t.Fatalf("got %d comments, want 2", len(comments))
	}
	if comments[0].Author != "carol" || comments[1].Author != "dave" {
		t.Errorf("authors = %q, %q; want carol, dave", comments[0].Author, comments[1].Author)
	}
}

func TestSetFlair(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/r/testsub/api/selectflair" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		if err := r.ParseForm(); err != nil {
			t.Fatalf("parse form: %v", err)
		}
		if got := r.PostForm.Get("name"); got != "alice" {
			t.Errorf("name = %q, want alice", got)
		}
		if got := r.PostForm.Get("text"); got != ":emoji: 1,234 subs" {
			t.Errorf("text = %q", got)
		}
		if got := r.PostForm.Get("flair_template_id"); got != "tpl-1" {
			t.Errorf("flair_template_id = %q, want tpl-1", got)
		}
		w.Write([]byte(`{"json":{"errors":[]}}`))
	})

	err := client.SetFlair(context.Background(), "testsub", "alice", ":emoji: 1,234 subs", "tpl-1")
	if err != nil {
		t.Fatalf("SetFlair failed: %v", err)
	}
}

func TestSetFlairAPIError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"json":{"errors":[["BAD_FLAIR_TEMPLATE_ID","invalid template","flair_template_id"]]}}`))
	})

	err := client.SetFlair(context.Background(), "testsub", "alice", "text", "bad")
	if err == nil {
		t.Fatal("expected error for API error response")
	}
}

func TestServerError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	if _, _, err := client.Thread(context.Background(), "post1"); err == nil {
		t.Fatal("expected error for server error")
	}
}

func TestTokenFailure(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/access_token", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	client := NewClient(testCreds(),
		WithBaseURL(server.URL),
		WithTokenURL(server.URL+"/api/v1/access_token"),
	)

	if _, _, err := client.Thread(context.Background(), "post1"); err == nil {
		t.Fatal("expected error when token fetch fails")
	}
}
