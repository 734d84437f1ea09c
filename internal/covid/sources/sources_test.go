package sources

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ansel1/merry"
	"github.com/klauspost/compress/zip"

	"github.com/i474232898/covid-dashboard/internal/covid"
	"github.com/i474232898/covid-dashboard/internal/httpcache"
)

func newUpstream(t *testing.T, hits map[string]int) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/api/states/daily", func(w http.ResponseWriter, r *http.Request) {
		hits[r.URL.Path]++
		w.Write([]byte(`[{"state":"CA","date":20200401,"positive":100}]`))
	})
	mux.HandleFunc("/api/us", func(w http.ResponseWriter, r *http.Request) {
		hits[r.URL.Path]++
		w.Write([]byte(`[{"positive":1000,"lastModified":"2020-04-01T20:00:00.000Z"}]`))
	})
	mux.HandleFunc("/api/us/daily", func(w http.ResponseWriter, r *http.Request) {
		hits[r.URL.Path]++
		w.Write([]byte(`{"not":"an array"}`))
	})
	mux.HandleFunc("/api/states", func(w http.ResponseWriter, r *http.Request) {
		hits[r.URL.Path+"?"+r.URL.RawQuery]++
		w.Write([]byte(`{"positive":5,"grade":"A","state":"` + r.URL.Query().Get("state") + `"}`))
	})
	mux.HandleFunc("/api/states/info", func(w http.ResponseWriter, r *http.Request) {
		hits[r.URL.Path]++
		if r.URL.Query().Get("state") == "XX" {
			http.Error(w, "boom", http.StatusInternalServerError)
			return
		}
		w.Write([]byte(`{"name":"California"}`))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestTrackingSource(t *testing.T) {
	hits := make(map[string]int)
	srv := newUpstream(t, hits)
	src := NewTrackingSource(HTTPClientConfig{Client: srv.Client()}, srv.URL+"/api/")
	ctx := context.Background()

	rows, err := src.FetchDailyStates(ctx)
	if err != nil {
		t.Fatalf("FetchDailyStates() failed: %v", err)
	}
	if len(rows) != 1 || string(rows[0]["state"]) != `"CA"` {
		t.Errorf("FetchDailyStates() = %v", rows)
	}

	us, err := src.FetchNationalCurrent(ctx)
	if err != nil {
		t.Fatalf("FetchNationalCurrent() failed: %v", err)
	}
	if string(us["positive"]) != "1000" {
		t.Errorf("FetchNationalCurrent() = %v", us)
	}

	cur, err := src.FetchCurrentState(ctx, "NY")
	if err != nil {
		t.Fatalf("FetchCurrentState() failed: %v", err)
	}
	if string(cur["state"]) != `"NY"` {
		t.Errorf("FetchCurrentState() sent wrong state: %v", cur)
	}

	if _, err := src.FetchNationalDaily(ctx); !merry.Is(err, covid.ErrMalformedResponse) {
		t.Errorf("FetchNationalDaily() error = %v; want ErrMalformedResponse", err)
	}
	if _, err := src.FetchStateInfo(ctx, "XX"); !merry.Is(err, covid.ErrUpstreamUnavailable) {
		t.Errorf("FetchStateInfo(XX) error = %v; want ErrUpstreamUnavailable", err)
	}
	if hits["/api/states/info"] != 1 {
		t.Errorf("failed request made %d calls; want 1 (no retries)", hits["/api/states/info"])
	}
}

func TestTrackingSource_Cache(t *testing.T) {
	hits := make(map[string]int)
	srv := newUpstream(t, hits)
	cache := httpcache.New(time.Minute)
	src := NewTrackingSource(HTTPClientConfig{Client: srv.Client(), Cache: cache}, srv.URL+"/api")
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := src.FetchDailyStates(ctx); err != nil {
			t.Fatal(err)
		}
		if _, err := src.FetchCurrentState(ctx, "CA"); err != nil {
			t.Fatal(err)
		}
	}
	if _, err := src.FetchCurrentState(ctx, "NY"); err != nil {
		t.Fatal(err)
	}
	if n := hits["/api/states/daily"]; n != 1 {
		t.Errorf("daily fetched %d times; want 1", n)
	}
	if n := hits["/api/states?state=CA"]; n != 1 {
		t.Errorf("CA current fetched %d times; want 1", n)
	}
	if n := hits["/api/states?state=NY"]; n != 1 {
		t.Errorf("NY current fetched %d times; want 1", n)
	}

	// Failures are not cached.
	for i := 0; i < 2; i++ {
		src.FetchStateInfo(ctx, "XX")
	}
	if n := hits["/api/states/info"]; n != 2 {
		t.Errorf("failing info fetched %d times; want 2", n)
	}
}

func TestTrackingSource_BreakerPerEndpoint(t *testing.T) {
	hits := make(map[string]int)
	mux := http.NewServeMux()
	mux.HandleFunc("/api/states/info", func(w http.ResponseWriter, r *http.Request) {
		hits[r.URL.Path]++
		http.NotFound(w, r)
	})
	mux.HandleFunc("/api/states/daily", func(w http.ResponseWriter, r *http.Request) {
		hits[r.URL.Path]++
		w.Write([]byte(`[{"state":"CA","date":20200401,"positive":100}]`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	src := NewTrackingSource(HTTPClientConfig{Client: srv.Client()}, srv.URL+"/api")
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		if _, err := src.FetchStateInfo(ctx, "WY"); !merry.Is(err, covid.ErrUpstreamUnavailable) {
			t.Fatalf("FetchStateInfo(WY) error = %v; want ErrUpstreamUnavailable", err)
		}
	}
	if n := hits["/api/states/info"]; n >= 10 {
		t.Errorf("info fetched %d times; want the breaker to open before 10", n)
	}

	if _, err := src.FetchDailyStates(ctx); err != nil {
		t.Fatalf("FetchDailyStates() after info failures: %v", err)
	}
	if n := hits["/api/states/daily"]; n != 1 {
		t.Errorf("daily fetched %d times; want 1", n)
	}
}

func TestTrackingSource_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	src := NewTrackingSource(HTTPClientConfig{Client: http.DefaultClient}, url)
	if _, err := src.FetchDailyStates(context.Background()); !merry.Is(err, covid.ErrUpstreamUnavailable) {
		t.Errorf("FetchDailyStates() error = %v; want ErrUpstreamUnavailable", err)
	}
	if _, err := NewTrackingSource(HTTPClientConfig{}, url).FetchDailyStates(context.Background()); !merry.Is(err, covid.ErrUpstreamUnavailable) {
		t.Errorf("no client error = %v; want ErrUpstreamUnavailable", err)
	}
}

func TestProjectionArchiveSource(t *testing.T) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, _ := zw.Create("p.csv")
	w.Write([]byte("location,date,deaths_mean,admis_mean,allbed_mean\n"))
	zw.Close()
	archive := buf.Bytes()

	calls := 0
	body := archive
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Write(body)
	}))
	defer srv.Close()

	src := NewProjectionArchiveSource(HTTPClientConfig{Client: srv.Client()}, srv.URL+"/ihme.zip")
	for i := 0; i < 2; i++ {
		got, err := src.FetchProjectionArchive(context.Background())
		if err != nil {
			t.Fatalf("FetchProjectionArchive() failed: %v", err)
		}
		if !bytes.Equal(got, archive) {
			t.Error("archive body changed")
		}
	}
	if calls != 2 {
		t.Errorf("uncached archive fetched %d times; want 2", calls)
	}

	body = []byte("<html>maintenance</html>")
	if _, err := src.FetchProjectionArchive(context.Background()); !merry.Is(err, covid.ErrMalformedResponse) {
		t.Errorf("html body error = %v; want ErrMalformedResponse", err)
	}
}
