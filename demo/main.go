// Command demo runs a small host instrumented with glimpse. Browse to / and
// then query the resource endpoint, e.g.
//
//	curl 'http://localhost:8080/glimpse?n=requests'
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"goa.design/clue/log"

	"github.com/glimpse-go/glimpse"
	"github.com/glimpse-go/glimpse/glimpsehttp"
)

func main() {
	addrF := flag.String("addr", ":8080", "listen address")
	flag.Parse()

	ctx := log.Context(context.Background(), log.WithFormat(log.FormatTerminal))

	rt, err := glimpse.New(ctx, glimpse.Config{
		Tabs:      []glimpse.Tab{requestTab{}},
		Displays:  []glimpse.Display{timingDisplay{}},
		IDTracker: glimpsehttp.Tracker{},
		Version:   "0.1.0",
	})
	if err != nil {
		log.Fatal(ctx, err)
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(glimpsehttp.Middleware(rt))

	r.Get("/", func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprint(w, "<html><head><title>demo</title></head><body><h1>hello</h1></body></html>")
	})

	log.Print(ctx, log.KV{K: "msg", V: "demo host listening"}, log.KV{K: "addr", V: *addrF})
	if err := http.ListenAndServe(*addrF, r); err != nil {
		log.Fatal(ctx, err)
	}
}

// requestTab collects the basic request facts at begin time.
type requestTab struct{}

func (requestTab) Name() string                    { return "request" }
func (requestTab) ExecuteOn() glimpse.RuntimeEvent { return glimpse.BeginRequest }

func (requestTab) Collect(ctx context.Context, rc *glimpse.RequestContext) (any, error) {
	md := rc.Adapter().Metadata()
	return map[string]string{
		"method": md.Method(),
		"uri":    md.RequestURI(),
	}, nil
}

// timingDisplay summarizes the request duration for the client.
type timingDisplay struct{}

func (timingDisplay) Name() string { return "timing" }

func (timingDisplay) Collect(ctx context.Context, rc *glimpse.RequestContext) (any, error) {
	return map[string]string{"duration": rc.Duration().String()}, nil
}
