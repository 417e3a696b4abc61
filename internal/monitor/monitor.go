// Package monitor exposes a running session on the tsweb debug mux: the
// current stroke as PNG, a plot and a chart, a live SSE tail, counters, and
// the clear command.
package monitor

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	"html/template"
	"image/png"
	"io"
	"math"
	"net/http"
	"strconv"
	"sync"

	"github.com/google/uuid"
	"tailscale.com/tsweb"

	"github.com/banshee-data/airwrite/internal/render"
	"github.com/banshee-data/airwrite/internal/stroke"
)

//go:embed templates/*
var templateFS embed.FS

var liveTemplate = template.Must(template.ParseFS(templateFS, "templates/live.html.tmpl"))

// StrokeSource is the part of a session the monitor reads and commands.
type StrokeSource interface {
	Snapshot() stroke.Snapshot
	ClearStroke()
	ScreenSize() (width, height float64)
}

// TailEvent is one SSE message on the stroke tail.
type TailEvent struct {
	Revision uint64       `json:"revision"`
	Pen      string       `json:"pen"`
	Segments int          `json:"segments"`
	Lines    [][4]float64 `json:"lines"`
}

// NewTailEvent renders snap as a tail message.
func NewTailEvent(snap stroke.Snapshot) TailEvent {
	lines := render.Lines(snap.Segments)
	ev := TailEvent{
		Revision: snap.Revision,
		Pen:      snap.State().String(),
		Segments: len(snap.Segments),
		Lines:    make([][4]float64, len(lines)),
	}
	for i, l := range lines {
		ev.Lines[i] = [4]float64{l.From.X, l.From.Y, l.To.X, l.To.Y}
	}
	return ev
}

// Monitor serves the debug routes and doubles as a renderer feeding the
// SSE tail.
type Monitor struct {
	src   StrokeSource
	stats func() interface{}

	subscriberMu sync.Mutex
	subscribers  map[string]chan []byte
	sent         bool
	lastRevision uint64
}

// New returns a monitor for src. stats, when non-nil, backs the
// stroke-stats route; otherwise the route reports stroke measurements.
func New(src StrokeSource, stats func() interface{}) *Monitor {
	return &Monitor{
		src:         src,
		stats:       stats,
		subscribers: make(map[string]chan []byte),
	}
}

// Subscribe registers a tail listener. Each message is a JSON TailEvent.
func (m *Monitor) Subscribe() (string, chan []byte) {
	id := uuid.NewString()
	ch := make(chan []byte, 1)
	m.subscriberMu.Lock()
	defer m.subscriberMu.Unlock()
	m.subscribers[id] = ch
	return id, ch
}

// Unsubscribe removes a tail listener and closes its channel.
func (m *Monitor) Unsubscribe(id string) {
	m.subscriberMu.Lock()
	defer m.subscriberMu.Unlock()
	if ch, ok := m.subscribers[id]; ok {
		close(ch)
		delete(m.subscribers, id)
	}
}

// Subscribers returns the number of tail listeners.
func (m *Monitor) Subscribers() int {
	m.subscriberMu.Lock()
	defer m.subscriberMu.Unlock()
	return len(m.subscribers)
}

// Render pushes snap to tail listeners when its revision changed. A
// listener that has not read the previous message gets this one instead.
func (m *Monitor) Render(snap stroke.Snapshot) error {
	m.subscriberMu.Lock()
	defer m.subscriberMu.Unlock()
	if len(m.subscribers) == 0 || (m.sent && snap.Revision == m.lastRevision) {
		return nil
	}
	payload, err := json.Marshal(NewTailEvent(snap))
	if err != nil {
		return fmt.Errorf("encode tail event: %w", err)
	}
	for _, ch := range m.subscribers {
		select {
		case ch <- payload:
		default:
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- payload:
			default:
			}
		}
	}
	m.sent = true
	m.lastRevision = snap.Revision
	return nil
}

// Bounds for the stroke PNG query parameters.
const (
	maxScale     = 4.0
	maxThickness = 64.0
)

// queryFloat returns the positive value of key, def when it is missing or
// not positive, and limit when it exceeds limit.
func queryFloat(r *http.Request, key string, def, limit float64) float64 {
	v, err := strconv.ParseFloat(r.URL.Query().Get(key), 64)
	if err != nil || !(v > 0) {
		return def
	}
	return math.Min(v, limit)
}

// AttachAdminRoutes attaches the stroke debug endpoints to mux under
// /debug/. tsweb limits them to localhost and tailnet peers.
func (m *Monitor) AttachAdminRoutes(mux *http.ServeMux) {
	debug := tsweb.Debugger(mux)

	debug.HandleFunc("stroke", "current stroke as PNG (?scale=0.5&thickness=6)", func(w http.ResponseWriter, r *http.Request) {
		sw, sh := m.src.ScreenSize()
		scale := queryFloat(r, "scale", 0.5, maxScale)
		thickness := queryFloat(r, "thickness", 6, maxThickness)
		img := render.Rasterize(m.src.Snapshot().Segments, sw, sh, int(sw*scale), int(sh*scale), thickness)
		var buf bytes.Buffer
		if err := png.Encode(&buf, img); err != nil {
			http.Error(w, "Failed to encode png", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "image/png")
		w.Header().Set("Cache-Control", "no-cache")
		io.Copy(w, &buf)
	})

	debug.HandleFunc("stroke-plot", "current stroke plotted with axes", func(w http.ResponseWriter, r *http.Request) {
		sw, sh := m.src.ScreenSize()
		var buf bytes.Buffer
		if err := render.PlotPNG(&buf, m.src.Snapshot().Segments, sw, sh); err != nil {
			http.Error(w, fmt.Sprintf("Failed to plot stroke: %v", err), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "image/png")
		io.Copy(w, &buf)
	})

	debug.HandleFunc("stroke-chart", "interactive stroke chart", func(w http.ResponseWriter, r *http.Request) {
		sw, sh := m.src.ScreenSize()
		var buf bytes.Buffer
		if err := render.Chart(&buf, m.src.Snapshot(), sw, sh); err != nil {
			http.Error(w, fmt.Sprintf("Failed to render chart: %v", err), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		io.Copy(w, &buf)
	})

	debug.HandleFunc("stroke-live", "live stroke view", func(w http.ResponseWriter, r *http.Request) {
		sw, sh := m.src.ScreenSize()
		buf := bytes.NewBuffer(nil)
		data := struct{ Width, Height int }{Width: int(sw), Height: int(sh)}
		if err := liveTemplate.Execute(buf, data); err != nil {
			http.Error(w, "Failed to render template", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		io.Copy(w, buf)
	})

	debug.HandleFunc("stroke-stats", "session counters as JSON", func(w http.ResponseWriter, r *http.Request) {
		var v interface{}
		if m.stats != nil {
			v = m.stats()
		} else {
			v = stroke.Measure(m.src.Snapshot().Segments)
		}
		w.Header().Set("Content-Type", "application/json")
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(v); err != nil {
			http.Error(w, "Failed to encode stats", http.StatusInternalServerError)
		}
	})

	debug.HandleSilentFunc("stroke-clear", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		m.src.ClearStroke()
		io.WriteString(w, "Stroke cleared")
	})

	// Server-Sent Events carrying a TailEvent per stroke revision.
	debug.HandleSilentFunc("stroke-tail", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		flusher, ok := w.(http.Flusher)
		if !ok {
			http.Error(w, "Streaming unsupported", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")
		w.Header().Set("X-Accel-Buffering", "no") // Disable buffering for nginx

		id, c := m.Subscribe()
		defer m.Unsubscribe(id)

		initial, err := json.Marshal(NewTailEvent(m.src.Snapshot()))
		if err != nil {
			return
		}
		if _, err := fmt.Fprintf(w, "data: %s\n\n", initial); err != nil {
			return
		}
		flusher.Flush()

		for {
			select {
			case payload, ok := <-c:
				if !ok {
					return
				}
				if _, err := fmt.Fprintf(w, "data: %s\n\n", payload); err != nil {
					return
				}
				flusher.Flush()
			case <-r.Context().Done():
				return
			}
		}
	})
}
