// Command airwrite runs an air-writing session against the synthetic camera
// and pose estimator, serving the stroke on the debug mux and over gRPC.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gopkg.in/yaml.v3"

	"github.com/banshee-data/airwrite/internal/camera"
	"github.com/banshee-data/airwrite/internal/config"
	"github.com/banshee-data/airwrite/internal/monitor"
	"github.com/banshee-data/airwrite/internal/monitoring"
	"github.com/banshee-data/airwrite/internal/pipeline"
	"github.com/banshee-data/airwrite/internal/pose"
	"github.com/banshee-data/airwrite/internal/render"
	"github.com/banshee-data/airwrite/internal/session"
	"github.com/banshee-data/airwrite/internal/stroke"
	"github.com/banshee-data/airwrite/internal/timeutil"
	"github.com/banshee-data/airwrite/internal/version"
	"github.com/banshee-data/airwrite/internal/visualiser"
)

type options struct {
	configPath   string
	listen       string
	grpcListen   string
	logLevel     string
	pngPath      string
	pdfPath      string
	advertise    bool
	duration     time.Duration
	latency      time.Duration
	failEvery    int
	printConfig  bool
	printVersion bool
}

func parseFlags(fs *flag.FlagSet, args []string) (options, error) {
	var o options
	fs.StringVar(&o.configPath, "config", "", "Tuning config file (.json, .yaml or .yml)")
	fs.StringVar(&o.listen, "listen", "localhost:8090", "Admin HTTP listen address (empty disables)")
	fs.StringVar(&o.grpcListen, "grpc-listen", visualiser.DefaultConfig().ListenAddr, "gRPC stroke stream listen address (empty disables)")
	fs.StringVar(&o.logLevel, "log-level", "ops", "Log streams to enable: ops, diag or trace")
	fs.StringVar(&o.pngPath, "png", "", "Write the final stroke to this PNG file on exit")
	fs.StringVar(&o.pdfPath, "pdf", "", "Write the final stroke to this PDF file on exit")
	fs.BoolVar(&o.advertise, "mdns", false, "Advertise the gRPC stroke stream over mDNS")
	fs.DurationVar(&o.duration, "duration", 0, "Stop after this long (0 runs until interrupted)")
	fs.DurationVar(&o.latency, "estimator-latency", 40*time.Millisecond, "Simulated pose inference time")
	fs.IntVar(&o.failEvery, "fail-every", 0, "Inject an estimator failure every N frames (0 disables)")
	fs.BoolVar(&o.printConfig, "print-config", false, "Print the effective config as YAML and exit")
	fs.BoolVar(&o.printVersion, "version", false, "Print version and exit")
	if err := fs.Parse(args); err != nil {
		return o, err
	}
	if o.advertise && o.grpcListen == "" {
		return o, errors.New("-mdns requires -grpc-listen")
	}
	if o.failEvery < 0 {
		return o, fmt.Errorf("-fail-every must be non-negative, got %d", o.failEvery)
	}
	return o, nil
}

func loadConfig(path string) (*config.TuningConfig, error) {
	if path == "" {
		return config.EmptyTuningConfig(), nil
	}
	return config.LoadTuningConfig(path)
}

// sessionConfig maps the tuning config onto a session running the synthetic
// camera and estimator.
func sessionConfig(cfg *config.TuningConfig, o options, clock timeutil.Clock, metrics *pipeline.Metrics, renderers ...render.Renderer) (session.Config, error) {
	facing, err := camera.ParseFacing(cfg.GetCameraFacing())
	if err != nil {
		return session.Config{}, err
	}
	sw, sh := cfg.GetSensorSize()
	screenW, screenH := cfg.GetScreenSize()
	primary := cfg.GetPrimaryLandmark()

	return session.Config{
		Catalog:  camera.DefaultCatalog(sw, sh),
		CameraID: cfg.GetCameraID(),
		Facing:   facing,
		Camera:   camera.SyntheticOpener{Clock: clock, Interval: cfg.GetFrameInterval()},
		Estimator: func(context.Context) (pose.Estimator, error) {
			est := pose.NewSyntheticEstimator(primary)
			est.Latency = o.latency
			est.FailEvery = o.failEvery
			return est, nil
		},
		PrimaryLandmark:     primary,
		ConfidenceThreshold: cfg.GetConfidenceThreshold(),
		ScreenWidth:         screenW,
		ScreenHeight:        screenH,
		RefreshInterval:     cfg.GetPublishInterval(),
		Renderers:           renderers,
		Clock:               clock,
		Metrics:             metrics,
	}, nil
}

// exportFunc renders a stroke to a file format.
type exportFunc func(w io.Writer, segments []stroke.Segment, screenWidth, screenHeight float64) error

func writeStroke(path string, sess *session.Session, export exportFunc) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", filepath.Base(path), err)
	}
	w, h := sess.ScreenSize()
	if err := export(f, sess.Snapshot().Segments, w, h); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func run(ctx context.Context, o options, stdout io.Writer) error {
	if o.printVersion {
		fmt.Fprintln(stdout, version.Get())
		return nil
	}

	cfg, err := loadConfig(o.configPath)
	if err != nil {
		return err
	}
	if o.printConfig {
		return yaml.NewEncoder(stdout).Encode(cfg.Effective())
	}

	level, err := monitoring.ParseLevel(o.logLevel)
	if err != nil {
		return err
	}
	monitoring.NewStreams(os.Stderr, level).Apply(
		pipeline.SetLogWriters,
		session.SetLogWriters,
		visualiser.SetLogWriters,
	)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics, err := pipeline.NewMetrics(reg)
	if err != nil {
		return err
	}

	var renderers []render.Renderer
	var pub *visualiser.Publisher
	if o.grpcListen != "" {
		pub = visualiser.NewPublisher(visualiser.Config{ListenAddr: o.grpcListen, MaxClients: 5})
		if err := pub.Start(); err != nil {
			return fmt.Errorf("start visualiser: %w", err)
		}
		defer pub.Stop()
		renderers = append(renderers, pub)
	}

	// The monitor needs the session and the session needs the monitor as a
	// renderer, so it joins through a forwarding renderer.
	var mon *monitor.Monitor
	renderers = append(renderers, render.RendererFunc(func(snap stroke.Snapshot) error {
		if mon == nil {
			return nil
		}
		return mon.Render(snap)
	}))

	scfg, err := sessionConfig(cfg, o, timeutil.RealClock{}, metrics, renderers...)
	if err != nil {
		return err
	}
	sess, err := session.Start(ctx, scfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := sess.Close(); err != nil {
			monitoring.Logf("close session: %v", err)
		}
	}()
	mon = monitor.New(sess, func() interface{} {
		st := struct {
			Session    session.Stats              `json:"session"`
			Visualiser *visualiser.PublisherStats `json:"visualiser,omitempty"`
			Version    version.Info               `json:"version"`
		}{Session: sess.Stats(), Version: version.Get()}
		if pub != nil {
			ps := pub.Stats()
			st.Visualiser = &ps
		}
		return st
	})
	monitoring.Logf("airwrite %s: session %s on camera %s", version.Version, sess.ID(), sess.Camera().ID)

	if o.advertise && pub != nil {
		ad, err := visualiser.Advertise(pub.Addr(), sess.ID())
		if err != nil {
			monitoring.Logf("mdns: %v", err)
		} else {
			defer ad.Shutdown()
		}
	}

	if o.duration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.duration)
		defer cancel()
	}

	var server *http.Server
	if o.listen != "" {
		mux := http.NewServeMux()
		mon.AttachAdminRoutes(mux)
		mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
		server = &http.Server{Addr: o.listen, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		go func() {
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				monitoring.Logf("admin server: %v", err)
			}
		}()
		monitoring.Logf("admin routes on http://%s/debug/", o.listen)
	}

	runErr := sess.Run(ctx)

	if server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			monitoring.Logf("admin server shutdown: %v", err)
		}
	}

	exports := []struct {
		path   string
		export exportFunc
	}{
		{o.pngPath, render.PlotPNG},
		{o.pdfPath, render.PDF},
	}
	for _, e := range exports {
		if e.path == "" {
			continue
		}
		if err := writeStroke(e.path, sess, e.export); err != nil {
			runErr = errors.Join(runErr, err)
			continue
		}
		monitoring.Logf("wrote %s", e.path)
	}
	return runErr
}

func main() {
	o, err := parseFlags(flag.CommandLine, os.Args[1:])
	if err != nil {
		log.Fatal(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, o, os.Stdout); err != nil {
		log.Fatal(err)
	}
	log.Printf("Graceful shutdown complete")
}
