package httpapi

import (
	"io/fs"
	"net/http"
	"net/url"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/DoyleJ11/traffic-light-server/internal/controller"
	"github.com/DoyleJ11/traffic-light-server/internal/hub"
	"github.com/DoyleJ11/traffic-light-server/internal/journal"
	"github.com/DoyleJ11/traffic-light-server/internal/patterns"
	"github.com/DoyleJ11/traffic-light-server/internal/ws"
)

type Deps struct {
	Controller  *controller.Controller
	Hub         *hub.Hub
	Journal     journal.Store
	Patterns    *patterns.Set
	Static      fs.FS // served at / when set
	Log         *zap.Logger
	CORSOrigins []string
	Now         func() time.Time
}

func SetupRoutes(d Deps) http.Handler {
	if d.Log == nil {
		d.Log = zap.NewNop()
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	if len(d.CORSOrigins) == 0 {
		d.CORSOrigins = []string{"*"}
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(d.Log))
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: d.CORSOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type"},
		MaxAge:         300,
	}))

	// Microcontroller + UI reads
	r.Get("/traffic-status", TrafficStatus(d.Controller, d.Log))
	r.Get("/current-traffic-status", TrafficStatus(d.Controller, d.Log))
	r.Get("/traffic-stats", Stats(d.Controller, d.Now))
	r.Get("/traffic-patterns", ListPatterns(d.Patterns))
	r.Get("/traffic-history", History(d.Journal))
	r.Get("/health", Health(d.Controller, d.Now))
	r.Get("/healthz", Healthz)

	// Operator writes
	r.Post("/control-traffic", ControlTraffic(d.Controller))
	r.Post("/update-settings", UpdateSettings(d.Controller))
	r.Post("/emergency", Emergency(d.Controller, d.Log))
	r.Post("/traffic-patterns/{key}/apply", ApplyPattern(d.Controller, d.Patterns))

	r.Get("/ws", ws.Handler(d.Controller, d.Hub, d.Log, ws.Options{OriginPatterns: originPatterns(d.CORSOrigins)}))

	if d.Static != nil {
		r.Handle("/*", http.FileServer(http.FS(d.Static)))
	}
	return r
}

func requestLogger(log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)

			// Status polls arrive every few hundred ms from the microcontroller.
			level := zap.InfoLevel
			if r.Method == http.MethodGet {
				level = zap.DebugLevel
			}
			log.Log(level, "http request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Int("bytes", ww.BytesWritten()),
				zap.Duration("duration", time.Since(start)),
				zap.String("request_id", middleware.GetReqID(r.Context())))
		})
	}
}

// originPatterns maps CORS origins to websocket host patterns.
func originPatterns(origins []string) []string {
	var out []string
	for _, o := range origins {
		if o == "*" {
			return []string{"*"}
		}
		if u, err := url.Parse(o); err == nil && u.Host != "" {
			out = append(out, u.Host)
		}
	}
	return out
}
