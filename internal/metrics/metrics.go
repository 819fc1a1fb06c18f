package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	Submissions = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "jollof_leaderboard_submissions_total", Help: "Leaderboard submissions by result"},
		[]string{"result"},
	)
	StoreErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "jollof_store_errors_total", Help: "Failed or skipped store operations"},
		[]string{"op"},
	)
	CacheRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "jollof_cache_requests_total", Help: "In-process cache lookups"},
		[]string{"cache", "result"},
	)
	GameEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "jollof_game_events_total", Help: "Session events applied"},
		[]string{"event", "result"},
	)
	ActiveSessions = prometheus.NewGauge(
		prometheus.GaugeOpts{Name: "jollof_active_sessions", Help: "Sessions currently held in memory"},
	)
	GamesFinished = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "jollof_games_finished_total", Help: "Sessions that reached results"},
		[]string{"team"},
	)

	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "http_requests_total", Help: "Total HTTP requests"},
		[]string{"method", "route", "status"},
	)
	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"method", "route"},
	)
)

func init() {
	prometheus.MustRegister(Submissions, StoreErrors, CacheRequests, GameEvents, ActiveSessions, GamesFinished)
	prometheus.MustRegister(httpRequestsTotal, httpRequestDuration)
}

func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveHTTP records one finished request.
func ObserveHTTP(method, route string, status int, elapsed time.Duration) {
	httpRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	httpRequestDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}
