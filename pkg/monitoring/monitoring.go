package monitoring

import (
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	RequestCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: []float64{0.05, 0.1, 0.5, 1, 2, 5},
		},
		[]string{"method", "endpoint"},
	)

	AnswersEvaluated = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bravolearn_answers_evaluated_total",
			Help: "Submitted answers by exercise kind and verdict",
		},
		[]string{"kind", "correct"},
	)

	LessonsCompleted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bravolearn_lessons_completed_total",
			Help: "Lesson completions, split by first completion or repeat",
		},
		[]string{"first"},
	)

	XPAwarded = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "bravolearn_xp_awarded_total",
			Help: "Experience points granted by lesson completions",
		},
	)

	AchievementsUnlocked = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bravolearn_achievements_unlocked_total",
			Help: "Achievement unlocks by achievement code",
		},
		[]string{"code"},
	)

	LessonScores = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "bravolearn_lesson_score",
			Help:    "Distribution of lesson scores at completion",
			Buckets: prometheus.LinearBuckets(0, 10, 11),
		},
	)
)

var initOnce sync.Once

func Init() {
	initOnce.Do(func() {
		prometheus.MustRegister(
			RequestCounter,
			RequestDuration,
			AnswersEvaluated,
			LessonsCompleted,
			XPAwarded,
			AchievementsUnlocked,
			LessonScores,
		)
	})
}

func ObserveAnswer(kind string, correct bool) {
	AnswersEvaluated.WithLabelValues(kind, strconv.FormatBool(correct)).Inc()
}

func ObserveCompletion(score, xp int, first bool) {
	LessonsCompleted.WithLabelValues(strconv.FormatBool(first)).Inc()
	LessonScores.Observe(float64(score))
	if xp > 0 {
		XPAwarded.Add(float64(xp))
	}
}

func ObserveUnlock(code string) {
	AchievementsUnlocked.WithLabelValues(code).Inc()
}

func MetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		duration := time.Since(start).Seconds()
		status := c.Writer.Status()
		endpoint := c.FullPath()
		if endpoint == "" {
			endpoint = "unmatched"
		}

		RequestCounter.WithLabelValues(
			c.Request.Method,
			endpoint,
			strconv.Itoa(status),
		).Inc()

		RequestDuration.WithLabelValues(
			c.Request.Method,
			endpoint,
		).Observe(duration)
	}
}

func PrometheusHandler() gin.HandlerFunc {
	h := promhttp.Handler()
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}
