package middleware

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"strconv"
	"sync"
	"taskBot/internal/logger"
	"time"

	"github.com/go-chi/cors"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type contextKey string

const RequestIdKey contextKey = "request_id"

func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestId := r.Header.Get("X-Request-ID")
		if requestId == "" {
			requestId = uuid.New().String()
		}

		w.Header().Set("X-Request-ID", requestId)

		ctx := context.WithValue(r.Context(), RequestIdKey, requestId)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func GetRequestID(ctx context.Context) string {
	if id, ok := ctx.Value(RequestIdKey).(string); ok {
		return id
	}
	return ""
}

type loggingWriter struct {
	http.ResponseWriter
	status      int
	size        int
	wroteHeader bool
}

func (lw *loggingWriter) WriteHeader(code int) {
	if !lw.wroteHeader {
		lw.status = code
		lw.wroteHeader = true
		lw.ResponseWriter.WriteHeader(code)
	}
}

func (lw *loggingWriter) Write(b []byte) (int, error) {
	if !lw.wroteHeader {
		lw.WriteHeader(http.StatusOK)
	}

	n, err := lw.ResponseWriter.Write(b)
	lw.size += n
	return n, err
}

func Logging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		requestId := GetRequestID(r.Context())

		logger.HttpRequestInfo(r, "HTTP_IN: Начало запроса",
			zap.String("request_id", requestId))

		lw := &loggingWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(lw, r)

		logLevel := zap.InfoLevel
		if lw.status >= 400 && lw.status < 500 {
			logLevel = zap.WarnLevel
		} else if lw.status >= 500 {
			logLevel = zap.ErrorLevel
		}
		logger.Log(logLevel, "HTTP_OUT: Завершение запроса",
			zap.String("request_id", requestId),
			zap.Int("status", lw.status),
			zap.Int("bytes_written", lw.size),
			zap.Duration("ms", time.Since(start)),
		)
	})
}

// Timeout ограничивает контекст запроса; хранилище и шлюз получают дедлайн через ctx
func Timeout(timeout time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), timeout)
			defer cancel()

			next.ServeHTTP(w, r.WithContext(ctx))

			if ctx.Err() == context.DeadlineExceeded {
				logger.Warn("HTTP: таймаут запроса",
					zap.String("request_id", GetRequestID(r.Context())),
					zap.String("method", r.Method),
					zap.String("path", r.URL.Path),
					zap.Duration("timeout", timeout),
				)
			}
		})
	}
}

// CORS для панели управления; при пустом origins cors пускает всех
func CORS(origins []string) func(http.Handler) http.Handler {
	return cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID", "X-RateLimit-Remaining"},
		AllowCredentials: false,
		MaxAge:           300,
	})
}

type clientInfo struct {
	count   int
	resetAt time.Time
}

// rateLimiter - окно фиксированной длины на каждый ip
type rateLimiter struct {
	mtx       sync.Mutex
	rpm       int
	window    time.Duration
	clients   map[string]*clientInfo
	nextSweep time.Time
}

func newRateLimiter(rpm int, window time.Duration) *rateLimiter {
	return &rateLimiter{
		rpm:     rpm,
		window:  window,
		clients: make(map[string]*clientInfo),
	}
}

// allow считает запрос; при отказе remaining = 0, а resetAt - когда можно повторить
func (l *rateLimiter) allow(ip string, now time.Time) (remaining int, resetAt time.Time, ok bool) {
	l.mtx.Lock()
	defer l.mtx.Unlock()

	info, exists := l.clients[ip]
	if !exists || now.After(info.resetAt) {
		l.sweep(now)
		info = &clientInfo{count: 1, resetAt: now.Add(l.window)}
		l.clients[ip] = info
		return l.rpm - 1, info.resetAt, true
	}
	if info.count >= l.rpm {
		return 0, info.resetAt, false
	}
	info.count++
	return l.rpm - info.count, info.resetAt, true
}

// sweep выкидывает истёкшие окна, не чаще раза за окно
func (l *rateLimiter) sweep(now time.Time) {
	if now.Before(l.nextSweep) {
		return
	}
	for ip, info := range l.clients {
		if now.After(info.resetAt) {
			delete(l.clients, ip)
		}
	}
	l.nextSweep = now.Add(l.window)
}

func (l *rateLimiter) size() int {
	l.mtx.Lock()
	defer l.mtx.Unlock()
	return len(l.clients)
}

func RateLimit(rpm int) func(http.Handler) http.Handler {
	limiter := newRateLimiter(rpm, time.Minute)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if rpm <= 0 {
				next.ServeHTTP(w, r)
				return
			}

			ip := getIp(r)
			now := time.Now()

			remaining, resetAt, ok := limiter.allow(ip, now)
			if !ok {
				retryAfter := int(resetAt.Sub(now).Seconds())
				logger.Warn("HTTP: превышен лимит запросов", zap.String("client_ip", ip))
				w.Header().Set("Content-Type", "application/json")
				w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
				w.WriteHeader(http.StatusTooManyRequests)

				json.NewEncoder(w).Encode(map[string]any{
					"ephemeral":   true,
					"error":       "rate_limit_exceeded",
					"message":     "Woah there, slow down! Try again in a bit.",
					"retry_after": retryAfter,
					"request_id":  GetRequestID(r.Context()),
				})
				return
			}

			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(rpm))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
			w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(resetAt.Unix(), 10))

			next.ServeHTTP(w, r)
		})
	}
}

func getIp(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
