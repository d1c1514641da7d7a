package http

import (
	"log"
	"net"
	"net/http"
)

// loginRateLimit enforces a fixed-window per-IP counter in redis.
// Without a configured redis client the limiter is disabled; a redis
// error fails open so an outage never locks everyone out.
func (s *Server) loginRateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.redis == nil || s.cfg.LoginRateLimit <= 0 {
			next.ServeHTTP(w, r)
			return
		}

		ip := clientIP(r)
		if host, _, err := net.SplitHostPort(ip); err == nil {
			ip = host
		}

		key := "login_attempts:" + ip
		count, err := s.redis.Incr(r.Context(), key).Result()
		if err != nil {
			log.Printf("rate limit check failed: %v", err)
			next.ServeHTTP(w, r)
			return
		}
		if count == 1 {
			if err := s.redis.Expire(r.Context(), key, s.cfg.LoginRateWindow).Err(); err != nil {
				log.Printf("rate limit expire failed: %v", err)
			}
		}
		if count > int64(s.cfg.LoginRateLimit) {
			writeError(w, http.StatusTooManyRequests, "rate_limited")
			return
		}
		next.ServeHTTP(w, r)
	})
}
