package cors

import (
	"net/http"
	"strings"
)

// Policy - explicit origin allow-list; unknown origins get no Allow-Origin header
type Policy struct {
	allowed map[string]struct{}
}

func New(origins []string) *Policy {
	p := &Policy{allowed: make(map[string]struct{}, len(origins))}
	for _, o := range origins {
		o = strings.TrimRight(strings.TrimSpace(o), "/")
		if o != "" {
			p.allowed[o] = struct{}{}
		}
	}
	return p
}

func (p *Policy) Allowed(origin string) bool {
	_, ok := p.allowed[origin]
	return ok
}

// Apply - echoes the request origin when it is allow-listed
func (p *Policy) Apply(w http.ResponseWriter, r *http.Request, methods, headers string) {
	w.Header().Add("Vary", "Origin")
	if origin := r.Header.Get("Origin"); p.Allowed(origin) {
		w.Header().Set("Access-Control-Allow-Origin", origin)
	}
	w.Header().Set("Access-Control-Allow-Methods", methods)
	w.Header().Set("Access-Control-Allow-Headers", headers)
}

// Middleware - CORS headers plus an empty 200 for preflight
func (p *Policy) Middleware(methods, headers string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p.Apply(w, r, methods, headers)
			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusOK)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// CheckOrigin - websocket upgrader hook; requests without an Origin header are not browsers
func (p *Policy) CheckOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	return origin == "" || p.Allowed(origin)
}
