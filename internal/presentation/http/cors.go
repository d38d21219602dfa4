package http

import stdhttp "net/http"

const (
	corsAllowMethods = "GET, HEAD, POST, DELETE, OPTIONS"
	corsAllowHeaders = "Authorization, Content-Type, X-User-ID"
)

// withCORS marks every response as readable from any origin and answers preflight requests
// before they reach routing.
func withCORS(next stdhttp.Handler) stdhttp.Handler {
	return stdhttp.HandlerFunc(func(w stdhttp.ResponseWriter, r *stdhttp.Request) {
		header := w.Header()
		header.Set("Access-Control-Allow-Origin", "*")

		if r.Method == stdhttp.MethodOptions {
			header.Set("Access-Control-Allow-Methods", corsAllowMethods)
			header.Set("Access-Control-Allow-Headers", corsAllowHeaders)
			header.Set("Access-Control-Max-Age", "86400")
			w.WriteHeader(stdhttp.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
