package requestid

import (
	"net/http"
	"regexp"

	"github.com/google/uuid"

	"bothub/pkg/requestcontext"
)

// Header carries the request id in both directions.
const Header = "X-Request-ID"

// inbound ids are echoed only when short and printable so they can't be used
// to inject into logs.
var acceptable = regexp.MustCompile(`^[A-Za-z0-9._-]{1,64}$`)

// Middleware propagates an inbound X-Request-ID or mints a UUID, stores it in
// the context and echoes it on the response.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(Header)
		if !acceptable.MatchString(id) {
			id = uuid.NewString()
		}
		w.Header().Set(Header, id)
		ctx := requestcontext.WithRequestID(r.Context(), id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
