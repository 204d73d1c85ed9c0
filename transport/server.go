package transport

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"github.com/sirupsen/logrus"
)

// Handler is invoked once per accepted websocket connection, on its own
// goroutine.
type Handler func(conn *WSConn)

// NewServer builds an http.Handler that upgrades requests to path into
// websocket connections and hands each one to handle. CORS is permissive by
// default, suitable for the demo harness; production embedders
// should replace the cors.Options before wiring this into anything public.
func NewServer(path string, handle Handler) http.Handler {
	router := mux.NewRouter()
	router.HandleFunc(path, func(w http.ResponseWriter, r *http.Request) {
		conn, err := Upgrade(w, r)
		if err != nil {
			logrus.WithFields(logrus.Fields{
				"function": "NewServer",
				"package":  "transport",
				"error":    err.Error(),
			}).Error("websocket upgrade failed")
			return
		}
		go handle(conn)
	})

	return cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodHead},
	}).Handler(router)
}
