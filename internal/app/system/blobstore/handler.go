package blobstore

import (
	"errors"
	"io"
	"mime"
	"net/http"
	"path"
	"strings"

	"go.uber.org/zap"
)

// Handler serves blobs by key for backends whose URL points back at this
// service (local and memory). Mount it with http.StripPrefix so the request
// path is the key. Keys are unguessable; the handler does not authenticate.
func Handler(s Store, log *zap.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := strings.TrimPrefix(r.URL.Path, "/")
		if ValidateKey(key) != nil {
			http.NotFound(w, r)
			return
		}
		rc, err := s.Open(r.Context(), key)
		if err != nil {
			if !errors.Is(err, ErrNotFound) {
				log.Warn("blob open failed", zap.String("key", key), zap.Error(err))
			}
			http.NotFound(w, r)
			return
		}
		defer rc.Close()

		if ct := mime.TypeByExtension(path.Ext(key)); ct != "" {
			w.Header().Set("Content-Type", ct)
		} else {
			w.Header().Set("Content-Type", "application/octet-stream")
		}
		if _, err := io.Copy(w, rc); err != nil {
			log.Debug("blob stream interrupted", zap.String("key", key), zap.Error(err))
		}
	})
}
