package handlers

import (
	"encoding/json"
	"fmt"
	"mime"
	"net/http"
	"strconv"
	"strings"
	"taskBot/internal/service"

	"github.com/go-chi/chi/v5"
)

func checkContentType(r *http.Request, target string) bool {
	contentType := r.Header.Get("Content-Type")
	if contentType == "" {
		return false
	}

	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}

	return mediaType == target
}

const maxBodyBytes = 1 << 20

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	if !checkContentType(r, "application/json") {
		return service.NewValidationError("Content-Type", "must be application/json")
	}
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		return service.NewValidationError("body", fmt.Sprintf("invalid JSON: %v", err))
	}
	return nil
}

func guildIDParam(r *http.Request) (int64, error) {
	raw := chi.URLParam(r, "guildID")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, service.NewValidationError("guildID", "must be a positive integer")
	}
	return id, nil
}

// splitNames делит список имён задач по разделителю и выбрасывает пустые
func splitNames(raw, sep string) []string {
	names := []string{}
	for _, part := range strings.Split(raw, sep) {
		if part = strings.TrimSpace(part); part != "" {
			names = append(names, part)
		}
	}
	return names
}
