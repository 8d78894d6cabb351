package httpapi

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"
)

// selfie payloads are base64 JPEG data URIs; allow a few MB
const maxBodyBytes = 8 << 20

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func parseInt(s string, def int) int {
	if s == "" {
		return def
	}
	i, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return i
}

func readBodyJSON(r *http.Request, out any) error {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		return err
	}
	if len(body) == 0 {
		return nil
	}
	return json.Unmarshal(body, out)
}

// employeeIDFromReq extracts the acting employee. Authentication itself is
// owned by the gateway in front of this service; it passes identity down via
// header.
func employeeIDFromReq(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := r.Header.Get("X-Employee-Id")
	if id == "" {
		writeJSON(w, http.StatusUnauthorized, Fail("missing X-Employee-Id header"))
		return "", false
	}
	return id, true
}
