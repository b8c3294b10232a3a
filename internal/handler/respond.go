package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"github.com/dukerupert/basket/internal/model"
)

const (
	pageSize = 20

	msgRequired    = "This field is required."
	msgBlank       = "This field may not be blank."
	msgNotFound    = "Not found."
	msgInvalidJSON = "JSON parse error."
	msgServerError = "A server error occurred."
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}

func writeMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"message": msg})
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// fieldErrors is the validation error body: field name to messages.
type fieldErrors map[string][]string

func (e fieldErrors) add(field, msg string) {
	e[field] = append(e[field], msg)
}

// respond writes e as a 400 and reports whether there was anything to write.
func (e fieldErrors) respond(w http.ResponseWriter) bool {
	if len(e) == 0 {
		return false
	}
	writeJSON(w, http.StatusBadRequest, e)
	return true
}

// decodeJSON reads the request body into v. An empty body leaves v untouched.
func decodeJSON(r *http.Request, v any) error {
	err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(v)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

func parseIDParam(r *http.Request, name string) (int64, error) {
	return strconv.ParseInt(r.PathValue(name), 10, 64)
}

// pageNumber reads ?page, defaulting to 1.
func pageNumber(r *http.Request) (int, bool) {
	raw := r.URL.Query().Get("page")
	if raw == "" {
		return 1, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 0, false
	}
	return n, true
}

// pageOf wraps one page of results with absolute next/previous links.
func pageOf[T any](r *http.Request, results []T, total, page int) model.Page[T] {
	p := model.Page[T]{Count: total, Results: results}
	if page*pageSize < total {
		next := pageURL(r, page+1)
		p.Next = &next
	}
	if page > 1 {
		prev := pageURL(r, page-1)
		p.Previous = &prev
	}
	return p
}

func pageURL(r *http.Request, page int) string {
	scheme := "http"
	if r.TLS != nil || r.Header.Get("X-Forwarded-Proto") == "https" {
		scheme = "https"
	}
	q := r.URL.Query()
	if page == 1 {
		q.Del("page")
	} else {
		q.Set("page", strconv.Itoa(page))
	}
	u := url.URL{Scheme: scheme, Host: r.Host, Path: r.URL.Path, RawQuery: q.Encode()}
	return u.String()
}

// beyondLastPage reports whether page lies past the results. Page 1 always
// exists.
func beyondLastPage(page, total int) bool {
	return page > 1 && (page-1)*pageSize >= total
}
