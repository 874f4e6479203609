package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/illmade-knight/bikepark/pkg/locations"
	"github.com/rs/zerolog/hlog"
)

const (
	applicationName = "bikeparkApp"
	entityName      = "localizacao"
	maxBodyBytes    = 1 << 20

	alertHeader  = "X-" + applicationName + "-alert"
	errorHeader  = "X-" + applicationName + "-error"
	paramsHeader = "X-" + applicationName + "-params"
)

// Error keys, also sent in the error header.
const (
	ErrKeyIDNull        = "error.idnull"
	ErrKeyNotFound      = "error.notfound"
	ErrKeyBadRequest    = "error.http.400"
	ErrKeyQueryRequired = "error.queryrequired"
	ErrKeyInternal      = "error.http.500"
)

// ErrorResponse is the body of every non-2xx answer.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

type cancelRequest struct {
	Endereco string `json:"endereco"`
	Numero   string `json:"numero"`
}

type reindexResponse struct {
	Indexed int `json:"indexed"`
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var loc locations.Location
	if !decodeBody(w, r, &loc) {
		return
	}
	hlog.FromRequest(r).Debug().Interface("localizacao", loc).Msg("REST request to save Localizacao")

	created, err := h.svc.Create(r.Context(), loc)
	if err != nil {
		h.fail(w, r, err, ErrKeyBadRequest, http.StatusBadRequest)
		return
	}
	w.Header().Set("Location", "/api/localizacaos/"+created.ID)
	setAlert(w, "created", created.ID)
	writeJSON(w, http.StatusCreated, created)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	var loc locations.Location
	if !decodeBody(w, r, &loc) {
		return
	}
	hlog.FromRequest(r).Debug().Interface("localizacao", loc).Msg("REST request to update Localizacao")

	updated, err := h.svc.Update(r.Context(), loc)
	if err != nil {
		h.fail(w, r, err, ErrKeyIDNull, http.StatusBadRequest)
		return
	}
	setAlert(w, "updated", updated.ID)
	writeJSON(w, http.StatusOK, updated)
}

// cancel answers 400, not 404, when no location has the given address.
func (h *Handler) cancel(w http.ResponseWriter, r *http.Request) {
	var req cancelRequest
	if !decodeBody(w, r, &req) {
		return
	}
	hlog.FromRequest(r).Debug().Str("endereco", req.Endereco).Str("numero", req.Numero).Msg("REST request to cancel Localizacao")

	cancelled, err := h.svc.Cancel(r.Context(), req.Endereco, req.Numero)
	if err != nil {
		h.fail(w, r, err, ErrKeyNotFound, http.StatusBadRequest)
		return
	}
	setAlert(w, "updated", cancelled.ID)
	writeJSON(w, http.StatusOK, cancelled)
}

func (h *Handler) listAvailable(w http.ResponseWriter, r *http.Request) {
	available, err := h.svc.ListAvailable(r.Context())
	if err != nil {
		h.fail(w, r, err, "", 0)
		return
	}
	writeJSON(w, http.StatusOK, available)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	loc, err := h.svc.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err, ErrKeyNotFound, http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, loc)
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.svc.Delete(r.Context(), id); err != nil {
		h.fail(w, r, err, "", 0)
		return
	}
	setAlert(w, "deleted", id)
	w.WriteHeader(http.StatusOK)
}

func (h *Handler) search(w http.ResponseWriter, r *http.Request) {
	values := r.URL.Query()
	if !values.Has("query") {
		writeError(w, http.StatusBadRequest, ErrKeyQueryRequired, "required parameter 'query' is not present")
		return
	}
	results, err := h.svc.Search(r.Context(), values.Get("query"))
	if err != nil {
		h.fail(w, r, err, ErrKeyBadRequest, http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, results)
}

func (h *Handler) reindex(w http.ResponseWriter, r *http.Request) {
	n, err := h.svc.Reindex(r.Context())
	if err != nil {
		h.fail(w, r, err, "", 0)
		return
	}
	writeJSON(w, http.StatusOK, reindexResponse{Indexed: n})
}

func (h *Handler) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "UP"})
}

// fail maps a service error to a response. Domain errors (validation or
// not found) use key and status; everything else is a 500.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error, key string, status int) {
	if key != "" && (errors.Is(err, locations.ErrValidation) || errors.Is(err, locations.ErrNotFound)) {
		writeError(w, status, key, err.Error())
		return
	}
	hlog.FromRequest(r).Error().Err(err).Msg("Request failed")
	writeError(w, http.StatusInternalServerError, ErrKeyInternal, "internal server error")
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, ErrKeyBadRequest, "invalid request body: "+err.Error())
		return false
	}
	return true
}

func setAlert(w http.ResponseWriter, action, id string) {
	w.Header().Set(alertHeader, applicationName+"."+entityName+"."+action)
	w.Header().Set(paramsHeader, id)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, key, message string) {
	w.Header().Set(errorHeader, key)
	w.Header().Set(paramsHeader, entityName)
	writeJSON(w, status, ErrorResponse{Error: key, Message: message})
}
