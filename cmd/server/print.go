package main

import (
	"encoding/json"
	"net/http"

	"github.com/go-kit/kit/log"
	"github.com/gorilla/mux"
	"github.com/pkg/errors"

	"github.com/coulterac/kprint/internal/auth"
	"github.com/coulterac/kprint/internal/pages"
	"github.com/coulterac/kprint/internal/printing"
)

type handler struct {
	l    log.Logger
	jobs *printing.Jobs
}

type printResponse struct {
	Message string  `json:"message"`
	JobLink *string `json:"jobLink"`
}

// printHandler submits the request body as a print job. Everything that can
// be checked without the document is checked before its first byte is read.
func (h handler) printHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}

	opts, err := printing.ParseOptions(r.URL.Query())
	if err != nil {
		var oe printing.OptionError
		if errors.As(err, &oe) {
			sendValidation(w, errorValidation{Field: oe.Field, Reason: oe.Reason})
			return
		}
		sendError(w, http.StatusBadRequest, err.Error())
		return
	}

	b, err := h.jobs.Resolve(mux.Vars(r)["name"])
	if err != nil {
		sendError(w, http.StatusNotFound, err.Error())
		return
	}

	ranges, err := pages.Merge(opts.Pages)
	if err != nil {
		sendError(w, http.StatusPreconditionFailed, err.Error())
		return
	}

	res, err := h.jobs.Submit(r.Context(), b, id, opts, ranges, r.Body)
	if err != nil {
		h.l.Log("level", "error", "msg", "could not submit print job", "printer", b.Name, "user", id.Username, "err", err.Error())
		sendError(w, http.StatusInternalServerError, "an internal error occurred")
		return
	}

	h.l.Log("level", "info", "msg", "print job submitted", "printer", b.Name, "user", id.Username)
	w.Header().Add("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(printResponse{Message: res.Message, JobLink: res.JobLink})
}
