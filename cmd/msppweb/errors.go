package main

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/proteomisc/proteomisc/diann"
	"github.com/proteomisc/proteomisc/mzml"
	"github.com/proteomisc/proteomisc/pairing"
	"github.com/proteomisc/proteomisc/quant"
)

var (
	errNoUploads    = errors.New("please upload files first")
	errUnknownChart = errors.New("unknown chart")
)

// JSONError logs the error and writes it as an {"error": msg} body. Takes an
// optional status code, defaulting to 500.
func JSONError(h *handler, w http.ResponseWriter, r *http.Request, err error, code ...int) {
	usedCode := http.StatusInternalServerError
	if len(code) > 0 {
		usedCode = code[0]
	}
	h.log.Println(r.Host, r.URL.Path, ":", usedCode, err)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(usedCode)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(struct {
		Error string `json:"error"`
	}{err.Error()})
}

// statusFor distinguishes bad input, which is the caller's problem, from
// everything else. Domain packages signal bad input with typed errors.
func statusFor(err error) int {
	var parseErr *diann.ParseError
	var mzmlErr *mzml.ParseError
	var pairErr *pairing.PairingError
	var emptyErr *quant.EmptyResultError

	switch {
	case errors.Is(err, errNoUploads),
		errors.Is(err, errUnknownChart),
		errors.Is(err, mzml.ErrNoSpectra),
		errors.As(err, &parseErr),
		errors.As(err, &mzmlErr),
		errors.As(err, &pairErr),
		errors.As(err, &emptyErr):
		return http.StatusBadRequest
	}

	return http.StatusInternalServerError
}

func writeJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(data)
}
