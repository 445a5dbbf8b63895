// Copyright 2025 Warden Contributors
//
// SPDX-License-Identifier: AGPL-3.0-only
// Please see LICENSE files in the repository root for full details.

package httputil

import (
	"encoding/json"
	"io"
	"net/http"
	"unicode/utf8"

	"github.com/sirupsen/logrus"
)

// JSONResponse is an HTTP status code and the body to serialize for it.
type JSONResponse struct {
	Code int
	JSON interface{}
}

// ErrorBody is the wire form of an error returned by the admin API.
type ErrorBody struct {
	ErrCode string `json:"errcode"`
	Error   string `json:"error"`
}

func MessageResponse(code int, msg string) JSONResponse {
	return JSONResponse{
		Code: code,
		JSON: struct {
			Message string `json:"message"`
		}{msg},
	}
}

func ErrorResponse(code int, errcode, msg string) JSONResponse {
	return JSONResponse{
		Code: code,
		JSON: ErrorBody{ErrCode: errcode, Error: msg},
	}
}

func InternalServerError() JSONResponse {
	return ErrorResponse(http.StatusInternalServerError, "W_UNKNOWN", "internal server error")
}

// RespondJSON writes res to w. Serialization failures are logged and
// degrade to a plain 500 so the caller always receives a response.
func RespondJSON(w http.ResponseWriter, res JSONResponse) {
	body, err := json.Marshal(res.JSON)
	if err != nil {
		logrus.WithError(err).Error("Failed to marshal JSON response")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"errcode":"W_UNKNOWN","error":"internal server error"}`))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(res.Code)
	_, _ = w.Write(body)
}

// UnmarshalJSONRequest into the given interface pointer. Returns an error
// JSON response if there was a problem unmarshalling. Calling this function
// consumes the request body.
func UnmarshalJSONRequest(req *http.Request, iface interface{}) *JSONResponse {
	body, err := io.ReadAll(req.Body)
	if err != nil {
		logrus.WithError(err).Error("io.ReadAll failed")
		res := InternalServerError()
		return &res
	}
	return UnmarshalJSON(body, iface)
}

func UnmarshalJSON(body []byte, iface interface{}) *JSONResponse {
	if !utf8.Valid(body) {
		res := ErrorResponse(http.StatusBadRequest, "W_NOT_JSON", "Body contains invalid UTF-8")
		return &res
	}
	if err := json.Unmarshal(body, iface); err != nil {
		res := ErrorResponse(http.StatusBadRequest, "W_BAD_JSON",
			"The request body could not be decoded into valid JSON. "+err.Error())
		return &res
	}
	return nil
}

// BasicAuth is used for authorizing requests to the admin surface.
type BasicAuth struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// WrapHandlerInBasicAuth adds basic auth to a handler. Only used for
// the admin API endpoints; does nothing if no credentials are configured.
func WrapHandlerInBasicAuth(h http.Handler, b BasicAuth) http.HandlerFunc {
	if b.Username == "" || b.Password == "" {
		return h.ServeHTTP
	}
	return func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		if !ok || user != b.Username || pass != b.Password {
			http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
			return
		}
		h.ServeHTTP(w, r)
	}
}
