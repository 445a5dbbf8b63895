// Copyright 2025 Warden Contributors
//
// SPDX-License-Identifier: AGPL-3.0-only
// Please see LICENSE files in the repository root for full details.

package routing

import (
	"net/http"

	"github.com/getsentry/sentry-go"
	"github.com/gorilla/mux"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/wardenhq/warden/internal/httputil"
	"github.com/wardenhq/warden/propagation/api"
	propengine "github.com/wardenhq/warden/propagation/engine"
	"github.com/wardenhq/warden/setup/config"
)

// Setup registers the propagation admin API on the given router. All
// endpoints sit behind the configured basic auth.
func Setup(router *mux.Router, engine api.PropagationAPI, cfg *config.Warden) {
	v1 := router.PathPrefix("/_warden/v1").Subrouter()

	register := func(path, method string, f func(*http.Request) httputil.JSONResponse) {
		h := makeAPI(cfg.Global.Sentry.Enabled, f)
		v1.Handle(path, httputil.WrapHandlerInBasicAuth(h, cfg.API.BasicAuth)).Methods(method)
	}

	register("/propagate", http.MethodPost, func(req *http.Request) httputil.JSONResponse {
		var body struct {
			Target string `json:"target"`
			Cap    int    `json:"cap"`
		}
		if res := httputil.UnmarshalJSONRequest(req, &body); res != nil {
			return *res
		}
		target, err := engine.BuildTarget(req.Context(), body.Target)
		if err != nil {
			return httputil.ErrorResponse(http.StatusBadRequest, "W_BAD_TARGET", err.Error())
		}
		report, err := engine.RunPropagation(req.Context(), target, body.Cap)
		if err != nil {
			return propagationError(err)
		}
		return httputil.JSONResponse{
			Code: http.StatusOK,
			JSON: struct {
				Target  api.Target  `json:"target"`
				Report  *api.Report `json:"report"`
				Summary string      `json:"summary"`
			}{target, report, propengine.FormatReport(report)},
		}
	})

	register("/campaigns/{target}", http.MethodGet, func(req *http.Request) httputil.JSONResponse {
		target, res := targetFromPath(req, engine)
		if res != nil {
			return *res
		}
		status, err := engine.CampaignStatus(req.Context(), target)
		if err != nil {
			return httputil.InternalServerError()
		}
		return httputil.JSONResponse{Code: http.StatusOK, JSON: status}
	})

	register("/campaigns/{target}", http.MethodDelete, func(req *http.Request) httputil.JSONResponse {
		target, res := targetFromPath(req, engine)
		if res != nil {
			return *res
		}
		if err := engine.ClearCampaign(req.Context(), target); err != nil {
			return httputil.InternalServerError()
		}
		return httputil.MessageResponse(http.StatusOK, "campaign tracking cleared")
	})

	register("/selections", http.MethodPost, func(req *http.Request) httputil.JSONResponse {
		var body struct {
			Operator string `json:"operator"`
			Target   string `json:"target"`
		}
		if res := httputil.UnmarshalJSONRequest(req, &body); res != nil {
			return *res
		}
		if body.Operator == "" {
			return httputil.ErrorResponse(http.StatusBadRequest, "W_MISSING_PARAM", "operator is required")
		}
		target, err := engine.BuildTarget(req.Context(), body.Target)
		if err != nil {
			return httputil.ErrorResponse(http.StatusBadRequest, "W_BAD_TARGET", err.Error())
		}
		entries, err := engine.ListCandidateGroups(req.Context(), body.Operator, target)
		if err != nil {
			return propagationError(err)
		}
		return httputil.JSONResponse{
			Code: http.StatusOK,
			JSON: struct {
				Entries []api.SelectionEntry `json:"entries"`
				Menu    string               `json:"menu"`
			}{entries, propengine.FormatSelectionMenu(entries)},
		}
	})

	register("/selections/reply", http.MethodPost, func(req *http.Request) httputil.JSONResponse {
		var body struct {
			Operator string `json:"operator"`
			Reply    string `json:"reply"`
		}
		if res := httputil.UnmarshalJSONRequest(req, &body); res != nil {
			return *res
		}
		result, err := engine.ReplySelection(req.Context(), body.Operator, body.Reply)
		if err != nil {
			return propagationError(err)
		}
		return httputil.JSONResponse{Code: http.StatusOK, JSON: result}
	})

	register("/selections/execute", http.MethodPost, func(req *http.Request) httputil.JSONResponse {
		var body struct {
			Target   string   `json:"target"`
			GroupIDs []string `json:"group_ids"`
		}
		if res := httputil.UnmarshalJSONRequest(req, &body); res != nil {
			return *res
		}
		target, err := engine.BuildTarget(req.Context(), body.Target)
		if err != nil {
			return httputil.ErrorResponse(http.StatusBadRequest, "W_BAD_TARGET", err.Error())
		}
		report, err := engine.ExecuteSelection(req.Context(), target, body.GroupIDs)
		if err != nil {
			return propagationError(err)
		}
		return httputil.JSONResponse{
			Code: http.StatusOK,
			JSON: struct {
				Report  *api.Report `json:"report"`
				Summary string      `json:"summary"`
			}{report, propengine.FormatReport(report)},
		}
	})
}

func targetFromPath(req *http.Request, engine api.PropagationAPI) (api.Target, *httputil.JSONResponse) {
	raw := mux.Vars(req)["target"]
	target, err := engine.BuildTarget(req.Context(), raw)
	if err != nil {
		res := httputil.ErrorResponse(http.StatusBadRequest, "W_BAD_TARGET", err.Error())
		return api.Target{}, &res
	}
	return target, nil
}

func propagationError(err error) httputil.JSONResponse {
	switch {
	case errors.Is(err, propengine.ErrCampaignInFlight):
		return httputil.ErrorResponse(http.StatusConflict, "W_CAMPAIGN_IN_FLIGHT", err.Error())
	case errors.Is(err, propengine.ErrNoActiveSelection):
		return httputil.ErrorResponse(http.StatusNotFound, "W_NO_SELECTION", err.Error())
	case errors.Is(err, propengine.ErrInvalidSelection):
		return httputil.ErrorResponse(http.StatusBadRequest, "W_INVALID_SELECTION", err.Error())
	default:
		return httputil.ErrorResponse(http.StatusBadGateway, "W_UPSTREAM", err.Error())
	}
}

func makeAPI(sentryEnabled bool, f func(*http.Request) httputil.JSONResponse) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		defer func() {
			if r := recover(); r != nil {
				logrus.WithField("panic", r).Error("Admin API handler panicked")
				if sentryEnabled {
					sentry.CurrentHub().Recover(r)
				}
				httputil.RespondJSON(w, httputil.InternalServerError())
			}
		}()
		httputil.RespondJSON(w, f(req))
	})
}
