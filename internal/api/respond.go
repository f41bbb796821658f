package api

import (
	"encoding/json"
	"net/http"

	"github.com/matzehuels/depflow/pkg/deps"
	"github.com/matzehuels/depflow/pkg/errors"
	"github.com/matzehuels/depflow/pkg/plan"
	"github.com/matzehuels/depflow/pkg/version"
)

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, errorResponse{Error: msg, Code: code})
}

// writeErr maps coded errors to HTTP statuses.
func writeErr(w http.ResponseWriter, err error) {
	code := errors.GetCode(err)
	status := http.StatusInternalServerError
	switch code {
	case errors.ErrCodeInvalidInput, errors.ErrCodeInvalidDependency, errors.ErrCodeInvalidVersion,
		errors.ErrCodeInvalidManifest, errors.ErrCodeInvalidPath:
		status = http.StatusBadRequest
	case errors.ErrCodeResolution:
		status = http.StatusUnprocessableEntity
	case errors.ErrCodeNotFound, errors.ErrCodeFileNotFound:
		status = http.StatusNotFound
	case errors.ErrCodeUnsupported:
		status = http.StatusNotImplemented
	case errors.ErrCodeUnauthorized, errors.ErrCodeForbidden, errors.ErrCodeNetwork, errors.ErrCodeVCS,
		errors.ErrCodeRateLimited, errors.ErrCodeTimeout:
		status = http.StatusBadGateway
	}
	writeError(w, status, string(code), errors.UserMessage(err))
}

// snapshot converts the request target into a snapshot. A nil request
// yields a nil target.
func (t *targetRequest) snapshot() (*plan.Snapshot, error) {
	if t == nil {
		return nil, nil
	}
	name := t.Name
	if name == "" {
		name = "request"
	}
	pkgs := make([]deps.InstalledPackage, 0, len(t.Installed))
	for i, p := range t.Installed {
		if p.Namespace == "" && p.ID == "" {
			return nil, errors.New(errors.ErrCodeInvalidInput, "installed package %d: namespace or id is required", i+1)
		}
		info := version.Info{ID: p.ID}
		if p.Version != "" {
			v, err := version.Parse(p.Version)
			if err != nil {
				return nil, err
			}
			info.Number = v
		}
		pkgs = append(pkgs, deps.InstalledPackage{Namespace: p.Namespace, Version: info})
	}
	return plan.NewSnapshot(name, pkgs...), nil
}
