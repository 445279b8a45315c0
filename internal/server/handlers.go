package server

import (
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"

	foundationerrors "git.home.luguber.info/inful/assetpipe/internal/foundation/errors"
	"git.home.luguber.info/inful/assetpipe/internal/observability"
	"git.home.luguber.info/inful/assetpipe/internal/version"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	mf := s.manager.Manifest()
	health := HealthResponse{
		Status:     "healthy",
		Version:    version.Version,
		Timestamp:  time.Now().UTC(),
		Uptime:     time.Since(s.startTime).Seconds(),
		Registered: mf.Len(),
		Resolved:   len(mf.GetResolvedAssets()),
	}
	_ = writeJSONPretty(w, r, http.StatusOK, health)
}

func (s *Server) handleListAssets(w http.ResponseWriter, r *http.Request) {
	mf := s.manager.Manifest()
	resp := AssetListResponse{}
	for _, name := range mf.Names() {
		if reg, ok := mf.GetRegisteredConfiguration(name); ok {
			resp.Assets = append(resp.Assets, reg)
		}
	}
	resp.Count = len(resp.Assets)
	_ = writeJSONPretty(w, r, http.StatusOK, resp)
}

// handleGetAsset returns the registration of one asset and, unless
// ?build=false, its built record.
func (s *Server) handleGetAsset(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	reg, ok := s.manager.Manifest().GetRegisteredConfiguration(name)
	if !ok {
		s.errorAdapter.WriteErrorResponse(w, r, notFound(name))
		return
	}

	resp := AssetResponse{Registration: reg}
	if build, err := queryBool(r, "build", true); err != nil {
		s.errorAdapter.WriteErrorResponse(w, r, err)
		return
	} else if build {
		ctx := observability.WithAssetName(r.Context(), name)
		built, err := s.manager.Build(ctx, name)
		if err != nil {
			s.errorAdapter.WriteErrorResponse(w, r, err)
			return
		}
		resp.Built = built
	} else {
		resp.Built = s.manager.Manifest().GetResolved(name)
	}
	_ = writeJSONPretty(w, r, http.StatusOK, resp)
}

// handleRenderAsset returns the HTML fragment for one asset. Every query
// parameter becomes an HTML attribute.
func (s *Server) handleRenderAsset(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	if !s.manager.HasAsset(name) {
		s.errorAdapter.WriteErrorResponse(w, r, notFound(name))
		return
	}

	attrs := make(map[string]string)
	for key, values := range r.URL.Query() {
		if len(values) > 0 {
			attrs[key] = values[len(values)-1]
		}
	}
	ctx := observability.WithAssetName(r.Context(), name)
	fragment, ok := s.manager.RenderAsset(ctx, name, attrs)
	if !ok {
		err := foundationerrors.BuildError("asset could not be rendered").
			WithContext("asset_name", name).
			Build()
		s.errorAdapter.WriteErrorResponse(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(fragment))
}

func (s *Server) handleInvalidate(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	if !s.manager.HasAsset(name) {
		s.errorAdapter.WriteErrorResponse(w, r, notFound(name))
		return
	}
	s.manager.Invalidate(r.Context(), name)
	w.WriteHeader(http.StatusNoContent)
}

// handleResolve resolves ?name=a&name=b (or ?name=a,b) through a fresh
// session. ?cached=false bypasses the resolved-HTML cache.
func (s *Server) handleResolve(w http.ResponseWriter, r *http.Request) {
	names := queryList(r, "name")
	if len(names) == 0 {
		err := foundationerrors.ValidationError("at least one name parameter is required").
			WithContext("parameter", "name").
			Build()
		s.errorAdapter.WriteErrorResponse(w, r, err)
		return
	}
	cached, err := queryBool(r, "cached", true)
	if err != nil {
		s.errorAdapter.WriteErrorResponse(w, r, err)
		return
	}

	session := s.manager.NewSession()
	session.EnqueueAsset(names...)
	resolved := session.ResolveEnqueuedAssets(r.Context(), cached)

	resp := ResolveResponse{Assets: resolved}
	for _, name := range session.GetEnqueuedAssets() {
		if _, ok := resolved[name]; !ok {
			resp.Missing = append(resp.Missing, name)
		}
	}
	sort.Strings(resp.Missing)
	_ = writeJSONPretty(w, r, http.StatusOK, resp)
}

func (s *Server) handleMethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	_ = writeJSON(w, http.StatusMethodNotAllowed, foundationerrors.HTTPErrorResponse{
		Error: "method " + r.Method + " not allowed on " + r.URL.Path,
		Code:  "method_not_allowed",
	})
}

func notFound(name string) error {
	return foundationerrors.NotFoundError("asset "+name).
		WithContext("asset_name", name).
		Build()
}

func queryList(r *http.Request, key string) []string {
	var out []string
	for _, raw := range r.URL.Query()[key] {
		for _, part := range strings.Split(raw, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

func queryBool(r *http.Request, key string, def bool) (bool, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, foundationerrors.ValidationError("invalid boolean query parameter").
			WithContext("parameter", key).
			WithContext("value", raw).
			Build()
	}
	return v, nil
}
