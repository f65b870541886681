package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/kineticrick/folio/internal/common"
	"github.com/kineticrick/folio/internal/models"
	"github.com/kineticrick/folio/internal/timeseries"
)

// registerRoutes sets up all read-only API routes on the mux.
func (s *Server) registerRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/api/health", s.handleHealth)
	mux.HandleFunc("/api/version", s.handleVersion)

	mux.HandleFunc("/api/history/assets", s.handleAssetHistory)
	mux.HandleFunc("/api/history/portfolio", s.handlePortfolioHistory)
	mux.HandleFunc("/api/history/dimensions/", s.handleDimensionHistory)
	mux.HandleFunc("/api/history/hypothetical", s.handleHypotheticalHistory)
	mux.HandleFunc("/api/summary", s.handleSummary)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"status": "ok",
		"uptime": time.Since(s.app.StartupTime).String(),
	})
}

func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	WriteJSON(w, http.StatusOK, map[string]string{
		"version": common.Version,
		"build":   common.Build,
		"commit":  common.GitCommit,
	})
}

// cached serves a read through the history cache. Sync controllers evict the
// history tag after every write, so a hit is never staler than the store.
func (s *Server) cached(key string, load func() (interface{}, error)) (interface{}, error) {
	if hit, ok := s.app.Cache.Get(key); ok {
		return hit, nil
	}
	data, err := load()
	if err != nil {
		return nil, err
	}
	s.app.Cache.Set(key, data, common.FreshnessHistoryRead, common.CacheTagHistory)
	return data, nil
}

// cadenceParam parses the optional ?cadence= query parameter. Stored series
// are daily; coarser cadences are thinned at read time on the cadence's
// business-day sampling convention.
func cadenceParam(r *http.Request) (timeseries.Cadence, error) {
	raw := r.URL.Query().Get("cadence")
	if raw == "" {
		return timeseries.Daily, nil
	}
	return timeseries.ParseCadence(raw)
}

func (s *Server) handleAssetHistory(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	cadence, err := cadenceParam(r)
	if err != nil {
		WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	symbols := symbolsParam(r)
	key := "read\x00assets\x00" + cadence.String() + "\x00" + strings.Join(symbols, ",")
	data, err := s.cached(key, func() (interface{}, error) {
		rows, err := s.app.Storage.History().ListAssetRows(r.Context(), symbols)
		if err != nil {
			return nil, err
		}
		if cadence == timeseries.Daily {
			return rows, nil
		}
		sampled := make([]models.ValuedSnapshot, 0, len(rows))
		for _, row := range rows {
			if cadence.SamplesOn(row.Date) {
				sampled = append(sampled, row)
			}
		}
		return sampled, nil
	})
	if err != nil {
		WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}
	WriteJSON(w, http.StatusOK, data)
}

func (s *Server) handlePortfolioHistory(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	cadence, err := cadenceParam(r)
	if err != nil {
		WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	data, err := s.cached("read\x00portfolio\x00"+cadence.String(), func() (interface{}, error) {
		rows, err := s.app.Storage.History().ListPortfolioRows(r.Context())
		if err != nil {
			return nil, err
		}
		if cadence == timeseries.Daily {
			return rows, nil
		}
		sampled := make([]models.PortfolioValueRow, 0, len(rows))
		for _, row := range rows {
			if cadence.SamplesOn(row.Date) {
				sampled = append(sampled, row)
			}
		}
		return sampled, nil
	})
	if err != nil {
		WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}
	WriteJSON(w, http.StatusOK, data)
}

func (s *Server) handleDimensionHistory(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	name := strings.TrimPrefix(r.URL.Path, "/api/history/dimensions/")
	dim := models.Dimension(name)
	valid := false
	for _, d := range models.Dimensions() {
		if d == dim {
			valid = true
			break
		}
	}
	if !valid {
		WriteError(w, http.StatusNotFound, "unknown dimension '"+name+"'")
		return
	}

	data, err := s.cached("read\x00dimension\x00"+name, func() (interface{}, error) {
		return s.app.Storage.History().ListDimensionRows(r.Context(), dim)
	})
	if err != nil {
		WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}
	WriteJSON(w, http.StatusOK, data)
}

func (s *Server) handleHypotheticalHistory(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	symbols := symbolsParam(r)
	key := "read\x00hypothetical\x00" + strings.Join(symbols, ",")
	data, err := s.cached(key, func() (interface{}, error) {
		return s.app.Storage.History().ListHypotheticalRows(r.Context(), symbols)
	})
	if err != nil {
		WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}
	WriteJSON(w, http.StatusOK, data)
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	data, err := s.cached("read\x00summary", func() (interface{}, error) {
		return s.app.Storage.History().ListSummaries(r.Context())
	})
	if err != nil {
		WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}
	WriteJSON(w, http.StatusOK, data)
}
