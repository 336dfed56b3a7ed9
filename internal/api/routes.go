// 包 api：集中注册 HTTP API 路由以解耦主入口，便于后续扩展与替换
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/paulmach/orb"

	"coordconv/internal/jobs"
	"coordconv/internal/logger"
	"coordconv/internal/metrics"
	"coordconv/internal/pipeline"
	"coordconv/internal/pointcache"
	"coordconv/internal/store"
	"coordconv/internal/transform"
)

// Deps：路由依赖；History 为空时不注册 /history
type Deps struct {
	Jobs       *jobs.Manager
	Cache      *pointcache.Cache
	History    *store.Store
	MaxPoints  int
	OutputRoot string
}

type convertRequest struct {
	Direction string       `json:"direction"`
	Points    [][2]float64 `json:"points"`
}

type convertResponse struct {
	Direction string       `json:"direction"`
	Points    [][2]float64 `json:"points"`
}

type directionInfo struct {
	Name  string `json:"name"`
	Index int    `json:"index"`
	From  string `json:"from"`
	To    string `json:"to"`
	Label string `json:"label"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("content-type", "application/json; charset=utf-8")
	w.Header().Set("cache-control", "no-store")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

// 构建并返回 API 路由：独立 ServeMux 便于在主入口挂载到 API_BASE 前缀
func BuildRoutes(d Deps) *http.ServeMux {
	apiMux := http.NewServeMux()

	apiMux.HandleFunc("GET /directions", func(w http.ResponseWriter, r *http.Request) {
		out := make([]directionInfo, 0, 6)
		for _, dir := range transform.Directions() {
			out = append(out, directionInfo{
				Name:  dir.String(),
				Index: int(dir),
				From:  dir.From().String(),
				To:    dir.To().String(),
				Label: dir.Label(),
			})
		}
		writeJSON(w, http.StatusOK, out)
	})

	apiMux.HandleFunc("POST /convert", func(w http.ResponseWriter, r *http.Request) {
		var req convertRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		dir, err := transform.ParseDirection(req.Direction)
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		if d.MaxPoints > 0 && len(req.Points) > d.MaxPoints {
			writeError(w, http.StatusRequestEntityTooLarge, errors.New("too many points, limit "+strconv.Itoa(d.MaxPoints)))
			return
		}
		res := convertResponse{Direction: dir.String(), Points: make([][2]float64, len(req.Points))}
		for i, p := range req.Points {
			var q orb.Point
			if d.Cache != nil {
				q = d.Cache.Convert(r.Context(), dir, orb.Point(p))
			} else {
				q = transform.Convert(dir, orb.Point(p))
			}
			res.Points[i] = [2]float64(q)
		}
		metrics.PointRequestsTotal.Add(float64(len(req.Points)))
		writeJSON(w, http.StatusOK, res)
	})

	apiMux.HandleFunc("POST /jobs", func(w http.ResponseWriter, r *http.Request) {
		var job pipeline.Job
		if err := json.NewDecoder(r.Body).Decode(&job); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		if !withinRoot(d.OutputRoot, job.OutputDir) {
			writeError(w, http.StatusForbidden, errors.New("output_dir outside allowed root"))
			return
		}
		id, err := d.Jobs.Submit(job)
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		logger.L().Info("api_job_submitted", "job", id, "files", len(job.Files))
		writeJSON(w, http.StatusAccepted, map[string]string{"id": id})
	})

	apiMux.HandleFunc("GET /jobs", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, d.Jobs.List())
	})

	apiMux.HandleFunc("GET /jobs/{id}", func(w http.ResponseWriter, r *http.Request) {
		st, err := d.Jobs.Get(r.Context(), r.PathValue("id"))
		if err != nil {
			writeError(w, http.StatusNotFound, err)
			return
		}
		writeJSON(w, http.StatusOK, st)
	})

	apiMux.HandleFunc("DELETE /jobs/{id}", func(w http.ResponseWriter, r *http.Request) {
		if err := d.Jobs.Cancel(r.PathValue("id")); err != nil {
			writeError(w, http.StatusNotFound, err)
			return
		}
		w.WriteHeader(http.StatusAccepted)
	})

	if d.History != nil {
		apiMux.HandleFunc("GET /history", func(w http.ResponseWriter, r *http.Request) {
			limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
			recs, err := d.History.RecentJobs(r.Context(), limit)
			if err != nil {
				logger.L().Error("history_query_error", "err", err)
				writeError(w, http.StatusInternalServerError, err)
				return
			}
			writeJSON(w, http.StatusOK, recs)
		})
	}

	return apiMux
}

// withinRoot：root 为空时不限制
func withinRoot(root, dir string) bool {
	if root == "" {
		return true
	}
	r, err1 := filepath.Abs(root)
	p, err2 := filepath.Abs(dir)
	if err1 != nil || err2 != nil {
		return false
	}
	rel, err := filepath.Rel(r, p)
	if err != nil {
		return false
	}
	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)))
}
