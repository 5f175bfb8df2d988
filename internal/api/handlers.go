package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/leadscore/internal/model"
	"github.com/sells-group/leadscore/internal/store"
)

const predictedTemperaturePath = model.FieldPrediction + ".predicted_temperature"

type healthResponse struct {
	Status      string `json:"status"`
	ModelLoaded bool   `json:"model_loaded"`
	Store       string `json:"store"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	resp := healthResponse{Status: "ok", ModelLoaded: s.predictor.Classifier().Loaded(), Store: "ok"}
	if store.IsUnavailable(s.store) {
		resp.Status = "degraded"
		resp.Store = "unavailable"
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handlePredict(w http.ResponseWriter, r *http.Request) {
	var rec model.Lead
	if err := json.NewDecoder(r.Body).Decode(&rec); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(rec) == 0 {
		writeError(w, http.StatusBadRequest, "lead record is empty")
		return
	}

	res, err := s.predictor.Process(r.Context(), rec)
	if err != nil {
		if eris.Is(err, store.ErrUnavailable) {
			writeError(w, http.StatusServiceUnavailable, "lead storage is unavailable")
			return
		}
		zap.L().Error("api: process lead", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "could not process lead")
		return
	}
	writeJSON(w, http.StatusOK, res.Output())
}

func (s *Server) handleBatchPredict(w http.ResponseWriter, r *http.Request) {
	limit, err := limitParam(r, s.batchLimit, maxBatchLimit)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if store.IsUnavailable(s.store) {
		writeError(w, http.StatusServiceUnavailable, "lead storage is unavailable")
		return
	}
	res, err := s.predictor.Batch(r.Context(), limit)
	if err != nil {
		zap.L().Error("api: batch predict", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "batch prediction failed")
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleSync(w http.ResponseWriter, r *http.Request) {
	if s.syncer == nil {
		writeError(w, http.StatusServiceUnavailable, "no sync source configured")
		return
	}
	summary, err := s.syncer.Run(r.Context())
	if err != nil {
		zap.L().Error("api: sync", zap.Error(err))
		if eris.Is(err, store.ErrUnavailable) {
			writeError(w, http.StatusServiceUnavailable, "lead storage is unavailable")
			return
		}
		writeError(w, http.StatusBadGateway, "sync failed")
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	if store.IsUnavailable(s.store) {
		writeError(w, http.StatusServiceUnavailable, "lead storage is unavailable")
		return
	}
	st, err := s.stats.Stats(r.Context())
	if err != nil {
		zap.L().Error("api: stats", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "could not compute stats")
		return
	}
	writeJSON(w, http.StatusOK, st)
}

type modelResponse struct {
	ModelType      string   `json:"model_type"`
	Loaded         bool     `json:"loaded"`
	TrainingDate   string   `json:"training_date,omitempty"`
	Accuracy       float64  `json:"accuracy"`
	FeaturesCount  int      `json:"features_count"`
	FeatureColumns []string `json:"feature_columns,omitempty"`
	Classes        []string `json:"classes,omitempty"`
}

func (s *Server) handleModel(w http.ResponseWriter, _ *http.Request) {
	clf := s.predictor.Classifier()
	md := clf.Metadata()
	resp := modelResponse{
		ModelType:      "unavailable",
		Loaded:         clf.Loaded(),
		TrainingDate:   md.TrainingDate,
		Accuracy:       md.Performance.Accuracy,
		FeaturesCount:  md.FeaturesCount,
		FeatureColumns: md.FeatureColumns,
		Classes:        md.TargetClasses,
	}
	if resp.FeaturesCount == 0 {
		resp.FeaturesCount = len(md.FeatureColumns)
	}
	if clf.Loaded() {
		resp.ModelType = "logistic_regression"
		if md.ModelName != "" {
			resp.ModelType = md.ModelName
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

type leadsResponse struct {
	Leads []model.Lead `json:"leads"`
	Count int          `json:"count"`
}

func (s *Server) handleLeads(w http.ResponseWriter, r *http.Request) {
	limit, err := limitParam(r, defaultListLimit, maxListLimit)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.writeLeads(w, r, store.Query{Limit: limit})
}

func (s *Server) handleLeadsByTemperature(w http.ResponseWriter, r *http.Request) {
	temp, ok := model.ParseTemperature(chi.URLParam(r, "temperature"))
	if !ok {
		writeError(w, http.StatusBadRequest, "temperature must be one of Hot, Warm, Cold")
		return
	}
	limit, err := limitParam(r, defaultListLimit, maxListLimit)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.writeLeads(w, r, store.Query{
		Match: map[string]string{predictedTemperaturePath: string(temp)},
		Limit: limit,
	})
}

func (s *Server) writeLeads(w http.ResponseWriter, r *http.Request, q store.Query) {
	if store.IsUnavailable(s.store) {
		writeError(w, http.StatusServiceUnavailable, "lead storage is unavailable")
		return
	}
	leads, err := s.store.Find(r.Context(), q)
	if err != nil {
		zap.L().Error("api: find leads", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "could not load leads")
		return
	}
	if leads == nil {
		leads = []model.Lead{}
	}
	writeJSON(w, http.StatusOK, leadsResponse{Leads: leads, Count: len(leads)})
}

func (s *Server) handleLead(w http.ResponseWriter, r *http.Request) {
	if store.IsUnavailable(s.store) {
		writeError(w, http.StatusServiceUnavailable, "lead storage is unavailable")
		return
	}
	id := chi.URLParam(r, "uniqueID")
	lead, err := s.store.FindOne(r.Context(), store.ByUniqueID(id))
	if err != nil {
		zap.L().Error("api: find lead", zap.String("unique_id", id), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "could not load lead")
		return
	}
	if lead == nil {
		writeError(w, http.StatusNotFound, "lead not found")
		return
	}
	writeJSON(w, http.StatusOK, lead)
}
