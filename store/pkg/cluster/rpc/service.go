package rpc

import (
	"encoding/json"
	"errors"
	"net/http"

	"chisel/store/pkg/cluster/paxos"
	"chisel/store/pkg/logger"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"
	"go.uber.org/zap"
)

type ServiceOption func(s *Service)

// WithCORSOrigins enables CORS for the given origins, for browser clients of
// execute.
func WithCORSOrigins(origins []string) ServiceOption {
	return func(s *Service) {
		s.corsOrigins = origins
	}
}

// Service is the network facing receive side. Every consensus and election
// kind has its own route; requests are decoded and handed to the engine,
// and answered with an empty acknowledgement.
type Service struct {
	engine      paxos.Engine
	corsOrigins []string
	logger.Log
}

func NewService(engine paxos.Engine, optList ...ServiceOption) *Service {
	s := &Service{
		engine: engine,
		Log:    logger.NewLog("service"),
	}
	for _, opt := range optList {
		opt(s)
	}
	return s
}

func (s *Service) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	if len(s.corsOrigins) > 0 {
		r.Use(cors.New(cors.Options{
			AllowedOrigins: s.corsOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost},
			AllowedHeaders: []string{"Content-Type", requestIDHeader},
		}).Handler)
	}

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Route("/rpc", func(r chi.Router) {
		r.Post("/"+MethodExecute, s.handleExecute)

		r.Post("/"+MethodPrepare, consensusHandler(s, MethodPrepare, DecodePrepare))
		r.Post("/"+MethodPromise, consensusHandler(s, MethodPromise, DecodePromise))
		r.Post("/"+MethodAcceptSync, consensusHandler(s, MethodAcceptSync, DecodeAcceptSync))
		r.Post("/"+MethodFirstAccept, consensusHandler(s, MethodFirstAccept, DecodeFirstAccept))
		r.Post("/"+MethodAcceptDecide, consensusHandler(s, MethodAcceptDecide, DecodeAcceptDecide))
		r.Post("/"+MethodAccepted, consensusHandler(s, MethodAccepted, DecodeAccepted))
		r.Post("/"+MethodDecide, consensusHandler(s, MethodDecide, DecodeDecide))
		r.Post("/"+MethodProposalForward, consensusHandler(s, MethodProposalForward, DecodeProposalForward))
		r.Post("/"+MethodCompaction, consensusHandler(s, MethodCompaction, DecodeCompaction))
		r.Post("/"+MethodForwardCompaction, consensusHandler(s, MethodForwardCompaction, DecodeForwardCompaction))
		r.Post("/"+MethodAcceptStopSign, consensusHandler(s, MethodAcceptStopSign, DecodeAcceptStopSign))
		r.Post("/"+MethodAcceptedStopSign, consensusHandler(s, MethodAcceptedStopSign, DecodeAcceptedStopSign))
		r.Post("/"+MethodDecideStopSign, consensusHandler(s, MethodDecideStopSign, DecodeDecideStopSign))

		r.Post("/"+MethodHeartbeatRequest, electionHandler(s, MethodHeartbeatRequest, DecodeHeartbeatRequest))
		r.Post("/"+MethodHeartbeatReply, electionHandler(s, MethodHeartbeatReply, DecodeHeartbeatReply))

		r.NotFound(func(w http.ResponseWriter, r *http.Request) {
			writeStatus(w, http.StatusNotFound, CodeUnimplemented, "unknown method "+r.URL.Path)
		})
	})
	return r
}

func consensusHandler[R any](s *Service, method string, decode func(*R) (paxos.Message, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req := new(R)
		if !s.readRequest(w, r, method, req) {
			return
		}
		msg, err := decode(req)
		if err != nil {
			s.invalidArgument(w, r, method, err)
			return
		}
		s.engine.ReceiveConsensus(msg)
		writeJSON(w, http.StatusOK, &Void{})
	}
}

func electionHandler[R any](s *Service, method string, decode func(*R) (paxos.BLEMessage, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req := new(R)
		if !s.readRequest(w, r, method, req) {
			return
		}
		msg, err := decode(req)
		if err != nil {
			s.invalidArgument(w, r, method, err)
			return
		}
		s.engine.ReceiveElection(msg)
		writeJSON(w, http.StatusOK, &Void{})
	}
}

func (s *Service) handleExecute(w http.ResponseWriter, r *http.Request) {
	query := &Query{}
	if !s.readRequest(w, r, MethodExecute, query) {
		return
	}
	results, err := s.engine.Query(r.Context(), query.SQL)
	if err != nil {
		if errors.Is(err, paxos.ErrNotLeader) {
			writeStatus(w, http.StatusServiceUnavailable, CodeNotLeader, err.Error())
			return
		}
		s.Warn("execute failed", zap.String("requestId", r.Header.Get(requestIDHeader)), zap.Error(err))
		writeStatus(w, http.StatusInternalServerError, CodeInternal, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, resultsToPb(results))
}

func (s *Service) readRequest(w http.ResponseWriter, r *http.Request, method string, req interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(req); err != nil {
		s.invalidArgument(w, r, method, err)
		return false
	}
	return true
}

func (s *Service) invalidArgument(w http.ResponseWriter, r *http.Request, method string, err error) {
	s.Warn("invalid request", zap.String("method", method), zap.String("requestId", r.Header.Get(requestIDHeader)), zap.Error(err))
	writeStatus(w, http.StatusBadRequest, CodeInvalidArgument, err.Error())
}

func writeStatus(w http.ResponseWriter, httpStatus int, code, message string) {
	writeJSON(w, httpStatus, &StatusPb{Code: code, Message: message})
}

func writeJSON(w http.ResponseWriter, httpStatus int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(httpStatus)
	_ = json.NewEncoder(w).Encode(v)
}
