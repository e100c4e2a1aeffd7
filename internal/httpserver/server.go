// Package httpserver 指标、健康检查与手动开仓接口
package httpserver

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ninja0404/meme-sniper/internal/model"
	"github.com/ninja0404/meme-sniper/pkg/logger"
)

// Opener 按代币地址登记开仓
type Opener interface {
	Open(ctx context.Context, mint solana.PublicKey, risk *model.Risk) (string, error)
}

// Server 管理接口
type Server struct {
	server *http.Server
}

// OpenRequest POST /positions 请求体，risk 为空时使用默认风控
type OpenRequest struct {
	Mint string      `json:"mint"`
	Risk *model.Risk `json:"risk,omitempty"`
}

// OpenResponse 开仓请求受理结果
type OpenResponse struct {
	RequestID string `json:"request_id"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// New 创建管理接口
func New(addr string, opener Opener) *Server {
	return &Server{
		server: &http.Server{
			Addr:              addr,
			Handler:           NewRouter(opener),
			ReadTimeout:       15 * time.Second,
			ReadHeaderTimeout: 10 * time.Second,
			WriteTimeout:      15 * time.Second,
			IdleTimeout:       60 * time.Second,
		},
	}
}

// NewRouter 路由，opener 为空时不挂载开仓接口
func NewRouter(opener Opener) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	r.Get("/metrics", promhttp.Handler().ServeHTTP)
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if opener != nil {
		r.Post("/positions", openHandler(opener))
	}
	return r
}

// requestLogger 给每个请求挂上带 http_request_id 的 logger
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		l := logger.Default().With(
			logger.String("http_request_id", middleware.GetReqID(r.Context())),
			logger.String("remote", r.RemoteAddr))
		next.ServeHTTP(w, r.WithContext(logger.ContextWithLog(r.Context(), l)))
	})
}

func openHandler(opener Opener) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req OpenRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid json body"})
			return
		}
		mint, err := solana.PublicKeyFromBase58(req.Mint)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid mint"})
			return
		}
		if req.Risk != nil && (req.Risk.TakeProfit < 0 || req.Risk.StopLoss < 0) {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "take_profit and stop_loss must be positive fractions"})
			return
		}

		log := logger.LogFromContext(r.Context())
		id, err := opener.Open(r.Context(), mint, req.Risk)
		if err != nil {
			log.Error("❌ 开仓请求投递失败", logger.String("mint", req.Mint), logger.FieldErr(err))
			writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: err.Error()})
			return
		}

		log.Info("📥 收到开仓请求",
			logger.String("request_id", id),
			logger.String("mint", req.Mint))
		writeJSON(w, http.StatusAccepted, OpenResponse{RequestID: id})
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// Start 阻塞直到服务关闭
func (s *Server) Start() error {
	logger.Info("🌐 管理接口启动", logger.String("addr", s.server.Addr))

	err := s.server.ListenAndServe()
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Wrap(err, "listen and serve")
	}
	return nil
}

// Shutdown 优雅关闭
func (s *Server) Shutdown(ctx context.Context) error {
	if err := s.server.Shutdown(ctx); err != nil {
		return errors.Wrap(err, "shutdown http server")
	}
	logger.Info("管理接口已关闭")
	return nil
}
