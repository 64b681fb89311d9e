package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/joho/godotenv"

	"call-audit-go/internal/config"
	"call-audit-go/internal/logger"
	"call-audit-go/internal/store"
	"call-audit-go/internal/telephony"
)

func main() {
	_ = godotenv.Load() // loads .env

	cfg := config.Load()
	log := logger.New()
	log.WithField("service", "webhookd").Info("starting webhook receiver")

	st, err := store.Open(cfg.DBPath)
	if err != nil {
		log.WithError(err).Fatal("failed to open call store")
	}
	defer st.Close()

	mux := http.NewServeMux()

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		logger.New().WithRequest(r).Info("health check")
		fmt.Fprint(w, "ok")
	})

	// PBX posts completed-call events here as form data
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		reqLog := logger.New().WithRequest(r).WithField("handler", "webhook")

		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		if err := r.ParseForm(); err != nil {
			reqLog.WithError(err).Warn("bad form payload")
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}

		call, ok := telephony.ParseWebhook(r.PostForm)
		if !ok {
			reqLog.Debug("event ignored, not a completed call with recording")
			writeOK(w)
			return
		}
		reqLog = reqLog.WithField("call_id", call.ID)

		exists, err := st.Exists(r.Context(), call.ID)
		if err != nil {
			reqLog.WithError(err).Error("exists check failed")
			http.Error(w, "storage error", http.StatusInternalServerError)
			return
		}
		if exists {
			reqLog.Info("call already ingested, skipping")
			writeOK(w)
			return
		}

		if err := st.Upsert(r.Context(), call); err != nil {
			reqLog.WithError(err).Error("failed to save call")
			http.Error(w, "storage error", http.StatusInternalServerError)
			return
		}
		reqLog.WithField("operator", call.Operator).Info("call ingested")
		writeOK(w)
	})

	addr := fmt.Sprintf(":%s", envOr("PORT", "8000"))
	srv := &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}
	log.WithField("addr", addr).Info("listening")
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.WithError(err).Fatal("server terminated")
	}
}

func writeOK(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func envOr(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
