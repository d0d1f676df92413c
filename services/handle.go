package services

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/ethereum/go-ethereum/log"

	"github.com/JokingLove/whale-alert-sync/common/address"
)

const (
	defaultLatestLimit = 20
	maxLatestLimit     = 200
)

func (ss *StatusServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := ss.db.Ping(r.Context()); err != nil {
		log.Warn("health check failed", "err", err)
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("database unavailable"))
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (ss *StatusServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	state, err := ss.db.PollingState.QueryPollingState()
	if err != nil {
		log.Error("query polling state fail", "err", err)
		writeError(w, http.StatusInternalServerError, "query polling state fail")
		return
	}
	txCount, err := ss.db.WhaleTransactions.CountWhaleTransactions()
	if err != nil {
		log.Error("count whale transactions fail", "err", err)
		writeError(w, http.StatusInternalServerError, "count whale transactions fail")
		return
	}
	notificationCount, err := ss.db.Notifications.CountNotifications()
	if err != nil {
		log.Error("count notifications fail", "err", err)
		writeError(w, http.StatusInternalServerError, "count notifications fail")
		return
	}

	status := StatusResponse{
		WhaleTransactions: txCount,
		Notifications:     notificationCount,
	}
	if state != nil {
		checkpoint := &CheckpointStatus{
			LastProcessedTimestamp:     state.LastProcessedTimestamp,
			TransactionsProcessedTotal: state.TransactionsProcessedTotal,
			UpdatedAt:                  state.UpdatedAt,
		}
		if state.LastTransactionHash != nil {
			checkpoint.LastTransactionHash = *state.LastTransactionHash
		}
		if state.LastError != nil {
			checkpoint.LastError = *state.LastError
		}
		status.Checkpoint = checkpoint
	}
	if ss.summary != nil {
		status.LastCycle = ss.summary.LastSummary()
	}
	writeData(w, status)
}

func (ss *StatusServer) handleLatestTransactions(w http.ResponseWriter, r *http.Request) {
	limit := defaultLatestLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = min(n, maxLatestLimit)
	}

	txs, err := ss.db.WhaleTransactions.QueryLatestWhaleTransactions(limit)
	if err != nil {
		log.Error("query latest whale transactions fail", "err", err)
		writeError(w, http.StatusInternalServerError, "query whale transactions fail")
		return
	}
	items := make([]TransactionItem, 0, len(txs))
	for _, tx := range txs {
		items = append(items, TransactionItem{
			Hash:            tx.Hash,
			Blockchain:      tx.Blockchain,
			Symbol:          tx.Symbol,
			Amount:          tx.Amount,
			AmountUsd:       tx.AmountUsd,
			FromAddress:     tx.FromAddress,
			FromOwner:       tx.FromOwner,
			ToAddress:       tx.ToAddress,
			ToOwner:         tx.ToOwner,
			TransactionType: tx.TransactionType,
			Timestamp:       tx.Timestamp,
		})
	}
	writeData(w, items)
}

func (ss *StatusServer) handleClassify(w http.ResponseWriter, r *http.Request) {
	addr := r.URL.Query().Get("address")
	if addr == "" {
		writeError(w, http.StatusBadRequest, "invalid params")
		return
	}
	normalized, blockchain, err := address.Normalize(addr)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	writeData(w, ClassifyResponse{
		Address:    addr,
		Normalized: normalized,
		Blockchain: blockchain,
	})
}

func writeData(w http.ResponseWriter, data interface{}) {
	writeJSON(w, http.StatusOK, Response{Code: ReturnCodeSuccess, Msg: "success", Data: data})
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, Response{Code: ReturnCodeError, Msg: msg})
}

func writeJSON(w http.ResponseWriter, status int, body Response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Warn("write response fail", "err", err)
	}
}
