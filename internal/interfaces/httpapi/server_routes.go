package httpapi

import "net/http"

func registerSystemRoutes(mux *http.ServeMux, handler *Handler) {
	mux.HandleFunc("GET /healthz", handler.Healthz)
}

func registerPublicRoutes(mux *http.ServeMux, handler *Handler) {
	mux.HandleFunc("GET /v1/leagues/{leagueID}/trade-window", handler.GetTradeWindow)
}

func registerAuthorizedRoutes(mux *http.ServeMux, handler *Handler, verifier TokenVerifier) {
	mux.Handle("POST /v1/leagues/{leagueID}/trades", RequireAuth(verifier, http.HandlerFunc(handler.SubmitTrade)))
	mux.Handle("DELETE /v1/leagues/{leagueID}/trades/{tradeID}", RequireAuth(verifier, http.HandlerFunc(handler.CancelTrade)))
	mux.Handle("GET /v1/leagues/{leagueID}/trades/status", RequireAuth(verifier, http.HandlerFunc(handler.GetTradeStatus)))
	mux.Handle("GET /v1/leagues/{leagueID}/roster", RequireAuth(verifier, http.HandlerFunc(handler.GetRoster)))
}

func registerInternalJobRoutes(mux *http.ServeMux, handler *Handler, internalJobToken string) {
	mux.Handle("POST /v1/internal/jobs/apply-due-trades", RequireInternalJobToken(internalJobToken, http.HandlerFunc(handler.RunApplyDueTradesJob)))
}
