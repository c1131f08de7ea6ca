package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"careerquiz/auth"
	"careerquiz/i18n"
	"careerquiz/models"
	"careerquiz/quiz"
	"careerquiz/report"
)

const apiTokenHeader = "X-API-Token"

type APIResponse struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
}

type loginData struct {
	Token    string      `json:"token"`
	Username string      `json:"username"`
	Role     models.Role `json:"role"`
}

func sendJSONResponse(w http.ResponseWriter, status int, response APIResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(response)
}

func sendJSONError(w http.ResponseWriter, r *http.Request, status int, key string) {
	sendJSONResponse(w, status, APIResponse{Status: "error", Message: i18n.T(i18n.DetectLanguage(r), key)})
}

func (h *Handler) apiSession(r *http.Request) (models.SessionContext, bool) {
	token := r.Header.Get(apiTokenHeader)
	if token == "" {
		return models.SessionContext{}, false
	}
	sc, err := h.tokens.Parse(token)
	if err != nil {
		return models.SessionContext{}, false
	}
	return sc, true
}

func (h *Handler) APILoginHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		sendJSONError(w, r, http.StatusMethodNotAllowed, "MethodNotAllowed")
		return
	}

	ip := getClientIP(r)
	if !h.loginLimiter.Allow(ip) {
		sendJSONError(w, r, http.StatusTooManyRequests, "TooManyAttempts")
		return
	}

	var input struct {
		Username string `json:"username"`
		Password string `json:"password"`
		Role     string `json:"role"`
	}
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(&input); err != nil {
		sendJSONError(w, r, http.StatusBadRequest, "InvalidRequestBody")
		return
	}

	sc, err := h.auth.Authenticate(r.Context(), input.Username, input.Password, input.Role)
	if errors.Is(err, auth.ErrInvalidCredentials) {
		h.loginLimiter.RecordFailure(ip)
		h.log.InfoContext(r.Context(), "api login failed", "username", input.Username, "ip", ip)
		sendJSONError(w, r, http.StatusUnauthorized, "InvalidLogin")
		return
	}
	if err != nil {
		h.log.ErrorContext(r.Context(), "authenticate", "err", err)
		sendJSONError(w, r, http.StatusInternalServerError, "InternalServerError")
		return
	}
	h.loginLimiter.Reset(ip)

	token, err := h.tokens.Issue(sc)
	if err != nil {
		h.log.ErrorContext(r.Context(), "issue token", "err", err)
		sendJSONError(w, r, http.StatusInternalServerError, "InternalServerError")
		return
	}

	sendJSONResponse(w, http.StatusOK, APIResponse{
		Status: "success",
		Data:   loginData{Token: token, Username: sc.Username, Role: sc.Role},
	})
}

func (h *Handler) APIQuestionsHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		sendJSONError(w, r, http.StatusMethodNotAllowed, "MethodNotAllowed")
		return
	}
	if _, ok := h.apiSession(r); !ok {
		sendJSONError(w, r, http.StatusUnauthorized, "Unauthorized")
		return
	}
	sendJSONResponse(w, http.StatusOK, APIResponse{Status: "success", Data: quiz.Questions()})
}

func (h *Handler) APIResultHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		sendJSONError(w, r, http.StatusMethodNotAllowed, "MethodNotAllowed")
		return
	}
	sc, ok := h.apiSession(r)
	if !ok {
		sendJSONError(w, r, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var input struct {
		Answers map[string]string `json:"answers"`
	}
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(&input); err != nil {
		sendJSONError(w, r, http.StatusBadRequest, "InvalidRequestBody")
		return
	}

	res, err := quiz.Score(input.Answers)
	if errors.Is(err, quiz.ErrMalformedAnswer) {
		sendJSONResponse(w, http.StatusBadRequest, APIResponse{Status: "error", Message: err.Error()})
		return
	}
	if err != nil {
		h.log.ErrorContext(r.Context(), "score answers", "err", err)
		sendJSONError(w, r, http.StatusInternalServerError, "InternalServerError")
		return
	}

	attempt := attemptFor(sc, res)
	if err := h.results.Record(r.Context(), &attempt); err != nil {
		h.log.ErrorContext(r.Context(), "record result", "err", err)
		sendJSONError(w, r, http.StatusInternalServerError, "InternalServerError")
		return
	}
	sendJSONResponse(w, http.StatusCreated, APIResponse{Status: "success", Data: attempt})
}

func (h *Handler) APIReportHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		sendJSONError(w, r, http.StatusMethodNotAllowed, "MethodNotAllowed")
		return
	}
	sc, ok := h.apiSession(r)
	if !ok {
		sendJSONError(w, r, http.StatusUnauthorized, "Unauthorized")
		return
	}
	if !sc.IsAdmin() {
		sendJSONError(w, r, http.StatusForbidden, "Forbidden")
		return
	}

	rep, err := report.Build(r.Context(), h.results)
	if err != nil {
		h.log.ErrorContext(r.Context(), "build report", "err", err)
		sendJSONError(w, r, http.StatusInternalServerError, "InternalServerError")
		return
	}
	sendJSONResponse(w, http.StatusOK, APIResponse{Status: "success", Data: rep})
}
