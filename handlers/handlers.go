package handlers

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"html/template"
	"log/slog"
	"net/http"

	"careerquiz/auth"
	"careerquiz/i18n"
	"careerquiz/models"
	"careerquiz/quiz"
	"careerquiz/report"

	"github.com/dchest/captcha"
	"github.com/gorilla/csrf"
)

//go:embed templates/*.html
var templateFS embed.FS

// ResultStore records attempts and serves them back for reporting.
type ResultStore interface {
	Record(ctx context.Context, attempt *models.QuizAttempt) error
	report.Source
}

type Options struct {
	AppName              string
	Auth                 *auth.Service
	Sessions             *auth.SessionManager
	Tokens               *auth.TokenIssuer
	Results              ResultStore
	Logger               *slog.Logger
	CaptchaAfterFailures int
}

type Handler struct {
	appName      string
	auth         *auth.Service
	sessions     *auth.SessionManager
	tokens       *auth.TokenIssuer
	results      ResultStore
	log          *slog.Logger
	loginLimiter *rateLimiter
	captchaAfter int
}

func New(opts Options) *Handler {
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Handler{
		appName:      opts.AppName,
		auth:         opts.Auth,
		sessions:     opts.Sessions,
		tokens:       opts.Tokens,
		results:      opts.Results,
		log:          log,
		loginLimiter: newRateLimiter(),
		captchaAfter: opts.CaptchaAfterFailures,
	}
}

func (h *Handler) RegisterHandlers(mux *http.ServeMux) {
	mux.HandleFunc("/{$}", h.LoginHandler)
	mux.HandleFunc("/test", h.TestHandler)
	mux.HandleFunc("/result", h.ResultHandler)
	mux.HandleFunc("/admin", h.AdminHandler)
	mux.HandleFunc("/admin/export.csv", h.ExportHandler)
	mux.HandleFunc("/logout", h.LogoutHandler)
	mux.Handle("/captcha/", captcha.Server(captcha.StdWidth, captcha.StdHeight))

	mux.Handle("/api/v1/login", CORSMiddleware(http.HandlerFunc(h.APILoginHandler)))
	mux.Handle("/api/v1/questions", CORSMiddleware(http.HandlerFunc(h.APIQuestionsHandler)))
	mux.Handle("/api/v1/result", CORSMiddleware(http.HandlerFunc(h.APIResultHandler)))
	mux.Handle("/api/v1/report", CORSMiddleware(http.HandlerFunc(h.APIReportHandler)))
}

// Routes returns the full handler chain served by the HTTP server.
func (h *Handler) Routes(csrfKey []byte, secure bool) http.Handler {
	mux := http.NewServeMux()
	h.RegisterHandlers(mux)

	var handler http.Handler = mux
	handler = CSRFMiddleware(csrfKey, secure, h.log)(handler)
	handler = SecurityHeadersMiddleware(handler)
	handler = RescueMiddleware(h.log)(handler)
	handler = LoggingMiddleware(h.log)(handler)
	return handler
}

func homeFor(sc models.SessionContext) string {
	if sc.IsAdmin() {
		return "/admin"
	}
	return "/test"
}

func (h *Handler) LoginHandler(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet, http.MethodHead:
		h.renderLogin(w, r, http.StatusOK, "", "", "")
	case http.MethodPost:
		h.login(w, r)
	default:
		h.methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
	}
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	lang := i18n.DetectLanguage(r)
	ip := getClientIP(r)
	username := r.FormValue("username")
	role := r.FormValue("role")

	if !h.loginLimiter.Allow(ip) {
		h.log.WarnContext(r.Context(), "login blocked", "ip", ip)
		h.renderLogin(w, r, http.StatusTooManyRequests, i18n.T(lang, "TooManyAttempts"), username, role)
		return
	}

	if h.captchaRequired(ip) && !captcha.VerifyString(r.FormValue("captcha_id"), r.FormValue("captcha_solution")) {
		h.loginLimiter.RecordFailure(ip)
		h.renderLogin(w, r, http.StatusUnauthorized, i18n.T(lang, "CaptchaRequired"), username, role)
		return
	}

	sc, err := h.auth.Authenticate(r.Context(), username, r.FormValue("password"), role)
	if errors.Is(err, auth.ErrInvalidCredentials) {
		h.loginLimiter.RecordFailure(ip)
		h.log.InfoContext(r.Context(), "login failed", "username", username, "ip", ip)
		h.renderLogin(w, r, http.StatusUnauthorized, i18n.T(lang, "InvalidLogin"), username, role)
		return
	}
	if err != nil {
		h.serverError(w, r, "authenticate", err)
		return
	}

	h.loginLimiter.Reset(ip)
	if err := h.sessions.Set(w, r, sc); err != nil {
		h.serverError(w, r, "save session", err)
		return
	}
	h.log.InfoContext(r.Context(), "login", "username", sc.Username, "role", sc.Role)
	http.Redirect(w, r, homeFor(sc), http.StatusSeeOther)
}

func (h *Handler) captchaRequired(ip string) bool {
	return h.captchaAfter > 0 && h.loginLimiter.Failures(ip) >= h.captchaAfter
}

func (h *Handler) renderLogin(w http.ResponseWriter, r *http.Request, status int, message, username, role string) {
	data := map[string]any{
		"Error":    message,
		"Username": username,
		"Role":     role,
	}
	if h.captchaRequired(getClientIP(r)) {
		data["CaptchaID"] = captcha.New()
	}
	h.renderTemplate(w, r, status, "login.html", data)
}

type section struct {
	Title     string
	Questions []quiz.Question
}

var sectionTitles = map[quiz.Section]string{
	quiz.SectionAptitude:    "SectionAptitude",
	quiz.SectionInterest:    "SectionInterest",
	quiz.SectionPersonality: "SectionPersonality",
}

func quizSections() []section {
	var out []section
	for _, q := range quiz.Questions() {
		title := sectionTitles[q.Section]
		if len(out) == 0 || out[len(out)-1].Title != title {
			out = append(out, section{Title: title})
		}
		last := &out[len(out)-1]
		last.Questions = append(last.Questions, q)
	}
	return out
}

func (h *Handler) TestHandler(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.sessions.Get(r); !ok {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		h.methodNotAllowed(w, r, http.MethodGet)
		return
	}
	h.renderTemplate(w, r, http.StatusOK, "test.html", map[string]any{
		"Sections": quizSections(),
		"Answers":  map[string]string{},
	})
}

func (h *Handler) ResultHandler(w http.ResponseWriter, r *http.Request) {
	sc, ok := h.sessions.Get(r)
	if !ok {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	if r.Method != http.MethodPost {
		h.methodNotAllowed(w, r, http.MethodPost)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, i18n.T(i18n.DetectLanguage(r), "InvalidRequestBody"), http.StatusBadRequest)
		return
	}

	answers := make(map[string]string)
	for _, id := range quiz.AnswerIDs() {
		if vs, present := r.PostForm[id]; present && len(vs) > 0 {
			answers[id] = vs[0]
		}
	}

	res, err := quiz.Score(answers)
	if errors.Is(err, quiz.ErrMalformedAnswer) {
		lang := i18n.DetectLanguage(r)
		h.renderTemplate(w, r, http.StatusBadRequest, "test.html", map[string]any{
			"Sections": quizSections(),
			"Answers":  answers,
			"Error":    i18n.T(lang, "MalformedAnswer") + " (" + err.Error() + ")",
		})
		return
	}
	if err != nil {
		h.serverError(w, r, "score answers", err)
		return
	}

	attempt := attemptFor(sc, res)
	if err := h.results.Record(r.Context(), &attempt); err != nil {
		h.serverError(w, r, "record result", err)
		return
	}
	h.log.InfoContext(r.Context(), "result recorded", "username", sc.Username, "total", res.Total, "career", res.Career)
	h.renderTemplate(w, r, http.StatusOK, "result.html", map[string]any{"Result": res})
}

func attemptFor(sc models.SessionContext, res quiz.Result) models.QuizAttempt {
	return models.QuizAttempt{
		Username:    sc.Username,
		Aptitude:    res.Aptitude,
		Interest:    res.Interest,
		Personality: res.Personality,
		Total:       res.Total,
		Career:      res.Career,
	}
}

func (h *Handler) AdminHandler(w http.ResponseWriter, r *http.Request) {
	sc, ok := h.sessions.Get(r)
	if !ok || !sc.IsAdmin() {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		h.methodNotAllowed(w, r, http.MethodGet)
		return
	}

	rep, err := report.Build(r.Context(), h.results)
	if err != nil {
		h.serverError(w, r, "build report", err)
		return
	}
	h.renderTemplate(w, r, http.StatusOK, "admin.html", map[string]any{"Report": rep})
}

func (h *Handler) ExportHandler(w http.ResponseWriter, r *http.Request) {
	sc, ok := h.sessions.Get(r)
	if !ok || !sc.IsAdmin() {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	if r.Method != http.MethodGet {
		h.methodNotAllowed(w, r, http.MethodGet)
		return
	}

	attempts, err := h.results.All(r.Context())
	if err != nil {
		h.serverError(w, r, "list results", err)
		return
	}

	var buf bytes.Buffer
	if err := report.WriteCSV(&buf, attempts); err != nil {
		h.serverError(w, r, "write csv", err)
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="results.csv"`)
	w.Write(buf.Bytes())
}

func (h *Handler) LogoutHandler(w http.ResponseWriter, r *http.Request) {
	if err := h.sessions.Clear(w, r); err != nil {
		h.log.WarnContext(r.Context(), "clear session", "err", err)
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (h *Handler) methodNotAllowed(w http.ResponseWriter, r *http.Request, allowed ...string) {
	for _, m := range allowed {
		w.Header().Add("Allow", m)
	}
	http.Error(w, i18n.T(i18n.DetectLanguage(r), "MethodNotAllowed"), http.StatusMethodNotAllowed)
}

func (h *Handler) serverError(w http.ResponseWriter, r *http.Request, op string, err error) {
	h.log.ErrorContext(r.Context(), op, "err", err)
	http.Error(w, i18n.T(i18n.DetectLanguage(r), "InternalServerError"), http.StatusInternalServerError)
}

func (h *Handler) renderTemplate(w http.ResponseWriter, r *http.Request, status int, name string, data map[string]any) {
	lang := i18n.DetectLanguage(r)

	funcMap := template.FuncMap{
		"T": func(key string) string {
			return i18n.T(lang, key)
		},
	}

	tmpl, err := template.New(name).Funcs(funcMap).ParseFS(templateFS, "templates/layout.html", "templates/"+name)
	if err != nil {
		h.serverError(w, r, "parse template", err)
		return
	}

	if data == nil {
		data = map[string]any{}
	}
	data["AppName"] = h.appName
	data["Lang"] = lang
	data["csrfField"] = csrf.TemplateField(r)
	if sc, ok := h.sessions.Get(r); ok {
		data["User"] = sc
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "layout", data); err != nil {
		h.serverError(w, r, "render "+name, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	w.Write(buf.Bytes())
}
