package admin

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/product-catalog/catalog/internal/catalogapi"
	"github.com/product-catalog/catalog/internal/shared"
)

type loginForm struct {
	Username string `form:"username" validate:"required,max=100"`
	Password string `form:"password" validate:"required,max=72"`
	Next     string `form:"next"`
}

type loginView struct {
	Username string
	Next     string
	Errors   map[string]string
}

func (h *Handler) showLogin(w http.ResponseWriter, r *http.Request) {
	if token(r) != "" {
		http.Redirect(w, r, "/products", http.StatusSeeOther)
		return
	}
	h.render(w, r, "pages/login.html", "Sign in", loginView{
		Next:   r.URL.Query().Get("next"),
		Errors: map[string]string{},
	}, http.StatusOK)
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	var f loginForm
	if err := h.forms.Decode(&f, r.PostForm); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	f.Username = strings.TrimSpace(f.Username)

	errs := map[string]string{}
	if err := h.validator.Struct(f); err != nil {
		errs = shared.FieldErrors(err)
	}
	if len(errs) == 0 {
		res, err := h.api.Login(r.Context(), f.Username, f.Password)
		switch {
		case err == nil:
			sess := shared.SessionFromContext(r.Context())
			if sess == nil {
				h.logger.Error("session missing during login")
				http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
				return
			}
			sess.SignIn(f.Username, res.Token)
			h.csrf.RotateToken(sess)
			h.logger.Info("admin login", slog.String("username", f.Username))
			h.redirectWithFlash(w, r, safeNext(f.Next), "success", "Welcome back, "+f.Username)
			return
		case errors.Is(err, catalogapi.ErrUnauthorized), errors.Is(err, catalogapi.ErrValidation):
			errs["general"] = "Invalid username or password"
		default:
			h.logger.Error("admin login", slog.Any("error", err))
			errs["general"] = shared.UserSafeMessage(err)
		}
	}
	h.render(w, r, "pages/login.html", "Sign in", loginView{
		Username: f.Username,
		Next:     f.Next,
		Errors:   errs,
	}, http.StatusBadRequest)
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	sess := shared.SessionFromContext(r.Context())
	if t := sess.APIToken(); t != "" {
		if err := h.api.Logout(r.Context(), t); err != nil && !errors.Is(err, catalogapi.ErrUnauthorized) {
			h.logger.Warn("api logout", slog.Any("error", err))
		}
	}
	h.sessions.Destroy(sess)
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}
