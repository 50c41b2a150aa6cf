package routes

import (
	"net/http"

	"docchat/docchat/config"
	"docchat/docchat/controllers"
	"docchat/docchat/middlewares"
	"docchat/docchat/utils/types"

	"github.com/go-chi/chi/v5"
)

type sessionView struct {
	SessionID string                   `json:"session_id"`
	Phase     controllers.SessionPhase `json:"phase"`
	Documents []types.DocumentRecord   `json:"documents"`
}

func SessionRoutes(ctrl *controllers.SessionController, docs *controllers.DocumentController, state controllers.SessionState, cfg config.Config) chi.Router {
	r := chi.NewRouter()
	view := func() sessionView {
		return sessionView{SessionID: state.SessionID(), Phase: ctrl.Phase(), Documents: docs.Documents()}
	}

	r.Group(func(gr chi.Router) {
		gr.Use(middlewares.AuthMiddleware(cfg))

		gr.Get("/", handleJSON(func(r *http.Request) (any, int, error) {
			return view(), http.StatusOK, nil
		}))

		gr.Post("/new", handleJSON(func(r *http.Request) (any, int, error) {
			if err := ctrl.NewChat(r.Context()); err != nil {
				return nil, statusFor(err), err
			}
			return view(), http.StatusCreated, nil
		}))

		gr.Get("/list", handleJSON(func(r *http.Request) (any, int, error) {
			sessions, err := ctrl.ListSessions(r.Context())
			if err != nil {
				return nil, statusFor(err), err
			}
			return sessions, http.StatusOK, nil
		}))

		gr.Post("/use/{session_id}", handleJSON(func(r *http.Request) (any, int, error) {
			if err := ctrl.Use(r.Context(), chi.URLParam(r, "session_id")); err != nil {
				return nil, statusFor(err), err
			}
			return view(), http.StatusOK, nil
		}))

		gr.Post("/logout", handleJSON(func(r *http.Request) (any, int, error) {
			if err := ctrl.Logout(r.Context()); err != nil {
				return nil, statusFor(err), err
			}
			return map[string]string{"status": "logged out"}, http.StatusOK, nil
		}))
	})
	return r
}
