package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/sakif/gitfolio/internal/auth"
	"github.com/sakif/gitfolio/internal/github"
	"github.com/sakif/gitfolio/internal/handler"
	"github.com/sakif/gitfolio/internal/model"
	"github.com/sakif/gitfolio/internal/repository/sqlstore"
	"github.com/sakif/gitfolio/internal/service"
)

// testUserHeader lets tests act as a signed-in user without minting cookies;
// the session middleware itself is covered in the auth and server packages.
const testUserHeader = "X-Test-User"

type fakeGitHub struct {
	users map[string]*github.User
	repos     map[string][]github.Repo
	followers map[string][]github.Account
	err       error
}

func (f *fakeGitHub) GetUser(_ context.Context, login string) (*github.User, error) {
	if f.err != nil {
		return nil, f.err
	}
	u, ok := f.users[login]
	if !ok {
		return nil, github.ErrNotFound
	}
	return u, nil
}

func (f *fakeGitHub) ListRepos(_ context.Context, login string) ([]github.Repo, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.repos[login], nil
}

func (f *fakeGitHub) GetReadme(context.Context, string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return "# hello", nil
}

func (f *fakeGitHub) ListFollowers(_ context.Context, login string, _ int) ([]github.Account, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.followers[login], nil
}

func (f *fakeGitHub) ListFollowing(context.Context, string, int) ([]github.Account, error) {
	if f.err != nil {
		return nil, f.err
	}
	return nil, nil
}

type testEnv struct {
	router *chi.Mux
	db     *sqlstore.DB
	users  *service.UserService
	gh     *fakeGitHub
	logs   *bytes.Buffer
}

// newTestEnv wires every handler against an in-memory SQLite store.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := sqlstore.Open(context.Background(), sqlstore.Options{Driver: sqlstore.DialectSQLite, DSN: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	logs := &bytes.Buffer{}
	logger := slog.New(slog.NewTextHandler(logs, &slog.HandlerOptions{Level: slog.LevelDebug}))
	tokens, err := auth.NewTokenService("handler-test-secret-0123456789", 0)
	require.NoError(t, err)

	gh := &fakeGitHub{
		users: map[string]*github.User{"octocat": {Login: "octocat", Name: "The Octocat"}},
		repos: map[string][]github.Repo{"octocat": {
			{Name: "hello-world", Stars: 3},
			{Name: "spoon-knife", Stars: 4},
		}},
		followers: map[string][]github.Account{"octocat": {{Login: "hubot", HTMLURL: "https://github.com/hubot"}}},
	}

	users := service.NewUserService(db, logger)
	portfolios := service.NewPortfolioService(db, "https://gitfolio.test", logger)
	sessions := service.NewSessionService(users, tokens, logger)
	profiles := service.NewProfileService(db, gh, logger)

	uh := handler.NewUserHandler(users, logger)
	ph := handler.NewPortfolioHandler(portfolios, logger)
	sh := handler.NewSessionHandler(sessions, tokens, false, logger)
	mh := handler.NewMeHandler(sessions, portfolios, logger)
	vh := handler.NewViewHandler(profiles, logger)
	hh := handler.NewHealthHandler(db, logger)

	r := chi.NewRouter()
	r.Get("/healthz", hh.HandleHealth)
	r.Route("/api", func(r chi.Router) {
		r.Post("/users", uh.HandleCreate)
		r.Get("/users", uh.HandleFind)
		r.Put("/users", uh.HandleUpdate)
		r.Delete("/users", uh.HandleDelete)

		r.Get("/portfolios", ph.HandleList)
		r.Post("/portfolios", ph.HandleCreate)
		r.Put("/portfolios/active", ph.HandleActivate)
		r.Delete("/portfolios", ph.HandleDelete)
		r.Get("/portfolios/check", ph.HandleCheck)

		r.Post("/session/login", sh.HandleLogin)
		r.Post("/session/signup", sh.HandleSignup)
		r.Post("/session/logout", sh.HandleLogout)

		r.Get("/view/{username}", vh.HandleView)

		r.Route("/me", func(r chi.Router) {
			r.Use(func(next http.Handler) http.Handler {
				return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
					if id := r.Header.Get(testUserHeader); id != "" {
						r = r.WithContext(auth.WithUserID(r.Context(), id))
					}
					next.ServeHTTP(w, r)
				})
			})
			r.Get("/", mh.HandleMe)
			r.Get("/portfolios", mh.HandleList)
			r.Post("/portfolios", mh.HandleRegister)
			r.Put("/portfolios/active", mh.HandleSwitch)
			r.Delete("/portfolios/{username}", mh.HandleRemove)
		})
	})

	return &testEnv{router: r, db: db, users: users, gh: gh, logs: logs}
}

// do sends a request; body is JSON-encoded unless it is nil.
func (e *testEnv) do(t *testing.T, method, target string, body any, headers ...string) *httptest.ResponseRecorder {
	t.Helper()

	var rdr io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		require.NoError(t, err)
		rdr = bytes.NewReader(buf)
	}
	req := httptest.NewRequest(method, target, rdr)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}

	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) createUser(t *testing.T, email string) *model.User {
	t.Helper()
	u, err := e.users.Create(context.Background(), "user", email, "Test User")
	require.NoError(t, err)
	return u
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), "body: %s", rec.Body.String())
	return v
}

func errorType(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	return decode[handler.ErrorResponse](t, rec).Error
}
