package server

import (
	"context"
	"embed"
	"encoding/base64"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"strings"
	"time"

	"foodsaver/internal/events"
	"foodsaver/internal/lifecycle"
	"foodsaver/internal/matching"
	"foodsaver/internal/storage"
	"foodsaver/internal/store"
	"foodsaver/pkg/types"

	"github.com/alexedwards/flow"
	"github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider"
	"github.com/go-playground/form/v4"
	"github.com/gorilla/securecookie"
	"github.com/lestrrat-go/jwx/v3/jwk"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

//go:embed templates static
var uiFS embed.FS
var decoder = form.NewDecoder()

type Service struct {
	logger    *logrus.Logger
	config    *types.Config
	templates *template.Template

	cognitoClient *cognitoidentityprovider.Client
	cookie        *securecookie.SecureCookie

	users     *store.UserRepository
	donations *store.DonationRepository
	pickups   *store.PickupRepository
	rewards   *store.RewardRepository

	lifecycle *lifecycle.Service
	matching  *matching.Service
	images    *storage.ImageStorage
	events    events.Publisher

	jwksCache *jwk.Cache
	jwksURL   string

	server *http.Server
}

func New(
	config *types.Config,
	logger *logrus.Logger,
	cognitoClient *cognitoidentityprovider.Client,
	users *store.UserRepository,
	donations *store.DonationRepository,
	pickups *store.PickupRepository,
	rewards *store.RewardRepository,
	lifecycleSvc *lifecycle.Service,
	matchingSvc *matching.Service,
	images *storage.ImageStorage,
	publisher events.Publisher,
	jwkCache *jwk.Cache,
	jwksURL string,
) (*Service, error) {
	mux := flow.New()

	hashKey, _ := base64.StdEncoding.DecodeString(config.CookieHashKey)
	blockKey, _ := base64.StdEncoding.DecodeString(config.CookieBlockKey)

	s := &Service{
		logger:        logger,
		config:        config,
		cognitoClient: cognitoClient,
		cookie:        securecookie.New(hashKey, blockKey),

		users:     users,
		donations: donations,
		pickups:   pickups,
		rewards:   rewards,

		lifecycle: lifecycleSvc,
		matching:  matchingSvc,
		images:    images,
		events:    publisher,

		jwksCache: jwkCache,
		jwksURL:   jwksURL,
		server: &http.Server{
			Addr:              fmt.Sprintf(":%d", config.ServerPort),
			Handler:           mux,
			ReadTimeout:       time.Duration(config.ReadTimeoutSec) * time.Second,
			ReadHeaderTimeout: time.Duration(config.ReadTimeoutSec) * time.Second,
			WriteTimeout:      time.Duration(config.WriteTimeoutSec) * time.Second,
			MaxHeaderBytes:    1 << 20,
		},
	}

	templates, err := loadTemplates()
	if err != nil {
		return nil, err
	}
	s.templates = templates

	s.buildRouter(mux)

	return s, nil
}

func (s *Service) Start() error {
	return s.server.ListenAndServe()
}

func (s *Service) Stop(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

func (s *Service) buildRouter(r *flow.Mux) {
	r.Use(s.StripTrailingSlash)
	r.Use(s.LoggingMiddleware)

	r.HandleFunc("/", s.handleHome, http.MethodGet)
	r.HandleFunc("/healthz", s.handleHealth, http.MethodGet)
	r.Handle("/metrics", promhttp.Handler(), http.MethodGet)

	r.HandleFunc("/register", s.handleGetRegister, http.MethodGet)
	r.HandleFunc("/register", s.handlePostRegister, http.MethodPost)
	r.HandleFunc("/register/confirm", s.handleGetRegisterConfirm, http.MethodGet)
	r.HandleFunc("/register/confirm", s.handlePostRegisterConfirm, http.MethodPost)
	r.HandleFunc("/login", s.handleGetLogin, http.MethodGet)
	r.HandleFunc("/login", s.handlePostLogin, http.MethodPost)
	r.HandleFunc("/logout", s.handleLogout, http.MethodPost)

	r.Group(func(r *flow.Mux) {
		r.Use(s.RequireAuth)

		r.HandleFunc("/dashboard", s.handleDashboard, http.MethodGet)

		r.HandleFunc("/donations", s.handleUploadDonation, http.MethodPost)
		r.HandleFunc("/donations/:id", s.handleDonationDetail, http.MethodGet)
		r.HandleFunc("/donations/:id/claim", s.handleClaimDonation, http.MethodPost)
		r.HandleFunc("/donations/:id/accept", s.handleVolunteerAccept, http.MethodPost)
		r.HandleFunc("/pickups/:id/pickup", s.handleConfirmPickup, http.MethodPost)
		r.HandleFunc("/pickups/:id/deliver", s.handleConfirmDelivery, http.MethodPost)

		r.HandleFunc("/admin", s.handleAdminDashboard, http.MethodGet)
		r.HandleFunc("/admin/users/:id/fraud", s.handleToggleFraud, http.MethodPost)
	})

	staticRoot, err := fs.Sub(uiFS, "static")
	if err != nil {
		s.logger.WithError(err).Fatal("failed to mount static assets")
	}
	r.Handle("/static/...", http.StripPrefix("/static/", http.FileServer(http.FS(staticRoot))), http.MethodGet)
}

func loadTemplates() (*template.Template, error) {
	funcMap := template.FuncMap{
		"deref": func(s *string) string {
			if s == nil {
				return ""
			}
			return *s
		},
		"timeOrDash": func(t *time.Time) string {
			if t == nil {
				return "-"
			}
			return t.Format("Jan 2 15:04")
		},
	}

	t := template.New("").Funcs(funcMap)
	err := fs.WalkDir(uiFS, "templates", func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(path, ".html") {
			return nil
		}

		data, err := fs.ReadFile(uiFS, path)
		if err != nil {
			return fmt.Errorf("read template %s: %w", path, err)
		}

		if _, err := t.Parse(string(data)); err != nil {
			return fmt.Errorf("parse template %s: %w", path, err)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return t, nil
}

func (s *Service) actorFromContext(ctx context.Context) (*types.User, error) {
	actor, ok := ctx.Value(contextKeyActor).(*types.User)
	if !ok {
		return nil, fmt.Errorf("actor not found in context")
	}
	return actor, nil
}
