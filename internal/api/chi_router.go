// Catalogus - Course Catalog and Search Indexing Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/catalogus

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger/v2"

	"github.com/tomtom215/catalogus/internal/auth"
	"github.com/tomtom215/catalogus/internal/authz"
	"github.com/tomtom215/catalogus/internal/middleware"
)

// Router wires the handlers to their routes and middleware.
type Router struct {
	handler       *Handler
	authn         *auth.Middleware
	authz         *authz.Middleware
	login         http.Handler
	chiMiddleware *ChiMiddleware
}

// NewRouter creates a router. login may be nil when the auth mode does not
// issue tokens; mw may be nil to use defaults.
func NewRouter(handler *Handler, authn *auth.Middleware, az *authz.Middleware, login http.Handler, mw *ChiMiddleware) *Router {
	if mw == nil {
		mw = NewChiMiddleware(nil)
	}
	return &Router{
		handler:       handler,
		authn:         authn,
		authz:         az,
		login:         login,
		chiMiddleware: mw,
	}
}

// SetupChi configures all HTTP routes.
func (router *Router) SetupChi() http.Handler {
	r := chi.NewRouter()
	h := router.handler

	// Global middleware, applied to every route in order
	r.Use(middleware.RequestID)
	r.Use(middleware.SubOrganization)
	r.Use(RequestLogging())
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.StripSlashes) // legacy clients always send trailing slashes
	r.Use(router.chiMiddleware.CORS())

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.SecurityHeaders)
		r.Use(middleware.PrometheusMetrics)
		r.Use(h.perf.Middleware)
		r.Use(middleware.Compression)

		r.Route("/health", func(r chi.Router) {
			r.Use(router.chiMiddleware.RateLimitCustom(RateLimitHealth))
			r.Get("/", router.handler.Health)
			r.Get("/live", router.handler.HealthLive)
			r.Get("/ready", router.handler.HealthReady)
		})

		if router.login != nil {
			r.With(router.chiMiddleware.RateLimitCustom(RateLimitLogin)).
				Post("/auth/login", router.login.ServeHTTP)
		}

		r.Group(func(r chi.Router) {
			r.Use(router.chiMiddleware.RateLimit())
			r.Use(router.authn.Authenticate)
			r.Use(router.handler.ResolvePartner)
			router.registerCatalogRoutes(r)
		})

		// Operator endpoints name their partner explicitly.
		r.Group(func(r chi.Router) {
			r.Use(router.chiMiddleware.RateLimitCustom(RateLimitLoader))
			r.Use(router.authn.Authenticate)
			r.With(router.authz.AuthorizeAction("csv_imports", authz.ActionWrite)).
				Post("/csv_imports", h.ImportCourses)
			r.With(router.authz.AuthorizeAction("setup_service", authz.ActionWrite)).
				Post("/setup_service", h.SetupService)
		})

		r.With(
			router.chiMiddleware.RateLimit(),
			router.authn.Authenticate,
			router.authz.AuthorizeAction("performance", authz.ActionRead),
		).Get("/performance", h.Performance)
	})

	// Marketing panel endpoints. They authenticate but do not need a partner
	// bound to the request host.
	r.Route("/edly_api/v1", func(r chi.Router) {
		r.Use(middleware.SecurityHeaders)
		r.Use(middleware.PrometheusMetrics)
		r.Use(router.chiMiddleware.RateLimit())
		r.Use(router.authn.Authenticate)

		router.registerPanelRoutes(r)
	})

	r.Handle("/metrics", promhttp.Handler())
	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
		httpSwagger.DeepLinking(true),
		httpSwagger.DocExpansion("list"),
		httpSwagger.DomID("swagger-ui"),
	))

	return r
}

func (router *Router) registerCatalogRoutes(r chi.Router) {
	h := router.handler

	r.Route("/programs", func(r chi.Router) {
		r.Use(router.authz.Authorize("programs"))
		r.Get("/", h.ListPrograms)
		r.Post("/", h.CreateProgram)
		r.Get("/{uuid}", h.GetProgram)
		r.Put("/{uuid}", h.UpdateProgram)
		r.Patch("/{uuid}", h.UpdateProgram)
		r.With(router.authz.AuthorizeAction("programs/card_image", authz.ActionWrite)).
			Post("/{uuid}/update_card_image", h.UpdateCardImage)
	})

	r.Route("/subjects", func(r chi.Router) {
		r.Use(router.authz.Authorize("subjects"))
		r.Get("/", h.ListSubjects)
		r.Get("/{uuid}", h.GetSubject)
	})

	r.Route("/courses", func(r chi.Router) {
		r.Use(authz.ReadOnlyByPublisherUser)
		r.Use(router.authz.Authorize("courses"))
		r.Get("/", h.ListCourses)
		r.Post("/", h.CreateCourse)
		r.Get("/{uuid}", h.GetCourse)
		r.Put("/{uuid}", h.UpdateCourse)
		r.Patch("/{uuid}", h.UpdateCourse)
	})

	// Run keys such as course-v1:Org+Num+Run contain no slashes, but legacy
	// keys (Org/Num/Run) do, so runs are addressed by wildcard.
	r.Route("/course_runs", func(r chi.Router) {
		r.Use(authz.ReadOnlyByPublisherUser)
		r.Use(router.authz.Authorize("course_runs"))
		r.Get("/", h.ListCourseRuns)
		r.Get("/*", h.GetCourseRun)
		r.Put("/*", h.UpdateCourseRun)
		r.Patch("/*", h.UpdateCourseRun)
	})

	r.With(router.authz.Authorize("search")).
		Get("/search/course_runs", h.SearchCourseRuns)

	r.With(
		router.chiMiddleware.RateLimitCustom(RateLimitLoader),
		router.authz.AuthorizeAction("dataloader", authz.ActionWrite),
	).Post("/dataloader", h.DataLoader)
}

func (router *Router) registerPanelRoutes(r chi.Router) {
	h := router.handler

	r.With(
		router.chiMiddleware.RateLimitCustom(RateLimitLoader),
		router.authz.AuthorizeAction("dataloader", authz.ActionWrite),
	).Post("/dataloader", h.DataLoader)

	r.With(router.authz.AuthorizeAction("edly_sites", authz.ActionWrite)).
		Post("/edly_sites", h.EdlySites)
}
