package httptransport

import (
	"fmt"
	"net/http"
	"sort"
	"strings"

	appaccount "betpro/internal/app/account"
	apppublic "betpro/internal/app/public"
	appslip "betpro/internal/app/slip"
	"betpro/internal/betslip"
	"betpro/internal/feed"
	"betpro/internal/ledger"
	"betpro/internal/session"
	"betpro/internal/stats"
	"betpro/internal/store"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

type Deps struct {
	Store       store.Store
	Ledger      *ledger.Ledger
	Engine      *betslip.Engine
	Slips       *betslip.Hub
	Sessions    *session.Manager
	Stats       *stats.Service
	Feed        *feed.Hub
	AdminAPIKey string
}

func NewRouter(d Deps) *chi.Mux {
	accountSvc := appaccount.NewService(d.Ledger, d.Sessions, d.Slips, d.Stats)
	slipSvc := appslip.NewService(d.Slips, d.Engine)
	publicSvc := apppublic.NewService(d.Stats)

	accountHandlers := NewAccountHandlers(accountSvc)
	slipHandlers := NewSlipHandlers(slipSvc)
	publicHandlers := NewPublicHandlers(publicSvc)
	eventHandlers := NewEventHandlers(d.Feed)
	adminHandlers := NewAdminHandlers(d.Store, d.Ledger, d.Engine)

	if d.AdminAPIKey == "" {
		log.Warn().Msg("ADMIN_API_KEY is empty; admin routes will refuse every request")
	}

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)
	r.Use(chimw.RealIP)
	r.Use(MetricsMiddleware)

	r.With(APILogMiddleware()).Get("/healthz", adminHandlers.Health())
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Use(APILogMiddleware())
		r.Get("/public/leaderboard", publicHandlers.Leaderboard())

		r.Post("/accounts/register", accountHandlers.Register())
		r.Post("/accounts/login", accountHandlers.Login())

		r.Group(func(r chi.Router) {
			r.Use(SessionMiddleware(d.Sessions))
			r.Post("/accounts/logout", accountHandlers.Logout())
			r.Get("/me", accountHandlers.Me())
			r.Delete("/me", accountHandlers.Delete())
			r.Post("/me/reset", accountHandlers.Reset())
			r.Get("/me/wagers", accountHandlers.Wagers())
			r.Get("/me/ledger", accountHandlers.Ledger())
			r.Get("/me/stats", accountHandlers.Stats())
			r.Get("/me/events", eventHandlers.Stream())
		})

		r.Route("/slip", func(r chi.Router) {
			r.Use(OptionalSessionMiddleware(d.Sessions))
			r.Get("/", slipHandlers.View())
			r.Delete("/", slipHandlers.Clear())
			r.Post("/selections", slipHandlers.AddSelection())
			r.Patch("/selections/{selection_id}", slipHandlers.UpdateStake())
			r.Delete("/selections/{selection_id}", slipHandlers.RemoveSelection())
			r.Post("/toggle", slipHandlers.Toggle())
			r.Post("/close", slipHandlers.Close())
			r.Post("/submit", slipHandlers.Submit())
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(AdminAuthMiddleware(d.AdminAPIKey))
			r.Use(BodyCaptureMiddleware(4096))
			r.Get("/wagers", adminHandlers.Wagers())
			r.Post("/wagers/{wager_id}/settle", adminHandlers.Settle())
			r.Post("/accounts/{account_id}/topup", adminHandlers.Topup())
			r.Get("/ledger", adminHandlers.Ledger())
		})
	})
	return r
}

func LogRoutes(r chi.Router) {
	type routeDef struct {
		Method string
		Path   string
	}
	routes := make([]routeDef, 0, 32)
	err := chi.Walk(r, func(method string, route string, _ http.Handler, _ ...func(http.Handler) http.Handler) error {
		routes = append(routes, routeDef{Method: method, Path: route})
		return nil
	})
	if err != nil {
		log.Error().Err(err).Msg("walk routes failed")
		return
	}
	sort.Slice(routes, func(i, j int) bool {
		if routes[i].Path == routes[j].Path {
			return routes[i].Method < routes[j].Method
		}
		return routes[i].Path < routes[j].Path
	})
	var b strings.Builder
	b.WriteString(fmt.Sprintf("Registered routes (%d):\n", len(routes)))
	for _, rt := range routes {
		b.WriteString(fmt.Sprintf("  %-6s %s\n", rt.Method, rt.Path))
	}
	fmt.Print(b.String())
}
